package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// Sample holds CPU and memory usage for a single supervised process.
type Sample struct {
	PID        int32     `json:"pid"`
	Name       string    `json:"name"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryRSS  uint64    `json:"memory_rss"`
	MemoryMB   float64   `json:"memory_mb"`
	NumThreads int32     `json:"num_threads"`
	Timestamp  time.Time `json:"timestamp"`
}

// PIDSource enumerates the processes to sample: name -> pid. Entries with
// pid 0 are skipped.
type PIDSource func() map[string]int

// UsageCollector periodically samples CPU and RSS of supervised children via
// gopsutil and exports them as gauges. The latest samples are also kept for
// the HTTP status surface.
type UsageCollector struct {
	interval time.Duration
	source   PIDSource

	mu     sync.RWMutex
	latest map[string]Sample

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	cpuPercent *prometheus.GaugeVec
	memoryMB   *prometheus.GaugeVec
	numThreads *prometheus.GaugeVec
}

// NewUsageCollector builds a collector; interval <= 0 defaults to 10s.
func NewUsageCollector(interval time.Duration, source PIDSource) *UsageCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &UsageCollector{
		interval: interval,
		source:   source,
		latest:   make(map[string]Sample),
		stopCh:   make(chan struct{}),
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forerun",
			Subsystem: "service",
			Name:      "cpu_percent",
			Help:      "CPU usage percent per supervised process.",
		}, []string{"name"}),
		memoryMB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forerun",
			Subsystem: "service",
			Name:      "memory_mb",
			Help:      "Resident memory in MB per supervised process.",
		}, []string{"name"}),
		numThreads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forerun",
			Subsystem: "service",
			Name:      "num_threads",
			Help:      "Thread count per supervised process.",
		}, []string{"name"}),
	}
}

// Register registers the collector's gauges.
func (uc *UsageCollector) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{uc.cpuPercent, uc.memoryMB, uc.numThreads} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Start launches the sampling loop.
func (uc *UsageCollector) Start() {
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		t := time.NewTicker(uc.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				uc.sampleAll()
			case <-uc.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sampling loop and waits for it.
func (uc *UsageCollector) Stop() {
	uc.stopOnce.Do(func() { close(uc.stopCh) })
	uc.wg.Wait()
}

// Latest returns the most recent sample per service name.
func (uc *UsageCollector) Latest() map[string]Sample {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make(map[string]Sample, len(uc.latest))
	for k, v := range uc.latest {
		out[k] = v
	}
	return out
}

func (uc *UsageCollector) sampleAll() {
	pids := uc.source()
	now := time.Now()
	for name, pid := range pids {
		if pid <= 0 {
			uc.drop(name)
			continue
		}
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			uc.drop(name)
			continue
		}
		s := Sample{PID: int32(pid), Name: name, Timestamp: now}
		if cpu, err := p.CPUPercent(); err == nil {
			s.CPUPercent = cpu
		}
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			s.MemoryRSS = mi.RSS
			s.MemoryMB = float64(mi.RSS) / (1024 * 1024)
		}
		if nt, err := p.NumThreads(); err == nil {
			s.NumThreads = nt
		}
		uc.mu.Lock()
		uc.latest[name] = s
		uc.mu.Unlock()
		uc.cpuPercent.WithLabelValues(name).Set(s.CPUPercent)
		uc.memoryMB.WithLabelValues(name).Set(s.MemoryMB)
		uc.numThreads.WithLabelValues(name).Set(float64(s.NumThreads))
	}
	// forget services that vanished from the source
	uc.mu.Lock()
	for name := range uc.latest {
		if _, ok := pids[name]; !ok {
			delete(uc.latest, name)
			uc.cpuPercent.DeleteLabelValues(name)
			uc.memoryMB.DeleteLabelValues(name)
			uc.numThreads.DeleteLabelValues(name)
		}
	}
	uc.mu.Unlock()
}

func (uc *UsageCollector) drop(name string) {
	uc.mu.Lock()
	delete(uc.latest, name)
	uc.mu.Unlock()
	uc.cpuPercent.DeleteLabelValues(name)
	uc.memoryMB.DeleteLabelValues(name)
	uc.numThreads.DeleteLabelValues(name)
}
