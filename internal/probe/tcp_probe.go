package probe

import (
	"net"
	"time"
)

// TCPProbe dials an address; a successful connection signals readiness.
type TCPProbe struct {
	Address     string        // host:port
	DialTimeout time.Duration // per-attempt timeout; defaults to 1s
}

func (p TCPProbe) Ready() (bool, error) {
	to := p.DialTimeout
	if to <= 0 {
		to = time.Second
	}
	conn, err := net.DialTimeout("tcp", p.Address, to)
	if err != nil {
		// connection refused/timeout means not ready yet, not a probe failure
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

func (p TCPProbe) Describe() string { return "tcp:" + p.Address }
