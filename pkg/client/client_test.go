package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"services":[{"name":"db","state":"ready","pid":42,"restarts":1,"probes":["tcp:127.0.0.1:5432"]}],
			"foreground":{"running":true,"pid":43,"exit_code":0}
		}`))
	})
	mux.HandleFunc("/transitions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"service":"db","from":"starting","to":"ready","at":"2026-08-28T10:00:00Z"}]`))
	})
	mux.HandleFunc("/usage", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"db":{"pid":42,"name":"db","cpu_percent":1.5,"memory_mb":12.5}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Services) != 1 || st.Services[0].Name != "db" || st.Services[0].State != "ready" {
		t.Fatalf("services=%+v", st.Services)
	}
	if !st.Foreground.Running || st.Foreground.PID != 43 {
		t.Fatalf("foreground=%+v", st.Foreground)
	}
}

func TestTransitions(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})

	trs, err := c.Transitions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(trs) != 1 || trs[0].From != "starting" || trs[0].To != "ready" {
		t.Fatalf("transitions=%+v", trs)
	}
}

func TestUsage(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})

	u, err := c.Usage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if u["db"].CPUPercent != 1.5 {
		t.Fatalf("usage=%+v", u)
	}
}

func TestIsReachable(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{BaseURL: srv.URL})
	if !c.IsReachable(context.Background()) {
		t.Fatal("server must be reachable")
	}
	srv.Close()
	if c.IsReachable(context.Background()) {
		t.Fatal("closed server reported reachable")
	}
}

func TestErrorResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := c.Status(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaults(t *testing.T) {
	c := New(Config{})
	if c.baseURL != DefaultConfig().BaseURL {
		t.Fatalf("baseURL=%q", c.baseURL)
	}
	if c.client.Timeout != DefaultConfig().Timeout {
		t.Fatalf("timeout=%v", c.client.Timeout)
	}
}
