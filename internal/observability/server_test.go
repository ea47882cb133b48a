// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test-local address
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil)
	server.Metrics().RecordRequest("GET", "/api/events", "200", 5*time.Millisecond)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	for _, want := range []string{"# HELP", "# TYPE", "go_", "process_", "iucal_http_requests_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")
	if status != http.StatusOK || body != "ok\n" {
		t.Errorf("liveness = %d %q, want 200 ok", status, body)
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		ready  ReadinessChecker
		status int
		body   string
	}{
		{name: "ready", ready: func(context.Context) error { return nil }, status: http.StatusOK, body: "ok\n"},
		{name: "not ready", ready: func(context.Context) error { return errors.New("db down") }, status: http.StatusServiceUnavailable, body: "not ready\n"},
		{name: "nil checker", ready: nil, status: http.StatusOK, body: "ok\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.ready)
			status, body := get(t, "http://"+server.Addr()+"/healthz/readiness")
			if status != tt.status || body != tt.body {
				t.Errorf("readiness = %d %q, want %d %q", status, body, tt.status, tt.body)
			}
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	if _, err := server.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()

	server := NewServer(l.Addr().String(), nil)
	if _, err := server.Start(); err == nil {
		t.Fatal("expected Start on a busy address to fail")
	}
	if server.Addr() != "" {
		t.Error("Addr should be empty after failed Start")
	}
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			t.Errorf("expected closed channel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error channel was not closed")
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAuth("login", "success")
	m.RecordAuth("login", "success")
	m.RecordAuth("login", "invalid_credentials")
	m.RecordRequest("POST", "/api/events", "201", time.Millisecond)

	if got := testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "success")); got != 2 {
		t.Errorf("login success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/events", "201")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordAuth("login", "success")
	nilMetrics.RecordRequest("GET", "/", "200", 0)
}
