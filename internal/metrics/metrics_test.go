package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(18931, nil)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordExtract("search", "ok", 1500*time.Millisecond)
	RecordTask("search", nil)
	RecordTask("compliance", errors.New("timeout"))
	EntriesDroppedTotal.WithLabelValues("search").Inc()

	resp, err := http.Get("http://localhost:18931/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	for _, want := range []string{
		`procura_extract_requests_total{operation="search",outcome="ok"}`,
		`procura_extract_duration_seconds_bucket`,
		`procura_tasks_total{outcome="ok",stage="search"}`,
		`procura_tasks_total{outcome="failed",stage="compliance"}`,
		`procura_entries_dropped_total{stage="search"}`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestStopNilServer(t *testing.T) {
	var s *Server
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("expected nil error stopping nil server, got %v", err)
	}
}
