package jsonbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/procura/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "procura.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC() // JSON marshals with precision limits

	rec1 := &storage.Record{
		ID:        "json1",
		RunID:     "run-1",
		Kind:      storage.KindSearch,
		Subject:   "surgical gloves",
		Status:    "ok",
		Payload:   []byte(`{"total_products":2}`),
		Duration:  10 * time.Millisecond,
		CreatedAt: now.Add(-2 * time.Hour),
	}

	rec2 := &storage.Record{
		ID:        "json2",
		RunID:     "run-2",
		Kind:      storage.KindIntel,
		Subject:   "nitrile gloves",
		Status:    "failed",
		Duration:  20 * time.Millisecond,
		CreatedAt: now.Add(-1 * time.Hour),
		Error:     "intel parsing: missing price_forecast",
	}

	if err := b.Save(ctx, rec1); err != nil {
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := b.Save(ctx, rec2); err != nil {
		t.Fatalf("Failed to save record 2: %v", err)
	}

	// Test Kind Filter
	resultsKind, err := b.Query(ctx, storage.Filter{Kind: storage.KindIntel})
	if err != nil {
		t.Fatalf("Failed to query by Kind: %v", err)
	}
	if len(resultsKind) != 1 {
		t.Fatalf("Expected 1 result for Kind filter, got %d", len(resultsKind))
	}
	if resultsKind[0].ID != "json2" || resultsKind[0].Error == "" {
		t.Errorf("Expected failed json2, got %+v", resultsKind[0])
	}

	// Test Subject Filter
	resultsSubject, err := b.Query(ctx, storage.Filter{Subject: "surgical gloves"})
	if err != nil {
		t.Fatalf("Failed to query by Subject: %v", err)
	}
	if len(resultsSubject) != 1 || string(resultsSubject[0].Payload) != `{"total_products":2}` {
		t.Fatalf("Expected json1 with payload, got %+v", resultsSubject)
	}

	// Test Since Filter
	past := now.Add(-90 * time.Minute)
	resultsSince, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by Since: %v", err)
	}
	if len(resultsSince) != 1 {
		t.Fatalf("Expected 1 result for Since filter, got %d", len(resultsSince))
	}
	if resultsSince[0].ID != "json2" {
		t.Errorf("Expected ID json2, got %s", resultsSince[0].ID)
	}

	// Test no filters, ordering
	resultsAll, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(resultsAll) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(resultsAll))
	}
	// Order should be descending (newest first)
	if resultsAll[0].ID != "json2" {
		t.Errorf("Expected json2 first, got %s", resultsAll[0].ID)
	}

	// Test limit
	resultsLimit, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(resultsLimit) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsLimit))
	}

	// Test offset
	resultsOffset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(resultsOffset) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsOffset))
	}
	if resultsOffset[0].ID != "json1" {
		t.Errorf("Expected json1 for offset 1, got %s", resultsOffset[0].ID)
	}
}

func TestJSONBackend_ReadableLines(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "nested", "procura.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	rec := &storage.Record{
		ID:        "r1",
		Kind:      storage.KindImages,
		Subject:   "gloves",
		Status:    "ok",
		Payload:   []byte(`{"images":[]}`),
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	if !strings.Contains(string(data), `"payload":{"images":[]}`) {
		t.Errorf("Expected embedded payload, got %s", data)
	}
	if !strings.Contains(string(data), `"duration_ms":1500`) {
		t.Errorf("Expected duration in milliseconds, got %s", data)
	}

	got, err := b.Query(ctx, storage.Filter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d (%v)", len(got), err)
	}
	if got[0].Duration != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s duration, got %v", got[0].Duration)
	}

	if err := b.Save(ctx, &storage.Record{ID: "bad", Payload: []byte("not json")}); err == nil {
		t.Error("Expected error for non-JSON payload")
	}
}
