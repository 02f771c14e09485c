package csvbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/procura/internal/storage"
)

func TestCSVBackend(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "procura.csv")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create CSV backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond) // Format truncates precision

	rec1 := &storage.Record{
		ID:        "csv1",
		RunID:     "run-1",
		Kind:      storage.KindCompliance,
		Subject:   "GlovesX, MaskY",
		Status:    "ok",
		Payload:   []byte(`{"results":[{"product_name":"GlovesX","compliant":true}]}`),
		Duration:  10 * time.Millisecond,
		CreatedAt: now.Add(-2 * time.Hour),
	}

	rec2 := &storage.Record{
		ID:        "csv2",
		RunID:     "run-2",
		Kind:      storage.KindDocument,
		Subject:   "files/abc",
		Status:    "ready",
		CreatedAt: now.Add(-1 * time.Hour),
	}

	if err := b.Save(ctx, rec1); err != nil {
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := b.Save(ctx, rec2); err != nil {
		t.Fatalf("Failed to save record 2: %v", err)
	}

	// Test Kind Filter
	resultsKind, err := b.Query(ctx, storage.Filter{Kind: storage.KindDocument, Subject: "files/abc"})
	if err != nil {
		t.Fatalf("Failed to query by Kind: %v", err)
	}
	if len(resultsKind) != 1 {
		t.Fatalf("Expected 1 result for Kind filter, got %d", len(resultsKind))
	}
	if resultsKind[0].Status != "ready" || resultsKind[0].Payload != nil {
		t.Errorf("Unexpected document record %+v", resultsKind[0])
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
	if resultsSince[0].ID != "csv2" {
		t.Errorf("Expected ID csv2, got %s", resultsSince[0].ID)
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
	if resultsAll[0].ID != "csv2" {
		t.Errorf("Expected csv2 first, got %s", resultsAll[0].ID)
	}

	// Payload with commas and quotes survives CSV quoting
	if string(resultsAll[1].Payload) != string(rec1.Payload) {
		t.Errorf("Expected payload %s, got %s", rec1.Payload, resultsAll[1].Payload)
	}
	if resultsAll[1].Subject != "GlovesX, MaskY" {
		t.Errorf("Expected subject with comma, got %q", resultsAll[1].Subject)
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
	if resultsOffset[0].ID != "csv1" {
		t.Errorf("Expected csv1 for offset 1, got %s", resultsOffset[0].ID)
	}
}
