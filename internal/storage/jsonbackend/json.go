package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FranksOps/procura/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

var errPayloadNotJSON = errors.New("payload is not valid JSON")

// line is the on-disk shape of one record. The payload is embedded as
// JSON so the journal stays readable with jq.
type line struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	Kind       string          `json:"kind"`
	Subject    string          `json:"subject"`
	Status     string          `json:"status"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
	Error      string          `json:"error,omitempty"`
}

func toLine(r *storage.Record) (line, error) {
	if len(r.Payload) > 0 && !json.Valid(r.Payload) {
		return line{}, errPayloadNotJSON
	}
	return line{
		ID:         r.ID,
		RunID:      r.RunID,
		Kind:       r.Kind,
		Subject:    r.Subject,
		Status:     r.Status,
		Payload:    json.RawMessage(r.Payload),
		DurationMS: r.Duration.Milliseconds(),
		CreatedAt:  r.CreatedAt,
		Error:      r.Error,
	}, nil
}

func (l line) record() *storage.Record {
	return &storage.Record{
		ID:        l.ID,
		RunID:     l.RunID,
		Kind:      l.Kind,
		Subject:   l.Subject,
		Status:    l.Status,
		Payload:   []byte(l.Payload),
		Duration:  time.Duration(l.DurationMS) * time.Millisecond,
		CreatedAt: l.CreatedAt,
		Error:     l.Error,
	}
}

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New opens (or creates) an NDJSON journal at filePath.
func New(filePath string) (storage.Backend, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonbackend: %w", err)
		}
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, record *storage.Record) error {
	l, err := toLine(record)
	if err != nil {
		return fmt.Errorf("jsonbackend: record %s: %w", record.ID, err)
	}
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}
	return nil
}

// Query scans the whole file. Appends are chronological, so the matches
// are reversed to return newest first.
func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	// Payloads carry whole reports.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var matched []*storage.Record
	for n := 1; scanner.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("jsonbackend: line %d: %w", n, err)
		}
		r := l.record()
		if filter.Match(r) {
			matched = append(matched, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return filter.Page(matched), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
