// Package procurement turns procurement questions into bounded batches of
// extraction calls and merges the answers into reports.
package procurement

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/storage"
)

// Options configures a Manager. Zero values get defaults.
type Options struct {
	// Concurrency caps in-flight extraction calls within one batch.
	Concurrency int
	// TaskTimeout bounds each extraction call.
	TaskTimeout time.Duration
	// UploadTimeout bounds document registration, which includes the
	// service's processing time.
	UploadTimeout time.Duration
	// MaxWebsites truncates the planned site list.
	MaxWebsites int
	// Journal, when set, receives a record for every operation.
	Journal storage.Backend
	Logger  *slog.Logger
	// Progress, when set, is told about each step as it happens.
	Progress func(stage, message string)
	Now      func() time.Time
}

// Manager is the procurement orchestrator. It is safe for concurrent use.
type Manager struct {
	provider      extract.Provider
	concurrency   int
	taskTimeout   time.Duration
	uploadTimeout time.Duration
	maxWebsites   int
	journal       storage.Backend
	logger        *slog.Logger
	progress      func(stage, message string)
	now           func() time.Time
	runID         string

	mu        sync.RWMutex
	activeDoc *ComplianceDocument
}

// New creates a Manager over provider.
func New(provider extract.Provider, opts Options) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 60 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Minute
	}
	if opts.MaxWebsites <= 0 {
		opts.MaxWebsites = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		provider:      provider,
		concurrency:   opts.Concurrency,
		taskTimeout:   opts.TaskTimeout,
		uploadTimeout: opts.UploadTimeout,
		maxWebsites:   opts.MaxWebsites,
		journal:       opts.Journal,
		logger:        opts.Logger,
		progress:      opts.Progress,
		now:           opts.Now,
		runID:         uuid.NewString(),
	}
}

// RunID identifies this Manager's journal entries.
func (m *Manager) RunID() string { return m.runID }

func (m *Manager) report(stage, message string) {
	if m.progress != nil {
		m.progress(stage, message)
	}
}

// extractWithTimeout runs one extraction bounded by the task timeout.
func (m *Manager) extractWithTimeout(ctx context.Context, req extract.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.taskTimeout)
	defer cancel()
	return m.provider.Extract(ctx, req)
}

// record appends one journal entry. Failures are logged, never returned.
func (m *Manager) record(ctx context.Context, kind, subject string, start time.Time, payload any, opErr error) {
	if m.journal == nil {
		return
	}
	m.save(ctx, m.newRecord(kind, subject, start, payload, opErr))
}

func (m *Manager) newRecord(kind, subject string, start time.Time, payload any, opErr error) *storage.Record {
	rec := &storage.Record{
		ID:        uuid.NewString(),
		RunID:     m.runID,
		Kind:      kind,
		Subject:   subject,
		Status:    "ok",
		CreatedAt: m.now().UTC(),
	}
	if !start.IsZero() {
		rec.Duration = m.now().Sub(start)
	}
	if opErr != nil {
		rec.Status = "failed"
		rec.Error = opErr.Error()
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			m.logger.Warn("journal payload encoding failed", "kind", kind, "err", err)
		} else {
			rec.Payload = b
		}
	}
	return rec
}

func (m *Manager) save(ctx context.Context, rec *storage.Record) {
	// The entry must land even when the operation itself was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.journal.Save(ctx, rec); err != nil {
		m.logger.Warn("journal write failed", "kind", rec.Kind, "subject", rec.Subject, "err", err)
	}
}
