package storage

import (
	"context"
	"time"
)

// Record kinds written to the journal.
const (
	KindSearch     = "search"
	KindIntel      = "intel"
	KindImages     = "images"
	KindCompliance = "compliance"
	KindDocument   = "document"
)

// Record is one journal entry: the outcome of an orchestrator operation, or
// a compliance document state transition.
type Record struct {
	ID    string
	RunID string
	Kind  string
	// Subject is the query, product name or document handle the record is about.
	Subject string
	// Status is "ok"/"failed" for operations and the document state for documents.
	Status    string
	Payload   []byte // JSON-encoded report
	Duration  time.Duration
	CreatedAt time.Time
	Error     string // non-empty if the operation failed
}

// Filter allows querying for specific Records.
type Filter struct {
	Kind    string
	Subject string
	Since   *time.Time
	Limit   int
	Offset  int
}

// Backend defines the interface for storing and querying journal records.
// Query returns newest first; records saved later win ties on CreatedAt.
type Backend interface {
	Save(ctx context.Context, record *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}

// Match reports whether r passes filter's field predicates. File-backed
// backends use it to filter in memory.
func (f Filter) Match(r *Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset and Limit to records already in result order.
func (f Filter) Page(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}
