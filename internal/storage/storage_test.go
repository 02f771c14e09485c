package storage

import (
	"context"
	"testing"
	"time"
)

// Ensure Backend interface exists and is implementable
type mockBackend struct{}

func (m *mockBackend) Save(ctx context.Context, record *Record) error { return nil }
func (m *mockBackend) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	return nil, nil
}
func (m *mockBackend) Close() error { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &mockBackend{}
	_ = b
}

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	r := &Record{Kind: KindSearch, Subject: "surgical gloves", CreatedAt: now}

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"kind match", Filter{Kind: KindSearch}, true},
		{"kind mismatch", Filter{Kind: KindIntel}, false},
		{"subject match", Filter{Subject: "surgical gloves"}, true},
		{"subject mismatch", Filter{Subject: "masks"}, false},
		{"since past", Filter{Since: &past}, true},
		{"since future", Filter{Since: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(r); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Page(t *testing.T) {
	records := []*Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	if got := (Filter{Offset: 1, Limit: 1}).Page(records); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("expected [b], got %v", got)
	}
	if got := (Filter{Offset: 5}).Page(records); len(got) != 0 {
		t.Errorf("expected empty page, got %d records", len(got))
	}
	if got := (Filter{}).Page(records); len(got) != 3 {
		t.Errorf("expected all records, got %d", len(got))
	}
}
