package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FranksOps/procura/internal/procurement"
	"github.com/FranksOps/procura/internal/storage"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, yaml or html)", s)
}

// Summary contains aggregated figures about journal records.
type Summary struct {
	TotalRecords int
	TotalFailed  int
	ByKind       map[string]int
	ByStatus     map[string]int
	TotalTime    time.Duration
	StartTime    time.Time
	EndTime      time.Time
	Span         time.Duration
}

// GenerateSummary aggregates a slice of journal records.
func GenerateSummary(records []*storage.Record) Summary {
	s := Summary{
		ByKind:   make(map[string]int),
		ByStatus: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalRecords++
		if r.Error != "" {
			s.TotalFailed++
		}
		s.ByKind[r.Kind]++
		s.ByStatus[r.Status]++
		s.TotalTime += r.Duration

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.Span = s.EndTime.Sub(s.StartTime)
	return s
}

// History is the rendered form of a journal listing.
type History struct {
	Summary Summary      `json:"summary" yaml:"summary"`
	Records []RecordView `json:"records" yaml:"records"`
}

// RecordView is a journal record with its payload decoded.
type RecordView struct {
	ID         string    `json:"id" yaml:"id"`
	RunID      string    `json:"run_id" yaml:"run_id"`
	Kind       string    `json:"kind" yaml:"kind"`
	Subject    string    `json:"subject" yaml:"subject"`
	Status     string    `json:"status" yaml:"status"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Payload    any       `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// NewHistory summarizes records and decodes their payloads.
func NewHistory(records []*storage.Record) History {
	h := History{Summary: GenerateSummary(records), Records: make([]RecordView, len(records))}
	for i, r := range records {
		v := RecordView{
			ID:         r.ID,
			RunID:      r.RunID,
			Kind:       r.Kind,
			Subject:    r.Subject,
			Status:     r.Status,
			DurationMS: r.Duration.Milliseconds(),
			CreatedAt:  r.CreatedAt,
			Error:      r.Error,
		}
		if len(r.Payload) > 0 {
			var p any
			if err := json.Unmarshal(r.Payload, &p); err == nil {
				v.Payload = p
			}
		}
		h.Records[i] = v
	}
	return h
}

// Styles decorate text output. Nil fields render plain text.
type Styles struct {
	Heading func(string) string
	Good    func(string) string
	Bad     func(string) string
}

func (s Styles) apply(f func(string) string, v string) string {
	if f == nil {
		return v
	}
	return f(v)
}

// Write renders v in format. v is one of *procurement.SearchReport,
// *procurement.MarketIntelReport, *procurement.ImageResult,
// *procurement.ComplianceReport, []*storage.Record or History.
func Write(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, normalize(v))
	case FormatYAML:
		return WriteYAML(w, normalize(v))
	case FormatHTML:
		return WriteHTML(w, v)
	case FormatText, "":
		return WriteText(w, v, Styles{})
	}
	return fmt.Errorf("report: unknown format %q", format)
}

func normalize(v any) any {
	if recs, ok := v.([]*storage.Record); ok {
		return NewHistory(recs)
	}
	return v
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// templateName picks the template for v.
func templateName(v any) (string, any, error) {
	switch r := v.(type) {
	case *procurement.SearchReport:
		return "search", r, nil
	case *procurement.MarketIntelReport:
		return "intel", r, nil
	case *procurement.ImageResult:
		return "images", r, nil
	case *procurement.ComplianceReport:
		return "compliance", r, nil
	case []*storage.Record:
		return "history", NewHistory(r), nil
	case History:
		return "history", r, nil
	}
	return "", nil, fmt.Errorf("report: cannot render %T", v)
}

func funcs(s Styles) map[string]any {
	return map[string]any{
		"heading": func(v string) string { return s.apply(s.Heading, v) },
		"good":    func(v string) string { return s.apply(s.Good, v) },
		"bad":     func(v string) string { return s.apply(s.Bad, v) },
		"join":    strings.Join,
		"inc":     func(i int) int { return i + 1 },
		"pct":     func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
		"when":    func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
		"counts":  sortedCounts,
	}
}

type count struct {
	Key   string
	Count int
}

func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WriteText writes a human-readable report to the provided writer.
func WriteText(w io.Writer, v any, styles Styles) error {
	name, data, err := templateName(v)
	if err != nil {
		return err
	}

	t, err := template.New("text").Funcs(funcs(styles)).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := t.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}

// WriteHTML writes a standalone HTML report to the provided writer.
func WriteHTML(w io.Writer, v any) error {
	name, data, err := templateName(v)
	if err != nil {
		return err
	}

	t, err := htmltemplate.New("html").Funcs(funcs(Styles{})).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := t.ExecuteTemplate(w, "page", struct {
		Body string
		Data any
	}{Body: name, Data: data}); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}
