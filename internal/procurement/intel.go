package procurement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/storage"
)

var (
	errMissingField      = errors.New("missing required field")
	errConfidenceRange   = errors.New("confidence outside [0,1]")
	errMissingConfidence = errors.New("missing confidence")
)

// GetMarketIntelligence synthesizes a market report from one composed
// prompt, usually IntelQuery.Prompt. The service is called once.
// LastUpdated is always the Manager's clock.
func (m *Manager) GetMarketIntelligence(ctx context.Context, prompt string) (*MarketIntelReport, error) {
	start := m.now()
	subject := firstLine(prompt)

	rep, err := m.marketIntelligence(ctx, prompt)
	if err != nil {
		metrics.RecordTask("intel", err)
		m.record(ctx, storage.KindIntel, subject, start, nil, err)
		return nil, err
	}
	metrics.RecordTask("intel", nil)
	m.record(ctx, storage.KindIntel, subject, start, rep, nil)
	return rep, nil
}

func (m *Manager) marketIntelligence(ctx context.Context, prompt string) (*MarketIntelReport, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &IntelParsingError{Err: ErrEmptyQuery}
	}

	m.report("intel", "synthesizing market intelligence")
	out, err := m.extractWithTimeout(ctx, extract.Request{
		Operation:   extract.OpIntel,
		Instruction: intelInstruction,
		Input:       prompt,
		WebSearch:   true,
		JSON:        true,
	})
	if err != nil {
		return nil, &ExtractionError{Operation: extract.OpIntel, Err: err}
	}
	return parseIntel(out, m.now().UTC())
}

type rawTrend struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence"`
}

// parseIntel validates the service's answer. Required fields must be
// present; confidences are checked, never clamped.
func parseIntel(out string, now time.Time) (*MarketIntelReport, error) {
	raw, ok := findJSON(out)
	if !ok {
		return nil, &IntelParsingError{Err: ErrUnparseable}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &IntelParsingError{Err: fmt.Errorf("%w: %v", ErrUnparseable, err)}
	}

	required := func(key string) (json.RawMessage, error) {
		v, ok := obj[key]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			return nil, &IntelParsingError{Field: key, Err: errMissingField}
		}
		return v, nil
	}

	rep := &MarketIntelReport{
		ProductCategory:  Unknown,
		LastUpdated:      now,
		KeyManufacturers: []string{},
	}

	v, err := required("trends")
	if err != nil {
		return nil, err
	}
	var trends []rawTrend
	if err := json.Unmarshal(v, &trends); err != nil {
		return nil, &IntelParsingError{Field: "trends", Err: err}
	}
	rep.Trends = make([]Trend, 0, len(trends))
	for i, t := range trends {
		field := fmt.Sprintf("trends[%d].confidence", i)
		if t.Confidence == nil {
			return nil, &IntelParsingError{Field: field, Err: errMissingConfidence}
		}
		c := *t.Confidence
		if c < 0 || c > 1 {
			return nil, &IntelParsingError{Field: field, Err: fmt.Errorf("%w: %g", errConfidenceRange, c)}
		}
		rep.Trends = append(rep.Trends, Trend{
			Title:       strings.TrimSpace(t.Title),
			Description: strings.TrimSpace(t.Description),
			Confidence:  c,
		})
	}

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"supply_chain_status", &rep.SupplyChainStatus},
		{"price_forecast", &rep.PriceForecast},
	} {
		v, err := required(f.key)
		if err != nil {
			return nil, err
		}
		s, ok := stringish(v, "summary", "status", "text")
		if !ok || s == "" {
			return nil, &IntelParsingError{Field: f.key, Err: errMissingField}
		}
		*f.dst = s
	}

	if v, ok := obj["product_category"]; ok {
		if s, ok := stringish(v); ok && s != "" {
			rep.ProductCategory = s
		}
	}

	if v, ok := obj["key_manufacturers"]; ok {
		entries, _ := listField(v)
		for _, e := range entries {
			if s, ok := stringish(e, "name"); ok && s != "" {
				rep.KeyManufacturers = append(rep.KeyManufacturers, s)
			}
		}
	}

	return rep, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
