package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FranksOps/procura/internal/extract"
)

// Aggregate merges records into a report. The summary comes from the
// service when there is something to summarize; if that call fails a
// templated summary is used instead, so Aggregate never fails.
func (m *Manager) Aggregate(ctx context.Context, query string, records []ProductRecord) *SearchReport {
	if records == nil {
		records = []ProductRecord{}
	}

	report := &SearchReport{
		RunID:         m.runID,
		Query:         query,
		GeneratedAt:   m.now().UTC(),
		TotalProducts: len(records),
		PriceRange:    priceRange(records),
		Products:      records,
		Sites:         []SiteOutcome{},
	}
	report.Summary = m.summarize(ctx, query, report)
	return report
}

// priceRange takes min and max over the prices that parse. Ties keep the
// earliest record.
func priceRange(records []ProductRecord) PriceRange {
	var pr PriceRange
	for _, r := range records {
		v, ok := parsePrice(r.Price)
		if !ok {
			continue
		}
		if !pr.Known {
			pr = PriceRange{Known: true, Min: r.Price, Max: r.Price, MinValue: v, MaxValue: v}
			continue
		}
		if v < pr.MinValue {
			pr.Min, pr.MinValue = r.Price, v
		}
		if v > pr.MaxValue {
			pr.Max, pr.MaxValue = r.Price, v
		}
	}
	return pr
}

type summaryItem struct {
	Name    string `json:"name"`
	Price   string `json:"price"`
	Website string `json:"website"`
}

func (m *Manager) summarize(ctx context.Context, query string, report *SearchReport) string {
	if report.TotalProducts == 0 {
		return fallbackSummary(query, report)
	}

	items := make([]summaryItem, len(report.Products))
	for i, p := range report.Products {
		items[i] = summaryItem{Name: p.Name, Price: p.Price, Website: p.Website.Host}
	}
	listing, err := json.Marshal(items)
	if err != nil {
		return fallbackSummary(query, report)
	}

	out, err := m.extractWithTimeout(ctx, extract.Request{
		Operation:   extract.OpSummary,
		Instruction: summaryInstruction,
		Input:       fmt.Sprintf("Query: %s\nPrice range: %s\nListings:\n%s", query, report.PriceRange, listing),
	})
	if err != nil {
		m.logger.Warn("summary generation failed, using template", "query", query, "err", err)
		return fallbackSummary(query, report)
	}
	if out = strings.TrimSpace(out); out == "" {
		return fallbackSummary(query, report)
	}
	return out
}

func fallbackSummary(query string, report *SearchReport) string {
	if report.TotalProducts == 0 {
		return fmt.Sprintf("No products found for %q.", query)
	}

	vendors := make(map[string]bool)
	for _, p := range report.Products {
		vendors[p.Website.Host] = true
	}
	noun := "products"
	if report.TotalProducts == 1 {
		noun = "product"
	}
	return fmt.Sprintf("Found %d %s for %q across %d vendors; price range %s.",
		report.TotalProducts, noun, query, len(vendors), report.PriceRange)
}
