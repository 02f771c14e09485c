package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/storage"
)

// siteResult is one task's isolated output slot.
type siteResult struct {
	products []ProductRecord
	dropped  int
	err      error
}

// Run searches every website for query concurrently, at most Concurrency
// at a time, and aggregates what comes back. A failing site is recorded
// in the report's Sites and otherwise ignored; Run only fails on an empty
// query or when ctx itself is done.
func (m *Manager) Run(ctx context.Context, query string, websites []Website) (*SearchReport, error) {
	return m.run(ctx, query, websites, m.now())
}

func (m *Manager) run(ctx context.Context, query string, websites []Website, start time.Time) (*SearchReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	m.report("search", fmt.Sprintf("searching %d websites", len(websites)))
	results := make([]siteResult, len(websites))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, site := range websites {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				return nil
			}
			products, dropped, err := m.searchSite(ctx, query, site)
			results[i] = siteResult{products: products, dropped: dropped, err: err}
			metrics.RecordTask("search", err)
			if err != nil {
				m.logger.Warn("site search failed", "website", site.Host, "err", err)
				m.report("search", fmt.Sprintf("%s failed", site))
			} else {
				m.report("search", fmt.Sprintf("%s: %d products", site, len(products)))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		m.record(ctx, storage.KindSearch, query, start, nil, err)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var products []ProductRecord
	sites := make([]SiteOutcome, len(websites))
	for i, r := range results {
		sites[i] = SiteOutcome{Website: websites[i], Products: len(r.products), Dropped: r.dropped}
		if r.err != nil {
			sites[i].Error = r.err.Error()
			continue
		}
		products = append(products, r.products...)
	}
	metrics.ProductsFoundTotal.Add(float64(len(products)))

	report := m.Aggregate(ctx, query, products)
	report.Sites = sites

	m.record(ctx, storage.KindSearch, query, start, report, nil)
	return report, nil
}

// searchSite runs one site's extraction and parses its products.
func (m *Manager) searchSite(ctx context.Context, query string, site Website) ([]ProductRecord, int, error) {
	out, err := m.extractWithTimeout(ctx, extract.Request{
		Operation:   extract.OpSearch,
		Instruction: searchInstruction,
		Input:       fmt.Sprintf("Find products matching %q on the website %s.", query, site.URL()),
		WebSearch:   true,
		JSON:        true,
	})
	if err != nil {
		return nil, 0, &ExtractionError{Operation: extract.OpSearch, Target: site.Host, Err: err}
	}

	products, dropped, err := m.parseProducts(out, site)
	if err != nil {
		return nil, 0, &ExtractionError{Operation: extract.OpSearch, Target: site.Host, Err: err}
	}
	return products, dropped, nil
}

type productEntry struct {
	Name   string            `json:"name"`
	Price  json.RawMessage   `json:"price"`
	URL    string            `json:"url"`
	Images []json.RawMessage `json:"images"`
}

var errMissingName = errors.New("missing name")

// parseProducts turns one site's answer into records. Malformed entries
// are dropped and counted; an answer with no product list at all is an
// error.
func (m *Manager) parseProducts(out string, site Website) ([]ProductRecord, int, error) {
	raw, ok := findJSON(out)
	if !ok {
		return nil, 0, fmt.Errorf("%w: no JSON in answer", ErrUnparseable)
	}
	entries, ok := listField(raw, "products", "results", "items")
	if !ok {
		return nil, 0, fmt.Errorf("%w: no product list in answer", ErrUnparseable)
	}

	products := make([]ProductRecord, 0, len(entries))
	dropped := 0
	for i, e := range entries {
		p, err := parseProduct(e, site)
		if err != nil {
			dropped++
			metrics.EntriesDroppedTotal.WithLabelValues("search").Inc()
			m.logger.Warn("dropping product entry", "website", site.Host, "index", i, "reason", err)
			continue
		}
		products = append(products, p)
	}
	return products, dropped, nil
}

func parseProduct(raw json.RawMessage, site Website) (ProductRecord, error) {
	var e productEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return ProductRecord{}, fmt.Errorf("not a product object: %w", err)
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ProductRecord{}, errMissingName
	}

	p := ProductRecord{
		Name:    name,
		Website: site,
		Images:  []ImageRef{},
	}
	if len(e.Price) > 0 {
		p.Price, _ = stringish(e.Price, "amount", "value", "text")
	}
	if u, ok := resolveURL(site.URL(), e.URL); ok {
		p.URL = u
	}

	seen := make(map[string]bool)
	for _, img := range e.Images {
		s, ok := stringish(img, "url", "src")
		if !ok {
			continue
		}
		u, ok := resolveURL(site.URL(), s)
		if !ok || seen[u] {
			continue
		}
		seen[u] = true
		p.Images = append(p.Images, ImageRef{URL: u})
	}
	return p, nil
}
