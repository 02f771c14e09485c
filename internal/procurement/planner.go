package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/storage"
)

// Plan asks the service which vendor sites to inspect for query. The
// result is deduplicated by host, keeps the service's order and is capped
// at MaxWebsites. An empty list is a valid answer.
func (m *Manager) Plan(ctx context.Context, query string) ([]Website, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &PlanningError{Query: query, Err: ErrEmptyQuery}
	}

	m.report("plan", "planning search strategy")
	out, err := m.extractWithTimeout(ctx, extract.Request{
		Operation:   extract.OpPlan,
		Instruction: planInstruction,
		Input:       fmt.Sprintf("Product query: %s", query),
		WebSearch:   true,
		JSON:        true,
	})
	if err != nil {
		return nil, &PlanningError{Query: query, Err: err}
	}

	candidates, ok := planCandidates(out)
	if !ok {
		return nil, &PlanningError{Query: query, Err: fmt.Errorf("%w: %.200q", ErrUnparseable, out)}
	}

	seen := make(map[string]bool)
	websites := make([]Website, 0, len(candidates))
	for _, c := range candidates {
		w, err := ParseWebsite(c)
		if err != nil {
			m.logger.Warn("dropping planned website", "candidate", c, "reason", err)
			metrics.EntriesDroppedTotal.WithLabelValues("plan").Inc()
			continue
		}
		if seen[w.Host] {
			continue
		}
		seen[w.Host] = true
		websites = append(websites, w)
	}

	if len(websites) > m.maxWebsites {
		m.logger.Info("truncating planned websites", "planned", len(websites), "max", m.maxWebsites)
		websites = websites[:m.maxWebsites]
	}

	m.report("plan", fmt.Sprintf("planned %d websites", len(websites)))
	return websites, nil
}

// planCandidates pulls website strings out of the planner's answer: JSON
// first, then HTML links, then one candidate per text line. ok is false
// when the answer has no recognizable structure at all.
func planCandidates(out string) ([]string, bool) {
	if raw, found := findJSON(out); found {
		entries, ok := listField(raw, "websites", "sites", "vendors")
		if ok {
			candidates := make([]string, 0, len(entries))
			for _, e := range entries {
				if s, ok := stringish(e, "url", "website", "domain"); ok && s != "" {
					candidates = append(candidates, s)
				}
			}
			return candidates, true
		}
	}

	if links := htmlAttrs(out, "a[href]", "href"); len(links) > 0 {
		return links, true
	}

	var candidates []string
	for _, line := range strings.Split(out, "\n") {
		line = listMarkerRe.ReplaceAllString(line, "")
		if m := markdownLinkRe.FindStringSubmatch(line); m != nil {
			candidates = append(candidates, m[1])
			continue
		}
		for _, field := range strings.Fields(line) {
			if _, err := ParseWebsite(field); err == nil {
				candidates = append(candidates, field)
				break
			}
		}
	}
	return candidates, len(candidates) > 0
}

// Search plans then runs query.
func (m *Manager) Search(ctx context.Context, query string) (*SearchReport, error) {
	start := m.now()
	websites, err := m.Plan(ctx, query)
	if err != nil {
		m.record(ctx, storage.KindSearch, strings.TrimSpace(query), start, nil, err)
		return nil, err
	}
	return m.run(ctx, query, websites, start)
}
