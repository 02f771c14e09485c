//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/procura/internal/cache"
	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/procurement"
	"github.com/FranksOps/procura/internal/report"
	"github.com/FranksOps/procura/internal/storage"
	"github.com/FranksOps/procura/pkg/httpclient"
	"github.com/FranksOps/procura/pkg/ratelimit"
)

// mockBackend is an in-memory storage.Backend for verifying journal writes.
type mockBackend struct {
	mu      sync.Mutex
	records []*storage.Record
}

func (m *mockBackend) Save(ctx context.Context, rec *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if filter.Match(m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	return filter.Page(out), nil
}

func (m *mockBackend) Close() error { return nil }

func (m *mockBackend) kinds() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, r := range m.records {
		out[r.Kind]++
	}
	return out
}

// messagesAPI is a stand-in for the Anthropic Messages endpoint. It routes
// on the system instruction and the user prompt.
type messagesAPI struct {
	mu    sync.Mutex
	calls map[string]int
}

func (s *messagesAPI) count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *messagesAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var system, prompt string
	if len(req.System) > 0 {
		system = req.System[0].Text
	}
	if len(req.Messages) > 0 && len(req.Messages[0].Content) > 0 {
		prompt = req.Messages[0].Content[0].Text
	}

	route, status, text := "unknown", http.StatusOK, ""
	switch {
	case strings.Contains(system, "list the vendor websites"):
		route, text = "plan", `{"websites": ["vendorA.com", "https://vendorB.com", "vendorA.com"]}`
	case strings.Contains(system, "extracting product listings"):
		route = "search"
		if strings.Contains(prompt, "vendorB.com") {
			status = http.StatusServiceUnavailable
			break
		}
		text = "```json\n" + `{"products": [
			{"name": "Nitrile Gloves M", "price": "$10.00", "url": "/p/1", "images": ["/img/1.jpg"]},
			{"name": "Nitrile Gloves L", "price": "$12.50", "url": "/p/2"},
			{"price": "$3.00"}
		]}` + "\n```"
	case strings.Contains(system, "Summarize"):
		route, text = "summary", "Two nitrile glove listings from vendorA.com between $10.00 and $12.50."
	case strings.Contains(system, "compliance officer"):
		route = "compliance"
		if strings.Contains(prompt, "Product: Latex") {
			text = `{"compliant": false, "explanation": "Latex is excluded by section 2."}`
		} else {
			text = `{"compliant": true, "explanation": "Powder-free nitrile meets section 1."}`
		}
	}

	s.mu.Lock()
	s.calls[route]++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		fmt.Fprint(w, `{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)
		return
	}
	content, _ := json.Marshal(text)
	fmt.Fprintf(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":%s}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":20}}`, content)
}

func newManager(t *testing.T, api *messagesAPI, journal storage.Backend) *procurement.Manager {
	t.Helper()

	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hc, err := httpclient.New(httpclient.Config{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to create http client: %v", err)
	}

	client, err := extract.NewAnthropic(extract.AnthropicConfig{
		APIKey:     "test-key",
		HTTPClient: hc.Client,
		BaseURL:    ts.URL,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	store := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	var provider extract.Provider = extract.Instrument(client, extract.Options{
		Limiter: ratelimit.NewLimiter(0, 0, 0),
		Logger:  logger,
	})
	provider = extract.WithCache(provider, store, time.Minute, logger)

	return procurement.New(provider, procurement.Options{
		Concurrency: 2,
		TaskTimeout: 5 * time.Second,
		Journal:     journal,
		Logger:      logger,
	})
}

func TestIntegration_Search(t *testing.T) {
	api := &messagesAPI{calls: make(map[string]int)}
	journal := &mockBackend{}
	m := newManager(t, api, journal)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rep, err := m.Search(ctx, "nitrile gloves")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if rep.TotalProducts != 2 || len(rep.Products) != 2 {
		t.Fatalf("expected 2 products, got %d (%d listed)", rep.TotalProducts, len(rep.Products))
	}
	if rep.Products[0].URL != "https://vendorA.com/p/1" {
		t.Errorf("expected resolved product URL, got %q", rep.Products[0].URL)
	}
	if len(rep.Products[0].Images) != 1 || rep.Products[0].Images[0].URL != "https://vendorA.com/img/1.jpg" {
		t.Errorf("expected resolved image, got %+v", rep.Products[0].Images)
	}
	if !rep.PriceRange.Known || rep.PriceRange.Min != "$10.00" || rep.PriceRange.Max != "$12.50" {
		t.Errorf("unexpected price range: %+v", rep.PriceRange)
	}
	if !strings.HasPrefix(rep.Summary, "Two nitrile glove listings") {
		t.Errorf("expected service summary, got %q", rep.Summary)
	}

	// Duplicates are removed by the planner; vendorB fails without sinking the search.
	if len(rep.Sites) != 2 {
		t.Fatalf("expected 2 site outcomes, got %d", len(rep.Sites))
	}
	if rep.Sites[0].Products != 2 || rep.Sites[0].Dropped != 1 {
		t.Errorf("unexpected vendorA outcome: %+v", rep.Sites[0])
	}
	if rep.Sites[1].Error == "" {
		t.Errorf("expected vendorB failure, got %+v", rep.Sites[1])
	}

	if api.count("plan") != 1 || api.count("search") != 2 || api.count("summary") != 1 {
		t.Errorf("unexpected call counts: %v", api.calls)
	}
	if got := journal.kinds()[storage.KindSearch]; got != 1 {
		t.Errorf("expected 1 search record, got %d", got)
	}

	// A repeat is answered from the cache, except the failed site.
	if _, err := m.Search(ctx, "nitrile gloves"); err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if api.count("plan") != 1 || api.count("search") != 3 {
		t.Errorf("expected cached plan and vendorA, got %v", api.calls)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, report.FormatText, rep); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"Total:         2 products", "Price range:   $10.00 - $12.50", "vendorB.com: failed"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, buf.String())
		}
	}
}

func TestIntegration_Compliance(t *testing.T) {
	api := &messagesAPI{calls: make(map[string]int)}
	journal := &mockBackend{}
	m := newManager(t, api, journal)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := m.CheckComplianceForProducts(ctx, []string{"Nitrile Gloves"}); err == nil {
		t.Fatal("expected error before any document is uploaded")
	}

	path := filepath.Join(t.TempDir(), "spec.txt")
	if err := os.WriteFile(path, []byte("1. Gloves must be powder-free nitrile.\n2. Latex is excluded.\n"), 0o644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	fileID, err := m.UploadComplianceDoc(ctx, path, procurement.DocGeneralSpecification)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if fileID == "" {
		t.Fatal("expected a file id")
	}

	results, err := m.CheckComplianceForProducts(ctx, []string{"Nitrile Gloves", "Latex Gloves"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Compliant || results[1].Compliant {
		t.Errorf("unexpected verdicts: %+v", results)
	}
	if results[1].Explanation != "Latex is excluded by section 2." {
		t.Errorf("unexpected explanation: %q", results[1].Explanation)
	}

	docs, err := journal.Query(ctx, storage.Filter{Kind: storage.KindDocument, Subject: fileID, Limit: 1})
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected a document record for %s, got %d (%v)", fileID, len(docs), err)
	}
	if docs[0].Status != string(procurement.StatusReady) {
		t.Errorf("expected ready document, got %q", docs[0].Status)
	}
	if got := journal.kinds()[storage.KindCompliance]; got != 1 {
		t.Errorf("expected 1 compliance record, got %d", got)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, report.FormatText, journal.records); err != nil {
		t.Fatalf("history render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "compliance") {
		t.Errorf("expected compliance record in history, got:\n%s", buf.String())
	}
}
