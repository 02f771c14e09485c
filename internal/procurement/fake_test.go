package procurement

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/FranksOps/procura/internal/extract"
)

// fakeProvider answers extractions through handle and registers documents
// through register. Both default to canned answers.
type fakeProvider struct {
	mu       sync.Mutex
	requests []extract.Request
	docs     []extract.Document

	handle   func(ctx context.Context, req extract.Request) (string, error)
	register func(ctx context.Context, doc extract.Document) (string, error)

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeProvider) Extract(ctx context.Context, req extract.Request) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.handle == nil {
		return "", nil
	}
	return f.handle(ctx, req)
}

func (f *fakeProvider) RegisterDocument(ctx context.Context, doc extract.Document) (string, error) {
	f.mu.Lock()
	f.docs = append(f.docs, doc)
	f.mu.Unlock()

	if f.register == nil {
		return "files/doc-1", nil
	}
	return f.register(ctx, doc)
}

func (f *fakeProvider) calls(op string) []extract.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []extract.Request
	for _, r := range f.requests {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}

// byOperation routes each request to the answer for its operation.
func byOperation(answers map[string]func(ctx context.Context, req extract.Request) (string, error)) func(context.Context, extract.Request) (string, error) {
	return func(ctx context.Context, req extract.Request) (string, error) {
		if h, ok := answers[req.Operation]; ok {
			return h(ctx, req)
		}
		return "", nil
	}
}

func answer(s string) func(context.Context, extract.Request) (string, error) {
	return func(context.Context, extract.Request) (string, error) { return s, nil }
}

func fail(err error) func(context.Context, extract.Request) (string, error) {
	return func(context.Context, extract.Request) (string, error) { return "", err }
}

// blockUntilDone simulates a service that never answers.
func blockUntilDone(ctx context.Context, _ extract.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func inputContains(req extract.Request, s string) bool {
	return strings.Contains(req.Input, s)
}
