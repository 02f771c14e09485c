package extract

import (
	"context"
	"net/http"
	"sync/atomic"
)

type statusKey struct{}

// statusSlot receives the status code of the last response of a call.
type statusSlot struct {
	code atomic.Int32
}

func (s *statusSlot) get() int {
	if s == nil {
		return 0
	}
	return int(s.code.Load())
}

func withStatusSlot(ctx context.Context) (context.Context, *statusSlot) {
	slot := &statusSlot{}
	return context.WithValue(ctx, statusKey{}, slot), slot
}

// statusTransport records response codes into the slot carried by the
// request context, so SDK errors can be classified without depending on
// their concrete error types.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if slot, ok := req.Context().Value(statusKey{}).(*statusSlot); ok {
			slot.code.Store(int32(resp.StatusCode))
		}
	}
	return resp, err
}

// recordingClient returns a shallow copy of hc whose transport records
// status codes.
func recordingClient(hc *http.Client) *http.Client {
	if hc == nil {
		hc = &http.Client{}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cp := *hc
	cp.Transport = &statusTransport{base: base}
	return &cp
}
