package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/FranksOps/procura/internal/cache"
	"github.com/FranksOps/procura/internal/metrics"
)

type cached struct {
	next   Provider
	store  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// WithCache serves repeated Extract calls from store. Requests that
// reference a document and failed calls are never cached. Cache faults are
// logged and fall through to the service.
func WithCache(p Provider, store cache.Cache, ttl time.Duration, logger *slog.Logger) Provider {
	if store == nil {
		return p
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cached{next: p, store: store, ttl: ttl, logger: logger}
}

// cacheKey is the hex SHA-256 of the request's JSON form.
func cacheKey(req Request) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *cached) Extract(ctx context.Context, req Request) (string, error) {
	if req.DocumentID != "" {
		return c.next.Extract(ctx, req)
	}

	key := cacheKey(req)
	b, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return string(b), nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache lookup failed", "operation", req.Operation, "err", err)
	}

	out, err := c.next.Extract(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, []byte(out), c.ttl); err != nil {
		c.logger.Warn("cache store failed", "operation", req.Operation, "err", err)
	}
	return out, nil
}

func (c *cached) RegisterDocument(ctx context.Context, doc Document) (string, error) {
	return c.next.RegisterDocument(ctx, doc)
}
