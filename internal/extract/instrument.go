package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/pkg/ratelimit"
)

// Options configures Instrument.
type Options struct {
	// Limiter paces every call. Nil means unlimited.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

type instrumented struct {
	next    Provider
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// Instrument wraps p with rate limiting, metrics and debug logging.
func Instrument(p Provider, opts Options) Provider {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &instrumented{next: p, limiter: opts.Limiter, logger: opts.Logger}
}

func (i *instrumented) Extract(ctx context.Context, req Request) (string, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limiter: %w", ErrServiceUnavailable, err)
		metrics.RecordExtract(req.Operation, outcome(err), 0)
		return "", err
	}

	start := time.Now()
	out, err := i.next.Extract(ctx, req)
	elapsed := time.Since(start)

	metrics.RecordExtract(req.Operation, outcome(err), elapsed)
	if err != nil {
		i.logger.Debug("extraction failed", "operation", req.Operation, "duration", elapsed, "err", err)
		return "", err
	}
	i.logger.Debug("extraction complete", "operation", req.Operation, "duration", elapsed, "bytes", len(out))
	return out, nil
}

func (i *instrumented) RegisterDocument(ctx context.Context, doc Document) (string, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limiter: %w", ErrServiceUnavailable, err)
		metrics.RecordExtract(OpRegister, outcome(err), 0)
		return "", err
	}

	start := time.Now()
	id, err := i.next.RegisterDocument(ctx, doc)
	elapsed := time.Since(start)

	metrics.RecordExtract(OpRegister, outcome(err), elapsed)
	if err != nil {
		i.logger.Debug("document registration failed", "document", doc.Name, "duration", elapsed, "err", err)
		return "", err
	}
	i.logger.Debug("document registered", "document", doc.Name, "file_id", id, "duration", elapsed)
	return id, nil
}
