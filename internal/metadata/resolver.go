package metadata

import (
	"context"
	"log/slog"
	"time"

	"bookresale/internal/deadline"
	"bookresale/internal/extract"
)

// Provider is a bibliographic data source. Lookup returns the provider's raw
// payload; normalisation happens in the extract package.
type Provider interface {
	Source() extract.Source
	Lookup(ctx context.Context, isbn string) ([]byte, error)
}

// Pacer is implemented by providers behind a rate limited upstream. The
// provider timeout starts once Pace returns.
type Pacer interface {
	Pace(ctx context.Context) (context.Context, error)
}

type Resolver struct {
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewResolver queries providers in the order given; the first one is the primary.
func NewResolver(timeout time.Duration, logger *slog.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		providers: providers,
		timeout:   timeout,
		logger:    logger.With("component", "metadata_resolver"),
	}
}

// Resolve returns the first non-empty normalised result. Provider errors and
// timeouts only move resolution on to the next provider; when nobody knows the
// ISBN the result is EmptyMetadata.
func (r *Resolver) Resolve(ctx context.Context, isbn string) extract.Metadata {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			break
		}
		log := r.logger.With("provider", string(p.Source()), "isbn", isbn)

		callCtx := ctx
		if pacer, ok := p.(Pacer); ok {
			paced, err := pacer.Pace(ctx)
			if err != nil {
				log.Warn("metadata provider not called", "error", err)
				continue
			}
			callCtx = paced
		}

		payload, err := deadline.Call(callCtx, r.timeout, func(ctx context.Context) ([]byte, error) {
			return p.Lookup(ctx, isbn)
		})
		if err != nil {
			log.Warn("metadata provider unavailable", "error", err)
			continue
		}

		m, ok := extract.NormalizeMetadata(p.Source(), payload, isbn)
		if !ok {
			log.Debug("metadata provider has no record")
			continue
		}
		log.Info("metadata resolved", "title", m.Title)
		return m
	}

	r.logger.Info("no metadata found", "isbn", isbn)
	return extract.EmptyMetadata()
}
