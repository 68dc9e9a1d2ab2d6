package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookresale/internal/book"
	"bookresale/internal/config"
	"bookresale/internal/httpx"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(handler *book.HTTPHandler, db pinger) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("POST /v1/books", handler.Create)
	router.HandleFunc("GET /v1/books", handler.List)
	router.HandleFunc("GET /v1/books/check", handler.Check)
	router.HandleFunc("GET /v1/books/{isbn}", handler.Get)
	router.HandleFunc("PATCH /v1/books/{isbn}", handler.UpdatePrices)
	router.HandleFunc("DELETE /v1/books/{isbn}", handler.Delete)
	router.HandleFunc("POST /v1/books/{isbn}/refresh-price", handler.RefreshPrice)
	router.HandleFunc("GET /v1/prices/{isbn}", handler.PreviewPrices)

	return router
}

// withMiddleware applies the standard chain, outermost first.
func withMiddleware(h http.Handler, cfg config.Config, logger *slog.Logger) http.Handler {
	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	return httpx.Chain(h,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}
