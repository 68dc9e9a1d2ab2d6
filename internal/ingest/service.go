// Package ingest imports ISBN lists in bulk through the book service.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bookresale/internal/book"
)

const (
	StatusCompleted = "COMPLETED"
	StatusPartial   = "PARTIAL"
	StatusCancelled = "CANCELLED"
)

// Creator stores a new book for an ISBN; book.Service satisfies it.
type Creator interface {
	Create(ctx context.Context, isbn string) (book.Book, error)
}

type Config struct {
	Concurrency int
}

type Service struct {
	creator Creator
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(creator Creator, cfg Config, logger *slog.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		creator: creator,
		cfg:     cfg,
		logger:  logger.With("component", "ingest"),
		now:     time.Now,
	}
}

// ReadISBNs returns one ISBN per non-blank line, without comments (#) and
// without repeats, in first-seen order.
func ReadISBNs(r io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		isbn := strings.TrimSpace(line)
		if isbn == "" || seen[isbn] {
			continue
		}
		seen[isbn] = true
		out = append(out, isbn)
	}
	return out, sc.Err()
}

// Run creates every ISBN. Already stored ISBNs are counted as duplicates; other
// failures are recorded per ISBN and do not stop the import.
func (s *Service) Run(ctx context.Context, isbns []string) Run {
	run := Run{
		StartedAt: s.now(),
		Read:      len(isbns),
		Failed:    map[string]string{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, isbn := range isbns {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			b, err := s.creator.Create(gctx, isbn)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				run.Created++
				if b.SellPrice.Valid {
					run.Priced++
				}
			case errors.Is(err, book.ErrDuplicate):
				run.Duplicates++
			default:
				run.Failed[isbn] = err.Error()
				s.logger.Warn("import failed", "isbn", isbn, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = s.now()
	switch {
	case ctx.Err() != nil:
		run.Status = StatusCancelled
	case len(run.Failed) > 0:
		run.Status = StatusPartial
	default:
		run.Status = StatusCompleted
	}
	s.logger.Info("import finished",
		"status", run.Status,
		"read", run.Read,
		"created", run.Created,
		"duplicates", run.Duplicates,
		"failed", len(run.Failed),
	)
	return run
}
