package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"bookresale/internal/app"
	"bookresale/internal/book"
	"bookresale/internal/extract"
	"bookresale/internal/pipeline"
	"bookresale/internal/price"
)

type fixedMetadata struct{}

func (fixedMetadata) Resolve(ctx context.Context, isbn string) extract.Metadata {
	return extract.Metadata{Title: "Die Verwandlung", Authors: []string{"Franz Kafka"}, Source: extract.SourceGoogle}
}

type fixedPrices struct{}

func (fixedPrices) Resolve(ctx context.Context, isbn string) price.Result {
	res := price.Aggregate([]price.VendorQuote{
		{Vendor: "momox", Price: decimal.RequireFromString("0.45")},
		{Vendor: "rebuy", Price: decimal.RequireFromString("1.30")},
	})
	res.CheckedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return res
}

// runCLI executes bookctl against one shared in-memory app.
func runCLI(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	prev := openApp
	openApp = func(c *cli.Context) (*app.App, error) { return a, nil }
	t.Cleanup(func() { openApp = prev })

	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	cliApp.ErrWriter = io.Discard
	err := cliApp.Run(append([]string{"bookctl"}, args...))
	return out.String(), err
}

func newTestApp() *app.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(fixedMetadata{}, fixedPrices{}, logger)
	return &app.App{
		Service:  book.NewService(book.NewMemoryRepo(), p, logger),
		Pipeline: p,
		Logger:   logger,
	}
}

func TestBookctl_AddListDelete(t *testing.T) {
	a := newTestApp()

	out, err := runCLI(t, a, "add", "9783150099001")
	require.NoError(t, err)
	assert.Contains(t, out, "Die Verwandlung")
	assert.Contains(t, out, "1,30 €")

	_, err = runCLI(t, a, "add", "9783150099001")
	assert.ErrorIs(t, err, book.ErrDuplicate)

	out, err = runCLI(t, a, "--json", "list")
	require.NoError(t, err)
	var books []book.Book
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "rebuy", books[0].HighPayoutCompany)

	_, err = runCLI(t, a, "delete", "9783150099001")
	require.NoError(t, err)

	_, err = runCLI(t, a, "delete", "9783150099001")
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestBookctl_ResolveDoesNotStore(t *testing.T) {
	a := newTestApp()

	out, err := runCLI(t, a, "--json", "resolve", "9783150099001")
	require.NoError(t, err)

	var b book.Book
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "9783150099001", b.ISBN)
	assert.True(t, b.SellPrice.Decimal.Equal(decimal.RequireFromString("0.45")))

	books, err := a.Service.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBookctl_MissingISBN(t *testing.T) {
	_, err := runCLI(t, newTestApp(), "add")
	assert.ErrorIs(t, err, book.ErrInvalidISBN)
}

func TestBookctl_Refresh(t *testing.T) {
	a := newTestApp()
	_, err := runCLI(t, a, "add", "9783150099001")
	require.NoError(t, err)

	out, err := runCLI(t, a, "refresh", "9783150099001")
	require.NoError(t, err)
	assert.Contains(t, out, "highest 1,30 € at rebuy")

	out, err = runCLI(t, a, "refresh", "--stale", "--max-age", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "refreshed 1 books")
}

func TestBookctl_Import(t *testing.T) {
	a := newTestApp()
	_, err := runCLI(t, a, "add", "111")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "isbns.txt")
	require.NoError(t, os.WriteFile(path, []byte("111\n222\n# skip\n333\n222\n"), 0o644))

	out, err := runCLI(t, a, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED: read 3, created 2 (2 priced), duplicates 1, failed 0")
}
