package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"bookresale/internal/app"
	"bookresale/internal/book"
	"bookresale/internal/config"
	"bookresale/internal/extract"
	"bookresale/internal/ingest"
)

// openApp is replaced in tests.
var openApp = func(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(c.Context, cfg, cfg.NewLogger(c.App.ErrWriter))
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bookctl",
		Usage: "resolve, track and price secondhand books by ISBN",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "resolve metadata and prices without storing anything",
				ArgsUsage: "ISBN",
				Action:    withApp(resolveAction),
			},
			{
				Name:      "add",
				Usage:     "resolve and store a book",
				ArgsUsage: "ISBN",
				Action:    withApp(addAction),
			},
			{
				Name:      "refresh",
				Usage:     "refresh the price of a stored book, or of every stale one",
				ArgsUsage: "[ISBN]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "stale", Usage: "refresh every book whose last check is older than --max-age"},
					&cli.DurationFlag{Name: "max-age", Value: 24 * time.Hour},
				},
				Action: withApp(refreshAction),
			},
			{
				Name:   "list",
				Usage:  "list stored books, newest first",
				Action: withApp(listAction),
			},
			{
				Name:      "delete",
				Usage:     "delete a stored book",
				ArgsUsage: "ISBN",
				Action:    withApp(deleteAction),
			},
			{
				Name:      "import",
				Usage:     "add every ISBN listed in a file, one per line (- for stdin)",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "concurrency", Value: 2},
				},
				Action: withApp(importAction),
			},
		},
	}
}

func withApp(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := openApp(c)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func isbnArg(c *cli.Context) (string, error) {
	isbn, err := book.NormalizeISBN(c.Args().First())
	if err != nil {
		return "", fmt.Errorf("%w: usage: bookctl %s %s", err, c.Command.Name, c.Command.ArgsUsage)
	}
	return isbn, nil
}

func resolveAction(c *cli.Context, a *app.App) error {
	isbn, err := isbnArg(c)
	if err != nil {
		return err
	}
	b, err := a.Pipeline.Resolve(c.Context, isbn)
	if err != nil {
		return err
	}
	return printBooks(c, b)
}

func addAction(c *cli.Context, a *app.App) error {
	isbn, err := isbnArg(c)
	if err != nil {
		return err
	}
	b, err := a.Service.Create(c.Context, isbn)
	if err != nil {
		return err
	}
	return printBooks(c, b)
}

func refreshAction(c *cli.Context, a *app.App) error {
	if c.Bool("stale") {
		n, err := a.Service.RefreshStale(c.Context, c.Duration("max-age"))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "refreshed %d books\n", n)
		return nil
	}

	isbn, err := isbnArg(c)
	if err != nil {
		return err
	}
	prices, err := a.Service.RefreshPrice(c.Context, isbn)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, prices)
	}
	if !prices.Found() {
		fmt.Fprintf(c.App.Writer, "%s: no offers (checked %s)\n", isbn, prices.LastPriceCheck.Format(time.RFC3339))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: sell %s, highest %s at %s\n", isbn,
		extract.FormatEUR(prices.SellPrice.Decimal),
		extract.FormatEUR(prices.HighestPrice.Decimal),
		prices.HighPayoutCompany,
	)
	return nil
}

func listAction(c *cli.Context, a *app.App) error {
	books, err := a.Service.List(c.Context)
	if err != nil {
		return err
	}
	return printBooks(c, books...)
}

func deleteAction(c *cli.Context, a *app.App) error {
	isbn, err := isbnArg(c)
	if err != nil {
		return err
	}
	b, err := a.Service.Delete(c.Context, isbn)
	if err != nil {
		return err
	}
	return printBooks(c, b)
}

func importAction(c *cli.Context, a *app.App) error {
	var r io.Reader = os.Stdin
	if name := c.Args().First(); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	isbns, err := ingest.ReadISBNs(r)
	if err != nil {
		return err
	}
	run := ingest.NewService(a.Service, ingest.Config{Concurrency: c.Int("concurrency")}, a.Logger).Run(c.Context, isbns)

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, run); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(c.App.Writer, "%s: read %d, created %d (%d priced), duplicates %d, failed %d\n",
			run.Status, run.Read, run.Created, run.Priced, run.Duplicates, len(run.Failed))
		for isbn, msg := range run.Failed {
			fmt.Fprintf(c.App.Writer, "  %s: %s\n", isbn, msg)
		}
	}
	if run.Status != ingest.StatusCompleted {
		return fmt.Errorf("import %s", strings.ToLower(run.Status))
	}
	return nil
}

func printBooks(c *cli.Context, books ...book.Book) error {
	if c.Bool("json") {
		if len(books) == 1 {
			return writeJSON(c.App.Writer, books[0])
		}
		return writeJSON(c.App.Writer, books)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISBN\tTITLE\tSOURCE\tSELL\tHIGHEST\tVENDOR")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ISBN, orDash(b.Title), b.Source,
			money(b.SellPrice), money(b.HighestPrice), orDash(b.HighPayoutCompany))
	}
	return tw.Flush()
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return extract.FormatEUR(d.Decimal)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
