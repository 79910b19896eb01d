package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"llmontreal/internal/app"
	"llmontreal/internal/bootstrap"
	"llmontreal/internal/model"
)

func documentsCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("documents", flag.ContinueOnError)
	page := flags.Int("page", 0, "zero-based page number")
	size := flags.Int("size", app.DefaultPageSize, "page size")
	status := flags.String("status", "", "filter by status: PENDENTE, PROCESSANDO, COMPLETO or ERRO")
	sort := flags.String("sort", "", `sort expression, e.g. "createdAt,desc"`)
	search := flags.String("search", "", "only show file names containing this text")
	if err := flags.Parse(args); err != nil {
		return err
	}
	a.Documents.Search().SetTerm(*search)

	result, err := a.Documents.List(ctx, app.ListDocumentsInput{
		Page:   *page,
		Size:   *size,
		Status: *status,
		Sort:   *sort,
	})
	if err != nil {
		return err
	}
	renderDocuments(cio.out, result, time.Now())
	return nil
}

func documentCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("document", flag.ContinueOnError)
	id := flags.String("id", "", "document id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	doc, err := a.Documents.Get(ctx, documentIDArg(*id, flags))
	if err != nil {
		return err
	}
	renderDocument(cio.out, doc, time.Now())
	return nil
}

// documentIDArg accepts the id either as -id or as the first positional arg.
func documentIDArg(flagValue string, flags *flag.FlagSet) string {
	if flagValue != "" {
		return flagValue
	}
	return flags.Arg(0)
}

func renderDocuments(w io.Writer, page *model.Page[model.Document], now time.Time) {
	if page.Empty || len(page.Content) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tUPLOADED")
	for _, doc := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			doc.ID,
			doc.FileName,
			model.FileTypeLabel(doc.FileType),
			doc.Status.Label(),
			relTime(doc.CreatedAt, now),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d of %d, %d of %d documents\n",
		page.Number+1, max(page.TotalPages, 1), page.NumberOfElements, page.TotalElements)
}

func renderDocument(w io.Writer, doc *model.Document, now time.Time) {
	fmt.Fprintf(w, "ID:       %s\n", strconv.FormatInt(doc.ID, 10))
	fmt.Fprintf(w, "Name:     %s\n", doc.FileName)
	fmt.Fprintf(w, "Type:     %s\n", model.FileTypeLabel(doc.FileType))
	fmt.Fprintf(w, "Status:   %s\n", doc.Status.Label())
	fmt.Fprintf(w, "Uploaded: %s\n", relTime(doc.CreatedAt, now))
	if doc.Summary != nil && *doc.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", *doc.Summary)
	}
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
