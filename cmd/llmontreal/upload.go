package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"llmontreal/internal/app"
	"llmontreal/internal/bootstrap"
	"llmontreal/internal/model"
	"llmontreal/internal/pkg/pdfextract"
)

func uploadCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("upload", flag.ContinueOnError)
	checkText := flags.Bool("check-text", false, "warn before uploading a PDF without a text layer")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("expected exactly one file path")
	}

	file, err := app.FileFromPath(flags.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(cio.out, "%s (%s, %s)\n", file.Name, model.FileTypeLabel(app.ResolveUploadType(file)), humanize.Bytes(uint64(file.Size)))

	if *checkText && app.ResolveUploadType(file) == app.MimePDF {
		if warning := pdfTextWarning(file); warning != "" {
			fmt.Fprintln(cio.out, warning)
		}
	}

	task := a.NewUploadTask()
	defer task.Close()
	task.OnChange(progressPrinter(cio.out))

	// interrupting the command cancels the transfer
	stop := context.AfterFunc(ctx, task.Cancel)
	defer stop()

	if err := task.SelectFile(ctx, file); err != nil && !errors.Is(err, app.ErrInvalidFile) {
		return err
	}
	task.Wait()

	snap := task.Snapshot()
	switch snap.Status {
	case app.UploadSuccess:
		if snap.Result != nil && snap.Result.ID != "" {
			fmt.Fprintf(cio.out, "Document id: %s\n", snap.Result.ID)
		}
		return nil
	case app.UploadCancelled:
		return context.Canceled
	default:
		return errors.New(snap.Message)
	}
}

func pdfTextWarning(file model.File) string {
	rc, err := file.Open()
	if err != nil {
		return fmt.Sprintf("warning: could not read %s: %v", file.Name, err)
	}
	defer rc.Close()

	report, err := pdfextract.Inspect(rc, 80)
	if err != nil {
		return fmt.Sprintf("warning: could not inspect PDF text: %v", err)
	}
	if !report.HasText() {
		return fmt.Sprintf("warning: %s has no extractable text on %d page(s); the summary may be empty", file.Name, report.Pages)
	}
	return ""
}

// progressPrinter renders upload snapshots as status lines and a bar.
func progressPrinter(w io.Writer) func(app.UploadSnapshot) {
	last := ""
	return func(s app.UploadSnapshot) {
		var line string
		if s.Status == app.UploadUploading {
			line = fmt.Sprintf("[%s] %3d%%", progressBar(s.Progress, 30), s.Progress)
		} else {
			line = s.Message
		}
		if line == "" || line == last {
			return
		}
		last = line
		fmt.Fprintln(w, line)
	}
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
