package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"llmontreal/internal/api"
	"llmontreal/internal/app"
	"llmontreal/internal/bootstrap"
)

func logsCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("logs", flag.ContinueOnError)
	output := flags.String("o", api.DefaultLogsFileName, "output file, - for stdout")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *output == "-" {
		_, err := a.Client.DownloadLogs(ctx, cio.out)
		return err
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", *output, err)
	}
	n, err := a.Client.DownloadLogs(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(*output)
		return err
	}
	fmt.Fprintf(cio.out, "Saved %s to %s\n", humanize.Bytes(uint64(n)), *output)
	return nil
}

func themeCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("theme", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	switch arg := flags.Arg(0); arg {
	case "":
	case "toggle":
		if _, err := a.Theme.Toggle(ctx); err != nil {
			return err
		}
	default:
		theme, ok := app.ParseTheme(arg)
		if !ok {
			return fmt.Errorf("%w: theme must be light, dark or toggle", app.ErrInvalidInput)
		}
		if err := a.Theme.SetTheme(ctx, theme); err != nil {
			return err
		}
	}
	fmt.Fprintln(cio.out, a.Theme.Theme())
	return nil
}
