package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"llmontreal/internal/bootstrap"
	"llmontreal/internal/pkg/logger"
)

type command func(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error

type cmdIO struct {
	in  io.Reader
	out io.Writer
}

var commands = map[string]command{
	"login":      loginCmd,
	"register":   registerCmd,
	"logout":     logoutCmd,
	"whoami":     whoamiCmd,
	"documents":  documentsCmd,
	"document":   documentCmd,
	"upload":     uploadCmd,
	"summary":    summaryCmd,
	"regenerate": regenerateCmd,
	"chat":       chatCmd,
	"logs":       logsCmd,
	"theme":      themeCmd,
}

func main() {
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", name)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx)
	if err != nil {
		logger.Errorf("bootstrap failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Errorf("close resources failed: %v", err)
		}
	}()

	if err := cmd(ctx, app, os.Args[2:], cmdIO{in: os.Stdin, out: os.Stdout}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		}
		_ = app.Close()
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: llmontreal <command> [flags]

commands:
  login       sign in and store the session token
  register    create an account and sign in
  logout      forget the stored session
  whoami      show the signed-in user and token expiry
  documents   list uploaded documents
  document    show one document
  upload      upload a PDF, DOCX, PNG, JPG, TXT or ZIP file
  summary     print the summary of a document
  regenerate  ask for a new summary and wait for it
  chat        ask questions about a document
  logs        download the API request log as CSV
  theme       show, set or toggle the color theme

run "llmontreal <command> -h" for the flags of a command
`)
}
