package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"

	"llmontreal/internal/app"
	"llmontreal/internal/bootstrap"
	"llmontreal/internal/model"
)

// terminalListener prints transcript entries and notices as they arrive.
type terminalListener struct {
	mu  sync.Mutex
	out io.Writer
}

var _ app.SessionListener = (*terminalListener)(nil)

func (l *terminalListener) MessageAppended(msg model.ChatMessage) {
	if msg.Sender == model.SenderUser {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s: %s\n", msg.Sender.Label(), msg.Text)
}

func (l *terminalListener) Notify(notice string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "* %s\n", notice)
}

func (l *terminalListener) StateChanged(app.SessionSnapshot) {}

func summaryCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("summary", flag.ContinueOnError)
	id := flags.String("id", "", "document id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	session := a.NewAnalysisSession(documentIDArg(*id, flags), nil)
	defer session.Close()

	if err := session.LoadSummary(ctx); err != nil {
		return errors.New(session.Snapshot().Summary.Error)
	}
	fmt.Fprintln(cio.out, session.Snapshot().Summary.Text)
	return nil
}

func regenerateCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	id := flags.String("id", "", "document id")
	yes := flags.Bool("y", false, "skip the confirmation prompt")
	if err := flags.Parse(args); err != nil {
		return err
	}
	session := a.NewAnalysisSession(documentIDArg(*id, flags), &terminalListener{out: cio.out})
	defer session.Close()

	if err := session.LoadSummary(ctx); err != nil {
		return errors.New(session.Snapshot().Summary.Error)
	}
	return regenerate(ctx, session, cio, *yes)
}

func regenerate(ctx context.Context, session *app.AnalysisSession, cio cmdIO, skipConfirm bool) error {
	session.OpenRegenerateConfirm()
	if !skipConfirm {
		answer, err := promptLine(cio, "Replace the current summary with a new one? [y/N] ")
		if err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			session.CloseRegenerateConfirm()
			return nil
		}
	}
	fmt.Fprintln(cio.out, app.MsgGeneratingSummary)

	err := session.RegenerateSummary(ctx)
	summary := session.Snapshot().Summary
	if err != nil {
		if summary.RegenerateError != "" {
			return errors.New(summary.RegenerateError)
		}
		return err
	}
	fmt.Fprintln(cio.out, summary.Text)
	return nil
}

func chatCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("chat", flag.ContinueOnError)
	id := flags.String("id", "", "document id")
	noSummary := flags.Bool("no-summary", false, "do not print the summary first")
	if err := flags.Parse(args); err != nil {
		return err
	}
	session := a.NewAnalysisSession(documentIDArg(*id, flags), &terminalListener{out: cio.out})
	defer session.Close()

	if !*noSummary {
		if err := session.LoadSummary(ctx); err != nil {
			fmt.Fprintln(cio.out, session.Snapshot().Summary.Error)
		} else {
			fmt.Fprintf(cio.out, "Summary:\n%s\n\n", session.Snapshot().Summary.Text)
		}
	}
	greeting := session.Snapshot().Messages[0]
	fmt.Fprintf(cio.out, "%s: %s\n", greeting.Sender.Label(), greeting.Text)
	fmt.Fprintln(cio.out, `(end a line with \ to continue on the next line, /regenerate for a new summary, /quit to leave)`)

	return chatLoop(ctx, session, cio)
}

// chatLoop feeds stdin to the session. A trailing backslash stands in for
// Shift+Enter.
func chatLoop(ctx context.Context, session *app.AnalysisSession, cio cmdIO) error {
	scanner := bufio.NewScanner(cio.in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		prompt := "> "
		if session.Snapshot().Input != "" {
			prompt = ". "
		}
		fmt.Fprint(cio.out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input failed: %w", err)
			}
			return nil
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		draft := session.Snapshot().Input

		if draft == "" {
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return nil
			case "/regenerate":
				if err := regenerate(ctx, session, cio, true); err != nil {
					fmt.Fprintln(cio.out, err)
				}
				continue
			}
		}

		if strings.HasSuffix(line, `\`) {
			session.SetInput(draft + strings.TrimSuffix(line, `\`))
			_ = session.HandleEnter(ctx, true)
			if preview := draftPreview(session.Snapshot().Input); preview != "" {
				fmt.Fprint(cio.out, preview)
			}
			continue
		}
		session.SetInput(draft + line)
		err := session.HandleEnter(ctx, false)
		switch {
		case err == nil, errors.Is(err, app.ErrInvalidInput):
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, app.ErrDocumentIDMissing):
			return err
		default:
			// the apology is already in the transcript
		}
	}
}

// draftPreview echoes the tail of a draft that no longer fits the composer.
// It returns "" while every line is still visible.
func draftPreview(draft string) string {
	lines := strings.Split(strings.TrimSuffix(draft, "\n"), "\n")
	rows := app.ComposerHeight(len(lines)) / app.ComposerLineHeight
	if len(lines) <= rows {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  (%d earlier lines)\n", len(lines)-rows)
	for _, l := range lines[len(lines)-rows:] {
		fmt.Fprintf(&b, "  | %s\n", l)
	}
	return b.String()
}
