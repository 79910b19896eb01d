package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"llmontreal/internal/model"
	"llmontreal/internal/pkg/logger"
)

const (
	MsgGreeting            = "Hello! Ask a question about the document to get started."
	MsgDocumentIDMissing   = "Document id not found."
	MsgSummaryLoadFailed   = "Could not load the document summary."
	MsgGeneratingSummary   = "Generating a new summary, please wait a moment..."
	MsgSummaryRegenerated  = "Summary regenerated successfully!"
	MsgRegenerateFailed    = "Could not regenerate the summary. Please try again."
	MsgSummaryUpdateFailed = "Failed to update the summary."
	MsgChatFailed          = "Sorry, something went wrong while processing your question. Please try again."
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultPollMaxAttempts = 30

	ComposerMinHeight  = 48
	ComposerMaxHeight  = 160
	ComposerLineHeight = 24
)

type SummaryBackend interface {
	GetSummary(ctx context.Context, documentID string) (string, error)
	RegenerateSummary(ctx context.Context, documentID string) error
	Chat(ctx context.Context, documentID, prompt string) (*model.ChatMessage, error)
}

// SessionListener receives the side effects a front end renders: new
// transcript entries, transient notices and state changes.
type SessionListener interface {
	MessageAppended(msg model.ChatMessage)
	Notify(notice string)
	StateChanged(snap SessionSnapshot)
}

type nopListener struct{}

func (nopListener) MessageAppended(model.ChatMessage) {}
func (nopListener) Notify(string)                     {}
func (nopListener) StateChanged(SessionSnapshot)      {}

type SessionOptions struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	Listener        SessionListener
}

type SummaryState struct {
	Text            string
	Error           string
	IsRegenerating  bool
	RegenerateError string
	ConfirmOpen     bool
}

type SessionSnapshot struct {
	DocumentID string
	Messages   []model.ChatMessage
	Input      string
	IsLoading  bool
	Summary    SummaryState
}

// AnalysisSession is the per-document summary and chat state. It lives from
// NewAnalysisSession until Close; nothing in it is persisted.
type AnalysisSession struct {
	backend      SummaryBackend
	documentID   string
	pollInterval time.Duration
	maxAttempts  int
	listener     SessionListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	messages []model.ChatMessage
	input    string
	loading  bool
	summary  SummaryState
}

func NewAnalysisSession(backend SummaryBackend, documentID string, opts SessionOptions) *AnalysisSession {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollMaxAttempts <= 0 {
		opts.PollMaxAttempts = DefaultPollMaxAttempts
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &AnalysisSession{
		backend:      backend,
		documentID:   strings.TrimSpace(documentID),
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.PollMaxAttempts,
		listener:     opts.Listener,
		ctx:          ctx,
		cancel:       cancel,
		messages: []model.ChatMessage{
			{Sender: model.SenderAssistant, Text: MsgGreeting},
		},
	}
}

func (s *AnalysisSession) DocumentID() string {
	return s.documentID
}

func (s *AnalysisSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AnalysisSession) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		DocumentID: s.documentID,
		Messages:   append([]model.ChatMessage(nil), s.messages...),
		Input:      s.input,
		IsLoading:  s.loading,
		Summary:    s.summary,
	}
}

// mutate applies fn unless the session is closed and publishes the result.
// appended, when non-nil, is reported as a new transcript entry.
func (s *AnalysisSession) mutate(fn func() *model.ChatMessage) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	appended := fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if appended != nil {
		s.listener.MessageAppended(*appended)
	}
	s.listener.StateChanged(snap)
	return true
}

// runContext ties a call to both the caller's context and the session.
func (s *AnalysisSession) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *AnalysisSession) LoadSummary(ctx context.Context) error {
	if s.documentID == "" {
		s.mutate(func() *model.ChatMessage {
			s.summary.Text = ""
			s.summary.Error = MsgDocumentIDMissing
			return nil
		})
		return ErrDocumentIDMissing
	}
	if !s.mutate(func() *model.ChatMessage {
		s.summary.Error = ""
		s.summary.Text = ""
		return nil
	}) {
		return ErrClosed
	}

	runCtx, done := s.runContext(ctx)
	defer done()

	text, err := s.backend.GetSummary(runCtx, s.documentID)
	if err != nil {
		logger.Warnf("load summary for document %s failed: %v", s.documentID, err)
		s.mutate(func() *model.ChatMessage {
			s.summary.Text = ""
			s.summary.Error = MsgSummaryLoadFailed
			return nil
		})
		return fmt.Errorf("load summary failed: %w", err)
	}
	s.mutate(func() *model.ChatMessage {
		s.summary.Text = text
		return nil
	})
	return nil
}

func (s *AnalysisSession) OpenRegenerateConfirm() {
	s.mutate(func() *model.ChatMessage {
		s.summary.RegenerateError = ""
		s.summary.ConfirmOpen = true
		return nil
	})
}

// CloseRegenerateConfirm dismisses the dialog. It refuses while a
// regeneration is running and reports whether the dialog closed.
func (s *AnalysisSession) CloseRegenerateConfirm() bool {
	closed := false
	s.mutate(func() *model.ChatMessage {
		if s.summary.IsRegenerating {
			return nil
		}
		s.summary.ConfirmOpen = false
		closed = true
		return nil
	})
	return closed
}

// RegenerateSummary asks for a new summary and polls until it differs from
// the one shown before, or the attempt budget runs out. It blocks for the
// whole poll.
func (s *AnalysisSession) RegenerateSummary(ctx context.Context) error {
	if s.documentID == "" {
		return ErrDocumentIDMissing
	}

	var oldSummary string
	busy := false
	started := s.mutate(func() *model.ChatMessage {
		if s.summary.IsRegenerating {
			busy = true
			return nil
		}
		s.summary.IsRegenerating = true
		s.summary.RegenerateError = ""
		oldSummary = s.summary.Text
		s.summary.Text = MsgGeneratingSummary
		s.wg.Add(1)
		return nil
	})
	if !started {
		return ErrClosed
	}
	if busy {
		return ErrBusy
	}
	defer s.wg.Done()

	runCtx, done := s.runContext(ctx)
	defer done()

	if err := s.backend.RegenerateSummary(runCtx, s.documentID); err != nil {
		if runCtx.Err() != nil {
			s.finishRegeneration(false, "")
			return runCtx.Err()
		}
		// long generations time out at the gateway while the backend keeps working
		logger.Infof("regenerate request for document %s failed, polling anyway: %v", s.documentID, err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		select {
		case <-runCtx.Done():
			s.finishRegeneration(false, "")
			return runCtx.Err()
		case <-ticker.C:
		}

		text, err := s.backend.GetSummary(runCtx, s.documentID)
		if err != nil {
			if runCtx.Err() != nil {
				s.finishRegeneration(false, "")
				return runCtx.Err()
			}
			logger.Debugf("poll summary attempt %d failed: %v", attempt+1, err)
			text = oldSummary
		}
		if text != oldSummary && text != "" {
			s.finishRegeneration(true, text)
			return nil
		}
	}

	s.finishRegeneration(false, "")
	return ErrRegenerateTimeout
}

func (s *AnalysisSession) finishRegeneration(success bool, text string) {
	applied := s.mutate(func() *model.ChatMessage {
		s.summary.IsRegenerating = false
		if success {
			s.summary.Text = text
			s.summary.ConfirmOpen = false
		} else {
			s.summary.RegenerateError = MsgRegenerateFailed
			s.summary.Text = MsgSummaryUpdateFailed
		}
		return nil
	})
	if applied && success {
		s.listener.Notify(MsgSummaryRegenerated)
	}
}

func (s *AnalysisSession) SetInput(text string) {
	s.mutate(func() *model.ChatMessage {
		s.input = text
		return nil
	})
}

// SendMessage submits the pending input. Only one chat request may be
// outstanding; a failed request is answered with an apology in the
// transcript and the error is returned as well.
func (s *AnalysisSession) SendMessage(ctx context.Context) error {
	var prompt string
	var guard error
	started := s.mutate(func() *model.ChatMessage {
		switch {
		case strings.TrimSpace(s.input) == "":
			guard = ErrInvalidInput
		case s.documentID == "":
			guard = ErrDocumentIDMissing
		case s.loading:
			guard = ErrBusy
		}
		if guard != nil {
			return nil
		}
		prompt = s.input
		msg := model.ChatMessage{Sender: model.SenderUser, Text: prompt}
		s.messages = append(s.messages, msg)
		s.input = ""
		s.loading = true
		s.wg.Add(1)
		return &msg
	})
	if !started {
		return ErrClosed
	}
	if guard != nil {
		return guard
	}
	defer s.wg.Done()

	runCtx, done := s.runContext(ctx)
	defer done()

	reply, err := s.backend.Chat(runCtx, s.documentID, prompt)
	s.mutate(func() *model.ChatMessage {
		var msg model.ChatMessage
		if err != nil || reply == nil {
			msg = model.ChatMessage{Sender: model.SenderAssistant, Text: MsgChatFailed}
		} else {
			msg = *reply
		}
		s.messages = append(s.messages, msg)
		s.loading = false
		return &msg
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}

// HandleEnter mirrors the composer key binding: Shift+Enter adds a line
// break and never submits, plain Enter submits.
func (s *AnalysisSession) HandleEnter(ctx context.Context, shift bool) error {
	if shift {
		s.mutate(func() *model.ChatMessage {
			s.input += "\n"
			return nil
		})
		return nil
	}
	return s.SendMessage(ctx)
}

// Close stops any poll or request in flight and waits for it to return. No
// state changes after Close.
func (s *AnalysisSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// ComposerHeight is the draft box height for the given number of lines.
func ComposerHeight(lines int) int {
	h := lines * ComposerLineHeight
	if h < ComposerMinHeight {
		return ComposerMinHeight
	}
	if h > ComposerMaxHeight {
		return ComposerMaxHeight
	}
	return h
}
