package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llmontreal/internal/api"
	"llmontreal/internal/backendtest"
	"llmontreal/internal/model"
)

type stubSummaryBackend struct {
	mu sync.Mutex

	summaries     []string
	summaryErrs   []error
	getCalls      int
	regenerateErr error
	regenerates   int

	chatGate  chan struct{}
	chatReply *model.ChatMessage
	chatErr   error
	prompts   []string
}

var _ SummaryBackend = (*stubSummaryBackend)(nil)

func (s *stubSummaryBackend) GetSummary(ctx context.Context, documentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.getCalls
	s.getCalls++
	if i < len(s.summaryErrs) && s.summaryErrs[i] != nil {
		return "", s.summaryErrs[i]
	}
	if len(s.summaries) == 0 {
		return "", nil
	}
	if i >= len(s.summaries) {
		return s.summaries[len(s.summaries)-1], nil
	}
	return s.summaries[i], nil
}

func (s *stubSummaryBackend) RegenerateSummary(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regenerates++
	return s.regenerateErr
}

func (s *stubSummaryBackend) Chat(ctx context.Context, documentID, prompt string) (*model.ChatMessage, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	gate := s.chatGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.chatReply, s.chatErr
}

func (s *stubSummaryBackend) GetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

type sessionRecorder struct {
	mu       sync.Mutex
	appended []model.ChatMessage
	notices  []string
	states   int
}

func (r *sessionRecorder) MessageAppended(msg model.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, msg)
}

func (r *sessionRecorder) Notify(notice string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *sessionRecorder) StateChanged(SessionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states++
}

func (r *sessionRecorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func (r *sessionRecorder) States() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states
}

func fastOptions(listener SessionListener, attempts int) SessionOptions {
	return SessionOptions{
		PollInterval:    time.Millisecond,
		PollMaxAttempts: attempts,
		Listener:        listener,
	}
}

func TestNewAnalysisSessionSeedsGreeting(t *testing.T) {
	s := NewAnalysisSession(&stubSummaryBackend{}, "42", SessionOptions{})
	defer s.Close()

	snap := s.Snapshot()
	require.Equal(t, "42", snap.DocumentID)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, model.SenderAssistant, snap.Messages[0].Sender)
	require.Equal(t, MsgGreeting, snap.Messages[0].Text)
	require.Nil(t, snap.Messages[0].CreatedAt)
	require.False(t, snap.IsLoading)
}

func TestLoadSummary(t *testing.T) {
	backend := &stubSummaryBackend{summaries: []string{"The contract covers 2024."}}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	require.NoError(t, s.LoadSummary(context.Background()))
	summary := s.Snapshot().Summary
	require.Equal(t, "The contract covers 2024.", summary.Text)
	require.Empty(t, summary.Error)
}

func TestLoadSummaryWithoutDocumentID(t *testing.T) {
	backend := &stubSummaryBackend{}
	s := NewAnalysisSession(backend, "  ", SessionOptions{})
	defer s.Close()

	require.ErrorIs(t, s.LoadSummary(context.Background()), ErrDocumentIDMissing)
	summary := s.Snapshot().Summary
	require.Equal(t, MsgDocumentIDMissing, summary.Error)
	require.Empty(t, summary.Text)
	require.Zero(t, backend.GetCalls())
}

func TestLoadSummaryFailure(t *testing.T) {
	backend := &stubSummaryBackend{summaryErrs: []error{errors.New("boom")}}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	require.Error(t, s.LoadSummary(context.Background()))
	summary := s.Snapshot().Summary
	require.Equal(t, MsgSummaryLoadFailed, summary.Error)
	require.Empty(t, summary.Text)
}

func TestRegenerateSummaryAcceptsFirstChangedValue(t *testing.T) {
	backend := &stubSummaryBackend{
		summaries:   []string{"old", "old", "", "old", "new", "newer"},
		summaryErrs: []error{nil, nil, nil, errors.New("flaky")},
	}
	rec := &sessionRecorder{}
	s := NewAnalysisSession(backend, "1", fastOptions(rec, 30))
	defer s.Close()
	require.NoError(t, s.LoadSummary(context.Background()))

	s.OpenRegenerateConfirm()
	require.NoError(t, s.RegenerateSummary(context.Background()))

	summary := s.Snapshot().Summary
	require.Equal(t, "new", summary.Text)
	require.False(t, summary.IsRegenerating)
	require.False(t, summary.ConfirmOpen)
	require.Empty(t, summary.RegenerateError)
	require.Equal(t, []string{MsgSummaryRegenerated}, rec.Notices())
	require.Equal(t, 5, backend.GetCalls())
}

func TestRegenerateSummaryPollsAfterRequestFailure(t *testing.T) {
	backend := &stubSummaryBackend{
		summaries:     []string{"old", "fresh"},
		regenerateErr: errors.New("gateway timeout"),
	}
	s := NewAnalysisSession(backend, "1", fastOptions(nil, 5))
	defer s.Close()
	require.NoError(t, s.LoadSummary(context.Background()))

	require.NoError(t, s.RegenerateSummary(context.Background()))
	require.Equal(t, "fresh", s.Snapshot().Summary.Text)
}

func TestRegenerateSummaryExhaustsAttempts(t *testing.T) {
	backend := &stubSummaryBackend{summaries: []string{"same"}}
	rec := &sessionRecorder{}
	s := NewAnalysisSession(backend, "1", fastOptions(rec, 3))
	defer s.Close()
	require.NoError(t, s.LoadSummary(context.Background()))
	s.OpenRegenerateConfirm()

	require.ErrorIs(t, s.RegenerateSummary(context.Background()), ErrRegenerateTimeout)

	summary := s.Snapshot().Summary
	require.False(t, summary.IsRegenerating)
	require.Equal(t, MsgRegenerateFailed, summary.RegenerateError)
	require.Equal(t, MsgSummaryUpdateFailed, summary.Text)
	require.True(t, summary.ConfirmOpen)
	require.Empty(t, rec.Notices())
	require.Equal(t, 1+3, backend.GetCalls())

	s.OpenRegenerateConfirm()
	require.Empty(t, s.Snapshot().Summary.RegenerateError)
}

func TestRegenerateSummaryIsExclusive(t *testing.T) {
	backend := &stubSummaryBackend{summaries: []string{"same"}}
	s := NewAnalysisSession(backend, "1", SessionOptions{PollInterval: time.Hour, PollMaxAttempts: 1})

	done := make(chan error, 1)
	go func() { done <- s.RegenerateSummary(context.Background()) }()
	require.Eventually(t, func() bool {
		return s.Snapshot().Summary.IsRegenerating
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, s.RegenerateSummary(context.Background()), ErrBusy)
	s.OpenRegenerateConfirm()
	require.False(t, s.CloseRegenerateConfirm())
	require.True(t, s.Snapshot().Summary.ConfirmOpen)

	s.Close()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestCloseStopsPollingWithoutMutation(t *testing.T) {
	backend := &stubSummaryBackend{summaries: []string{"same"}}
	rec := &sessionRecorder{}
	s := NewAnalysisSession(backend, "1", SessionOptions{PollInterval: 5 * time.Millisecond, PollMaxAttempts: 1000, Listener: rec})
	require.NoError(t, s.LoadSummary(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.RegenerateSummary(context.Background()) }()
	// one load plus at least two unchanged polls
	require.Eventually(t, func() bool { return backend.GetCalls() >= 3 }, 2*time.Second, time.Millisecond)

	s.Close()
	<-done
	states := rec.States()
	calls := backend.GetCalls()
	before := s.Snapshot()

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, backend.GetCalls())
	require.Equal(t, states, rec.States())
	require.Equal(t, before, s.Snapshot())
	require.True(t, before.Summary.IsRegenerating)
}

func TestSendMessage(t *testing.T) {
	now := time.Now()
	backend := &stubSummaryBackend{chatReply: &model.ChatMessage{Sender: model.SenderAssistant, Text: "It is about taxes.", CreatedAt: &now}}
	rec := &sessionRecorder{}
	s := NewAnalysisSession(backend, "1", fastOptions(rec, 1))
	defer s.Close()

	s.SetInput("What is this about?")
	require.NoError(t, s.SendMessage(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 3)
	require.Equal(t, model.ChatMessage{Sender: model.SenderUser, Text: "What is this about?"}, snap.Messages[1])
	require.Equal(t, "It is about taxes.", snap.Messages[2].Text)
	require.Empty(t, snap.Input)
	require.False(t, snap.IsLoading)
	require.Len(t, rec.appended, 2)
	require.Equal(t, []string{"What is this about?"}, backend.prompts)
}

func TestSendMessageAfterSummaryLoadFailure(t *testing.T) {
	now := time.Now()
	backend := &stubSummaryBackend{
		summaryErrs: []error{errors.New("boom")},
		chatReply:   &model.ChatMessage{Sender: model.SenderAssistant, Text: "Still here.", CreatedAt: &now},
	}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	require.Error(t, s.LoadSummary(context.Background()))
	before := len(s.Snapshot().Messages)

	s.SetInput("Can you still answer?")
	require.NoError(t, s.SendMessage(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Messages, before+2)
	require.Equal(t, "Can you still answer?", snap.Messages[before].Text)
	require.Equal(t, "Still here.", snap.Messages[before+1].Text)
	require.Equal(t, MsgSummaryLoadFailed, snap.Summary.Error)
	require.Empty(t, snap.Summary.Text)
}

func TestSendMessageFailureAppendsApology(t *testing.T) {
	backend := &stubSummaryBackend{chatErr: errors.New("503")}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	s.SetInput("hi")
	require.Error(t, s.SendMessage(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 3)
	last := snap.Messages[2]
	require.Equal(t, model.SenderAssistant, last.Sender)
	require.Equal(t, MsgChatFailed, last.Text)
	require.Nil(t, last.CreatedAt)
	require.False(t, snap.IsLoading)
}

func TestSendMessageGuards(t *testing.T) {
	backend := &stubSummaryBackend{}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	s.SetInput("   \n")
	require.ErrorIs(t, s.SendMessage(context.Background()), ErrInvalidInput)

	noID := NewAnalysisSession(backend, "", SessionOptions{})
	defer noID.Close()
	noID.SetInput("hello")
	require.ErrorIs(t, noID.SendMessage(context.Background()), ErrDocumentIDMissing)
	require.Empty(t, backend.prompts)
	require.Len(t, noID.Snapshot().Messages, 1)
}

func TestSendMessageMutualExclusion(t *testing.T) {
	gate := make(chan struct{})
	backend := &stubSummaryBackend{
		chatGate:  gate,
		chatReply: &model.ChatMessage{Sender: model.SenderAssistant, Text: "ok"},
	}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	s.SetInput("first")
	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background()) }()
	require.Eventually(t, func() bool { return s.Snapshot().IsLoading }, time.Second, time.Millisecond)

	s.SetInput("second")
	require.ErrorIs(t, s.SendMessage(context.Background()), ErrBusy)
	require.ErrorIs(t, s.HandleEnter(context.Background(), false), ErrBusy)
	require.Equal(t, "second", s.Snapshot().Input)

	close(gate)
	require.NoError(t, <-done)
	require.Len(t, s.Snapshot().Messages, 3)
}

func TestHandleEnter(t *testing.T) {
	backend := &stubSummaryBackend{chatReply: &model.ChatMessage{Sender: model.SenderAssistant, Text: "ok"}}
	s := NewAnalysisSession(backend, "1", SessionOptions{})
	defer s.Close()

	s.SetInput("line one")
	require.NoError(t, s.HandleEnter(context.Background(), true))
	require.Equal(t, "line one\n", s.Snapshot().Input)
	require.Empty(t, backend.prompts)

	s.SetInput(s.Snapshot().Input + "line two")
	require.NoError(t, s.HandleEnter(context.Background(), false))
	require.Equal(t, []string{"line one\nline two"}, backend.prompts)
}

func TestComposerHeight(t *testing.T) {
	require.Equal(t, 48, ComposerHeight(0))
	require.Equal(t, 48, ComposerHeight(2))
	require.Equal(t, 72, ComposerHeight(3))
	require.Equal(t, 160, ComposerHeight(40))
}

func TestAnalysisSessionAgainstBackend(t *testing.T) {
	backend := backendtest.New(t)
	backend.QueueSummaries("5", "initial", "initial", "rewritten")
	client := api.NewClient(api.Config{BaseURL: backend.URL(), Timeout: 5 * time.Second})

	s := NewAnalysisSession(client, "5", fastOptions(nil, 10))
	defer s.Close()

	require.NoError(t, s.LoadSummary(context.Background()))
	require.Equal(t, "initial", s.Snapshot().Summary.Text)
	require.NoError(t, s.RegenerateSummary(context.Background()))
	require.Equal(t, "rewritten", s.Snapshot().Summary.Text)
	require.Equal(t, 1, backend.Regenerates())

	s.SetInput("who signed?")
	require.NoError(t, s.SendMessage(context.Background()))
	msgs := s.Snapshot().Messages
	require.Equal(t, "echo: who signed?", msgs[len(msgs)-1].Text)
	require.Equal(t, model.SenderAssistant, msgs[len(msgs)-1].Sender)
}
