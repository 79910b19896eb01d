package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"llmontreal/internal/api"
	"llmontreal/internal/model"
	"llmontreal/internal/pkg/logger"
)

type UploadStatus string

const (
	UploadIdle      UploadStatus = "IDLE"
	UploadReady     UploadStatus = "READY"
	UploadUploading UploadStatus = "UPLOADING"
	UploadSuccess   UploadStatus = "SUCCESS"
	UploadError     UploadStatus = "ERROR"
	UploadCancelled UploadStatus = "CANCELLED"
)

const (
	MsgNoFileSelected   = "No file selected."
	MsgUploadReady      = "File ready to upload."
	MsgUploading        = "Uploading file..."
	MsgUploadSucceeded  = "Upload completed successfully!"
	MsgUploadFailed     = "An error occurred while uploading the file."
	MsgUploadCancelled  = "Upload cancelled."
	MsgNoExtractedText  = "No text could be extracted from this file. Make sure it is not a scanned image or an empty document."
	noContentServerHint = "no content could be extracted"
)

type Uploader interface {
	UploadDocument(ctx context.Context, file model.File, onProgress func(model.Progress)) (*model.UploadResult, error)
}

type UploadSnapshot struct {
	Status   UploadStatus
	Progress int
	Message  string
	FileName string
	Result   *model.UploadResult
}

// uploadHandle is the cancellation handle of one transfer. Once released,
// nothing the transfer reports may touch the task.
type uploadHandle struct {
	cancel   context.CancelFunc
	released bool
}

// UploadTask drives a single upload slot. It is safe for concurrent use;
// transfers run on their own goroutine and report back through the handle.
type UploadTask struct {
	uploader Uploader
	maxSize  int64

	mu        sync.Mutex
	status    UploadStatus
	progress  int
	message   string
	file      *model.File
	result    *model.UploadResult
	handle    *uploadHandle
	listeners []func(UploadSnapshot)

	wg sync.WaitGroup
}

func NewUploadTask(uploader Uploader, maxSize int64) *UploadTask {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &UploadTask{
		uploader: uploader,
		maxSize:  maxSize,
		status:   UploadIdle,
		message:  MsgNoFileSelected,
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// Callbacks run on the goroutine that made the change.
func (t *UploadTask) OnChange(fn func(UploadSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *UploadTask) Snapshot() UploadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *UploadTask) snapshotLocked() UploadSnapshot {
	snap := UploadSnapshot{
		Status:   t.status,
		Progress: t.progress,
		Message:  t.message,
		Result:   t.result,
	}
	if t.file != nil {
		snap.FileName = t.file.Name
	}
	return snap
}

// SelectFile validates file and, when it passes, starts uploading it right
// away. A rejected file never reaches the transport.
func (t *UploadTask) SelectFile(ctx context.Context, file model.File) error {
	if err := ValidateUpload(file, t.maxSize); err != nil {
		t.mu.Lock()
		t.releaseLocked()
		t.setErrorLocked(err.Error())
		t.publishLocked()
		return err
	}

	t.mu.Lock()
	// a new selection supersedes whatever was in flight
	t.releaseLocked()
	selected := file
	t.file = &selected
	t.status = UploadReady
	t.message = MsgUploadReady
	t.progress = 0
	t.result = nil
	t.publishLocked()

	return t.Upload(ctx)
}

// Upload sends the selected file. It returns once the transfer has started;
// use Wait or OnChange for the outcome.
func (t *UploadTask) Upload(ctx context.Context) error {
	t.mu.Lock()
	if t.file == nil {
		t.mu.Unlock()
		return ErrNoFile
	}
	if t.handle != nil {
		t.mu.Unlock()
		return ErrBusy
	}
	file := *t.file
	reqCtx, cancel := context.WithCancel(ctx)
	h := &uploadHandle{cancel: cancel}
	t.handle = h
	t.status = UploadUploading
	t.message = MsgUploading
	t.progress = 0
	t.result = nil
	t.wg.Add(1)
	t.publishLocked()

	go func() {
		defer t.wg.Done()
		result, err := t.uploader.UploadDocument(reqCtx, file, func(p model.Progress) {
			t.onProgress(h, file.Size, p)
		})
		t.finish(h, ctx, result, err)
	}()
	return nil
}

// Cancel aborts the transfer in flight, if any, and moves to CANCELLED.
func (t *UploadTask) Cancel() {
	t.mu.Lock()
	t.releaseLocked()
	t.status = UploadCancelled
	t.message = MsgUploadCancelled
	t.progress = 0
	t.file = nil
	t.publishLocked()
}

func (t *UploadTask) Reset() {
	t.mu.Lock()
	t.releaseLocked()
	t.status = UploadIdle
	t.message = ""
	t.progress = 0
	t.file = nil
	t.result = nil
	t.publishLocked()
}

// Close releases any transfer in flight without touching the visible state
// and waits for the transfer goroutine to exit.
func (t *UploadTask) Close() {
	t.mu.Lock()
	t.releaseLocked()
	t.mu.Unlock()
	t.wg.Wait()
}

// Wait blocks until no transfer goroutine is running.
func (t *UploadTask) Wait() {
	t.wg.Wait()
}

func (t *UploadTask) onProgress(h *uploadHandle, fileSize int64, p model.Progress) {
	total := p.Total
	if total <= 0 {
		total = fileSize
	}
	if total <= 0 {
		return
	}
	pct := int(math.Round(float64(p.Loaded) / float64(total) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	if h.released || t.handle != h || pct == t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = pct
	t.publishLocked()
}

func (t *UploadTask) finish(h *uploadHandle, parent context.Context, result *model.UploadResult, err error) {
	t.mu.Lock()
	if h.released || t.handle != h {
		t.mu.Unlock()
		return
	}
	t.releaseLocked()
	t.file = nil

	switch {
	case err == nil:
		t.status = UploadSuccess
		t.message = MsgUploadSucceeded
		t.progress = 100
		t.result = result
	case parent.Err() != nil && errors.Is(err, context.Canceled):
		t.status = UploadCancelled
		t.message = MsgUploadCancelled
		t.progress = 0
	default:
		logger.Warnf("upload failed: %v", err)
		t.setErrorLocked(uploadErrorMessage(err))
	}
	t.publishLocked()
}

func (t *UploadTask) setErrorLocked(message string) {
	t.status = UploadError
	t.message = message
	t.progress = 0
	t.file = nil
	t.result = nil
}

func (t *UploadTask) releaseLocked() {
	if t.handle == nil {
		return
	}
	t.handle.released = true
	t.handle.cancel()
	t.handle = nil
}

// publishLocked snapshots the state, unlocks and notifies listeners.
func (t *UploadTask) publishLocked() {
	snap := t.snapshotLocked()
	listeners := append([]func(UploadSnapshot){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func uploadErrorMessage(err error) string {
	msg := strings.TrimSpace(api.ServerMessage(err))
	if msg == "" {
		return MsgUploadFailed
	}
	if strings.Contains(strings.ToLower(msg), noContentServerHint) {
		return MsgNoExtractedText
	}
	return msg
}
