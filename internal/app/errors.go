package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUnexpected        = errors.New("an unexpected error occurred")
	ErrBusy              = errors.New("a request is already in progress")
	ErrClosed            = errors.New("session closed")
	ErrDocumentIDMissing = errors.New("document id not found")
	ErrNoFile            = errors.New("no file selected")
	ErrInvalidFile       = errors.New("invalid file")
	ErrRegenerateTimeout = errors.New("summary did not change before polling gave up")
)
