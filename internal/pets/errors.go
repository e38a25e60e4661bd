package pets

import "errors"

var (
	// ErrNoMedia means the keyword has no stored items; nothing was probed.
	ErrNoMedia = errors.New("no media uploaded yet")
	// ErrProbeExhausted means items exist but no candidate name resolved.
	ErrProbeExhausted = errors.New("media not found")
	ErrUnknownKeyword = errors.New("unknown keyword")
	// ErrStorageUnavailable wraps every failed call against the blob store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrEmptyTerm          = errors.New("term must not be empty")
)

// ValidationError rejects an upload before any bytes are written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
