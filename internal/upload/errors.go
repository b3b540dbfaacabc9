package upload

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a progress query references an unknown
// or already reclaimed upload session.
var ErrSessionNotFound = errors.New("upload session not found")

// ValidationError rejects malformed or out-of-bounds chunk metadata.
// It is surfaced to the caller immediately and mutates no session state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IncompleteUploadError means reassembly found an expected chunk file missing.
// The tracker confirmed completeness, so this only happens when scratch storage
// was deleted out-of-band.
type IncompleteUploadError struct {
	UploadID     string
	MissingIndex int
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("upload %s incomplete: missing chunk %d", e.UploadID, e.MissingIndex)
}

// StorageError wraps an I/O failure during chunk persistence, reassembly, or
// the final storage move, after local retries have been exhausted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
