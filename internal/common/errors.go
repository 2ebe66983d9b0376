// Package common defines sentinel errors and small helpers shared by the
// storage core and the client. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// Storage-level errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPersistenceFailed  = errors.New("persistence failed")

	// Codec errors. Recovered locally by rendering a placeholder.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Soft lookup error; status/delete operations treat it as a no-op.
	ErrNotFound = errors.New("not found")

	// Validation errors.
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidKind   = errors.New("invalid message kind")
)
