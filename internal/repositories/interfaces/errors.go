package interfaces

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict means the record's status was not the expected one
	// when a compare-and-swap write was attempted. Retryable.
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrRecordClosed is returned for writes against a terminal record.
	ErrRecordClosed = errors.New("record is closed")

	ErrDuplicate = errors.New("record already exists")

	// ErrStoreUnavailable wraps transport failures of the backing store.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
