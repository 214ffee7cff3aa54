package series

import "fmt"

// ValidationError marks a malformed request: a missing required filter or
// an unsupported filter combination. Surfaced to clients as a 400-class
// failure and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "series: " + e.Msg
}

// StorageError marks a failure of the external store: connection loss,
// timeout, or a rejected statement. Surfaced as a 500-class failure; the
// core performs no retries.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("series: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func storagef(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
