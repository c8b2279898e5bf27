package export

import "fmt"

// SaveError reports a failed export. The cause is kept for diagnostics while
// the user is shown a single generic message.
type SaveError struct {
	// Path is the directory or file that could not be written
	Path string

	// Err is the underlying cause
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save reconstruction to %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
