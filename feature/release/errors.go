package release

import (
	"context"
	"errors"
	"fmt"

	"release-builder/feature/release/identifier"
	"release-builder/feature/release/rf2table"
	"release-builder/feature/release/schema"
)

// GenerationError aborts a build's export step. It names the offending
// file and wraps the underlying cause, whether a terminal failure or an
// exhausted retry budget.
type GenerationError struct {
	File string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate release files for %s: %v", e.File, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a generation failure is worth retrying.
// Configuration and format defects, cancellations and context errors are
// terminal; everything else (storage and network I/O) is assumed
// recoverable within the retry budget.
func IsTransient(err error) bool {
	var cfgErr *schema.ConfigError
	var formatErr *rf2table.FormatError
	var cancelErr *identifier.CancellationError
	if errors.As(err, &cfgErr) || errors.As(err, &formatErr) || errors.As(err, &cancelErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
