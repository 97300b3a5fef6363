// Package docparse provides the document parsing backends: a remote
// agentic-document-analysis client and an in-process parser.
package docparse

import (
	"context"
	"errors"
	"fmt"

	"github.com/DESMOND135/DPT-DOCUMENT-PARSING/internal/record"
)

// Service turns a stored file into ordered page results. It returns every
// page or an error, never a partial result.
type Service interface {
	Parse(ctx context.Context, path string) ([]record.PageResult, error)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return "retryable error: " + truncate(e.Message, 200)
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
