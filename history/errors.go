package history

import (
	"fmt"
	"time"
)

// ValidationError reports inputs that failed semantic checks in INIT. It is
// never retried; the caller must fix the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// RateLimitedError surfaces a provider wait beyond budget together with a
// cursor at which traversal may resume. Cursor is empty when nothing had been
// emitted and the call carried no input cursor.
type RateLimitedError struct {
	RetryAfter time.Duration
	Cursor     string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}
