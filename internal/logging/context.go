package logging

import (
	"context"
	"time"
)

// DetachContextWithTimeout returns a context that survives cancellation of
// parent but expires after timeout. Store writes issued while a session is
// shutting down use it so the last records still land.
func DetachContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
