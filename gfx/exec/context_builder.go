package exec

import "time"

// ContextBuilderOption is a function that modifies the execution context
// configuration during construction.
type ContextBuilderOption func(*context)

// WithLabel sets the debug label used for the context's command encoder and
// in diagnostics.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - ContextBuilderOption: a function that applies the label
func WithLabel(label string) ContextBuilderOption {
	return func(c *context) {
		if label != "" {
			c.label = label
		}
	}
}

// WithWaitTimeout sets the per-attempt timeout used by Wait.
//
// Parameters:
//   - timeout: the per-attempt wait duration
//
// Returns:
//   - ContextBuilderOption: a function that applies the timeout
func WithWaitTimeout(timeout time.Duration) ContextBuilderOption {
	return func(c *context) {
		if timeout > 0 {
			c.waitTimeout = timeout
		}
	}
}

// WithWaitRetries sets how many timed attempts Wait makes before reporting
// the GPU as hung.
//
// Parameters:
//   - retries: the maximum number of wait attempts
//
// Returns:
//   - ContextBuilderOption: a function that applies the retry count
func WithWaitRetries(retries int) ContextBuilderOption {
	return func(c *context) {
		if retries > 0 {
			c.waitRetries = retries
		}
	}
}
