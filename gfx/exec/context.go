// Package exec provides the command-submission execution context: a strict
// state machine wrapping one reusable command encoder/buffer pair. Commands
// recorded between Begin and End are only guaranteed executed on the GPU
// after a successful Wait.
package exec

import (
	"fmt"
	"log"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// State identifies where the execution context is in its lifecycle.
type State int

const (
	// StateUninitialized is the zero state before the context is constructed.
	StateUninitialized State = iota

	// StateInitialized means the context is idle and ready for Begin.
	StateInitialized

	// StateRecording means an encoder is open and accepting commands.
	StateRecording

	// StateSubmittable means recording has finished and the command buffer
	// is ready for Submit (or Reset to discard it).
	StateSubmittable

	// StateSubmitted means the command buffer is in flight on the queue.
	StateSubmitted
)

// String returns the state name for diagnostics.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateRecording:
		return "Recording"
	case StateSubmittable:
		return "Submittable"
	case StateSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Submitter abstracts the device/queue operations the context needs. The
// graphics device satisfies this; tests inject a fake to exercise the state
// machine without a GPU.
type Submitter interface {
	// CreateCommandEncoder creates a fresh command encoder.
	//
	// Parameters:
	//   - label: debug label for the encoder
	//
	// Returns:
	//   - *wgpu.CommandEncoder: the new encoder
	//   - error: an error if encoder creation fails
	CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error)

	// Finish closes an encoder into a submittable command buffer.
	//
	// Parameters:
	//   - encoder: the encoder to finish
	//
	// Returns:
	//   - *wgpu.CommandBuffer: the finished command buffer
	//   - error: an error if finishing fails
	Finish(encoder *wgpu.CommandEncoder) (*wgpu.CommandBuffer, error)

	// Submit enqueues a command buffer on the submission queue.
	//
	// Parameters:
	//   - buffer: the command buffer to submit
	Submit(buffer *wgpu.CommandBuffer)

	// Wait blocks until previously submitted work completes or the timeout
	// elapses.
	//
	// Parameters:
	//   - timeout: maximum time to block for this attempt
	//
	// Returns:
	//   - bool: true if the queue drained, false on timeout
	Wait(timeout time.Duration) bool
}

// Context is the execution context state machine. All recorded GPU commands
// are guaranteed executed only after a successful Wait. Calling an operation
// outside its required predecessor state is a usage error; the returned error
// must be treated as fatal by the invoking test.
type Context interface {
	// State returns the current lifecycle state.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Begin opens a fresh command encoder. Requires StateInitialized and
	// transitions to StateRecording.
	//
	// Returns:
	//   - error: a usage error if the context is not Initialized, or a
	//     native error if encoder creation fails
	Begin() error

	// Encoder returns the open command encoder. Only meaningful while
	// Recording; returns nil otherwise.
	//
	// Returns:
	//   - *wgpu.CommandEncoder: the open encoder or nil
	Encoder() *wgpu.CommandEncoder

	// End finishes recording into a command buffer. Requires StateRecording
	// and transitions to StateSubmittable.
	//
	// Returns:
	//   - error: a usage error if the context is not Recording, or a native
	//     error if finishing fails
	End() error

	// Submit enqueues the finished command buffer. Requires StateSubmittable
	// and transitions to StateSubmitted.
	//
	// Returns:
	//   - error: a usage error if the context is not Submittable
	Submit() error

	// Wait blocks until the submitted work completes, retrying a bounded
	// number of times on per-attempt timeout before escalating to an error.
	// Requires StateSubmitted and transitions back to StateSubmittable,
	// allowing buffer reuse. A Wait from StateInitialized is a no-op.
	//
	// Returns:
	//   - error: a usage error for other states, or a timeout error after
	//     the final retry
	Wait() error

	// Reset discards the finished command buffer and returns to
	// StateInitialized, allowing a fresh Begin. Requires StateSubmittable.
	//
	// Returns:
	//   - error: a usage error if the context is not Submittable
	Reset() error
}

// context is the implementation of the Context interface.
type context struct {
	sub   Submitter
	label string
	state State

	encoder *wgpu.CommandEncoder
	buffer  *wgpu.CommandBuffer

	waitTimeout time.Duration
	waitRetries int
}

var _ Context = &context{}

// NewContext creates an execution context in StateInitialized.
// Panics if the submitter is nil.
//
// Parameters:
//   - sub: the device/queue submitter (must not be nil)
//   - options: variadic list of ContextBuilderOption functions to configure the context
//
// Returns:
//   - Context: a new execution context ready for Begin
func NewContext(sub Submitter, options ...ContextBuilderOption) Context {
	if sub == nil {
		panic("exec: NewContext requires a non-nil Submitter")
	}
	c := &context{
		sub:         sub,
		label:       "Execution Context",
		state:       StateInitialized,
		waitTimeout: 500 * time.Millisecond,
		waitRetries: 10,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *context) State() State {
	return c.state
}

func (c *context) Begin() error {
	if c.state != StateInitialized {
		return c.usageError("Begin", StateInitialized)
	}
	encoder, err := c.sub.CreateCommandEncoder(c.label)
	if err != nil {
		return fmt.Errorf("exec: Begin: failed to create command encoder: %w", err)
	}
	c.encoder = encoder
	c.state = StateRecording
	return nil
}

func (c *context) Encoder() *wgpu.CommandEncoder {
	if c.state != StateRecording {
		return nil
	}
	return c.encoder
}

func (c *context) End() error {
	if c.state != StateRecording {
		return c.usageError("End", StateRecording)
	}
	buffer, err := c.sub.Finish(c.encoder)
	if err != nil {
		c.releaseEncoder()
		c.state = StateInitialized
		return fmt.Errorf("exec: End: failed to finish command encoder: %w", err)
	}
	c.releaseEncoder()
	c.buffer = buffer
	c.state = StateSubmittable
	return nil
}

func (c *context) Submit() error {
	if c.state != StateSubmittable {
		return c.usageError("Submit", StateSubmittable)
	}
	c.sub.Submit(c.buffer)
	c.state = StateSubmitted
	return nil
}

func (c *context) Wait() error {
	// A Wait with nothing in flight is a no-op so callers can always fence.
	if c.state == StateInitialized {
		return nil
	}
	if c.state != StateSubmitted {
		return c.usageError("Wait", StateSubmitted)
	}

	for attempt := 1; attempt <= c.waitRetries; attempt++ {
		if c.sub.Wait(c.waitTimeout) {
			c.releaseBuffer()
			c.state = StateSubmittable
			return nil
		}
		if attempt < c.waitRetries {
			log.Printf("exec: %s: wait attempt %d/%d timed out after %v; retrying", c.label, attempt, c.waitRetries, c.waitTimeout)
		}
	}
	return fmt.Errorf("exec: %s: GPU wait timed out after %d attempts of %v", c.label, c.waitRetries, c.waitTimeout)
}

func (c *context) Reset() error {
	if c.state != StateSubmittable {
		return c.usageError("Reset", StateSubmittable)
	}
	c.releaseBuffer()
	c.state = StateInitialized
	return nil
}

// usageError reports a state-machine violation naming the current and
// required states.
func (c *context) usageError(op string, required State) error {
	return fmt.Errorf("exec: %s: %s requires state %s, context is %s", c.label, op, required, c.state)
}

func (c *context) releaseEncoder() {
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
}

func (c *context) releaseBuffer() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}
