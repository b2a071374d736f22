package eventgroup

import "errors"

var (
	// ErrTypeMismatch is returned by As when an event is downcast to the wrong
	// kind.
	ErrTypeMismatch = errors.New("event type mismatch")

	// ErrQueueClosed is returned by the pipeline stages (Queue, Client, Handler)
	// once they have been shut down.
	ErrQueueClosed = errors.New("queue closed")
)

// DecodeError reports malformed or schema-violating input to the JSON codec.
// It is always recoverable: the caller decides whether to drop, quarantine, or
// retry the batch.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "failed to decode event group: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }
