package apierr

import "errors"

// TransientError wraps an error the orchestrator should retry: a network
// blip, a 5xx from a downstream service, a lock that couldn't be acquired.
// The Job Worker re-enqueues the job with backoff on TransientError.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Wrapping nil returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// TerminalError wraps an error the orchestrator should NOT retry: a
// malformed source file, a model refusal, a validation failure. The Job
// Worker moves the job straight to the dead-letter queue on TerminalError.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	if e == nil || e.Err == nil {
		return "terminal error"
	}
	return e.Err.Error()
}

func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err as a TerminalError. Wrapping nil returns nil.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

// Skipped marks a stage that did nothing because its precondition was
// already satisfied (e.g. re-entry after a crash finds the asset already
// uploaded). Not an error in the retry/DLQ sense. No stage in this module
// returns it: stages that find their work already done return nil.
var Skipped = errors.New("skipped: precondition already satisfied")

// Error pairs an HTTP status code and machine-readable code string with
// the wrapped cause. The Full-text Search Endpoint handler does not use it;
// it maps errors to status codes itself.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}
