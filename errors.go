package topicquiz

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyCategory     = errors.New("category is required")
	ErrNotAnswered       = errors.New("current question has not been answered")
	ErrUnknownOption     = errors.New("answer is not one of the options")
	ErrEmptyQuestionSet  = errors.New("question set is empty")
)

// DefaultFailureMessage is shown when a fetch failed without a usable message
const DefaultFailureMessage = "Failed to generate questions. Please try again."

func invalidTransition(action string, phase Phase) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, phase)
}

// TransportError means the call to the question service did not complete
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "question service unavailable"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError means the service answered but the payload was unusable
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is returned by the fetcher once every attempt failed.
// Its message is the last attempt's message.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	if e.Last == nil || e.Last.Error() == "" {
		return DefaultFailureMessage
	}
	return e.Last.Error()
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// FailureMessage turns a fetch error into the text shown in the Failed phase
func FailureMessage(err error) string {
	if err == nil || err.Error() == "" {
		return DefaultFailureMessage
	}
	return err.Error()
}
