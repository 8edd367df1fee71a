package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrWrongStep      = errors.New("wizard: input does not belong to the current step")
	ErrFinished       = errors.New("wizard: survey already finished")
	ErrNoPreviousStep = errors.New("wizard: no previous step")
	ErrUnknownOption  = errors.New("wizard: option not in catalog")
	ErrSelectionLimit = errors.New("wizard: selection limit reached")
)

// FieldError is one failed check on one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every field that failed local validation for a
// step. It never involves the network.
type ValidationError struct {
	Step Step
	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("wizard: step %d: %s", e.Step, strings.Join(msgs, "; "))
}

func (e *ValidationError) Fields() []FieldError {
	fields := make([]FieldError, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		var fe *FieldError
		if errors.As(err, &fe) {
			fields = append(fields, *fe)
		}
	}
	return fields
}

func (e *ValidationError) Unwrap() []error {
	return e.errs.Errors
}

type checker struct {
	step Step
	errs *multierror.Error
}

func (c *checker) fail(field, msg string) {
	c.errs = multierror.Append(c.errs, &FieldError{Field: field, Message: msg})
}

func (c *checker) err() error {
	if c.errs == nil {
		return nil
	}
	return &ValidationError{Step: c.step, errs: c.errs}
}

// ConflictError is the backend refusing an identity that already answered.
// Retrying with the same input cannot succeed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "wizard: identity rejected: " + e.Message
}

// RemoteError is a transport or server failure on one of the two network
// steps. Message is what the respondent should see; the caller may retry.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("wizard: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// LimitError reports a rejected catalog toggle; it matches ErrSelectionLimit.
type LimitError struct {
	Limit   int
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}

func (e *LimitError) Is(target error) bool {
	return target == ErrSelectionLimit
}
