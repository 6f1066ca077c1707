package transform

import (
	"errors"
	"fmt"
)

// Kind classifies why a transform failed
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindProvider   Kind = "provider_error"
	KindTimeout    Kind = "timeout"
	KindStore      Kind = "store_error"
)

var (
	ErrBusy             = errors.New("operation in progress")
	ErrNothingToRevert  = errors.New("nothing to revert")
	ErrUnknownAction    = errors.New("unknown action")
	ErrTooShort         = errors.New("not enough content")
	ErrLimitReached     = errors.New("limit reached")
	ErrLanguageRequired = errors.New("target language required")
	ErrNoGenerator      = errors.New("no text generator configured")
)

// ActionError reports a failed transform together with its label
type ActionError struct {
	Label string
	Kind  Kind
	Err   error
}

// Error implements the error interface
func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Label, e.Err)
}

// Unwrap exposes the cause
func (e *ActionError) Unwrap() error {
	return e.Err
}

func newActionError(label string, kind Kind, err error) *ActionError {
	return &ActionError{Label: label, Kind: kind, Err: err}
}

func isKind(err error, kind Kind) bool {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// IsValidation reports whether err was raised before the provider was called
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsProvider reports whether the generator failed
func IsProvider(err error) bool { return isKind(err, KindProvider) }

// IsTimeout reports whether the generator did not answer in time
func IsTimeout(err error) bool { return isKind(err, KindTimeout) }
