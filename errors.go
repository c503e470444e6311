package rompatch

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies a failure by how the patching engine reacts to it.
type Kind int

const (
	KindOK Kind = iota
	// KindMalformedInput covers bad magic numbers and truncated archives or
	// patches. Fatal, and always raised before anything is written.
	KindMalformedInput
	// KindCapacityExceeded means there were more source teams than target slots.
	// The excess is dropped and reported.
	KindCapacityExceeded
	// KindEncodingOverflow means a name exceeded its byte budget and was
	// truncated.
	KindEncodingOverflow
	KindVerificationMismatch
	KindIOFailure
	KindInvalidArgument
	KindNotFound
	KindCancelled
	KindNoSpace
)

var kindMessages map[Kind]string

func init() {
	kindMessages = map[Kind]string{
		KindOK:                   "Success",
		KindMalformedInput:       "Malformed input",
		KindCapacityExceeded:     "Capacity exceeded",
		KindEncodingOverflow:     "Encoding overflow",
		KindVerificationMismatch: "Verification mismatch",
		KindIOFailure:            "Input/output error",
		KindInvalidArgument:      "Invalid argument",
		KindNotFound:             "Not found",
		KindCancelled:            "Operation cancelled",
		KindNoSpace:              "No space left in region",
	}
}

func (k Kind) String() string {
	message, ok := kindMessages[k]
	if ok {
		return message
	}
	return fmt.Sprintf("Unknown error kind %d", int(k))
}

// Fatal reports whether an error of this kind must abort a patch run.
func (k Kind) Fatal() bool {
	switch k {
	case KindCapacityExceeded, KindEncodingOverflow, KindVerificationMismatch:
		return false
	default:
		return k != KindOK
	}
}

type PatchError interface {
	error
	Kind() Kind
	WithMessage(message string) PatchError
	Wrap(err error) PatchError
}

type basePatchError Kind

var ErrMalformedInput PatchError = basePatchError(KindMalformedInput)
var ErrCapacityExceeded PatchError = basePatchError(KindCapacityExceeded)
var ErrEncodingOverflow PatchError = basePatchError(KindEncodingOverflow)
var ErrVerificationMismatch PatchError = basePatchError(KindVerificationMismatch)
var ErrIOFailed PatchError = basePatchError(KindIOFailure)
var ErrInvalidArgument PatchError = basePatchError(KindInvalidArgument)
var ErrNotFound PatchError = basePatchError(KindNotFound)
var ErrCancelled PatchError = basePatchError(KindCancelled)
var ErrNoSpace PatchError = basePatchError(KindNoSpace)

func (e basePatchError) Error() string {
	return Kind(e).String()
}

func (e basePatchError) Kind() Kind {
	return Kind(e)
}

func (e basePatchError) WithMessage(message string) PatchError {
	return customPatchError{
		kind:          Kind(e),
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e basePatchError) Wrap(err error) PatchError {
	return customPatchError{
		kind:          Kind(e),
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customPatchError struct {
	kind          Kind
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customPatchError) Error() string {
	return e.message
}

func (e customPatchError) Kind() Kind {
	return e.kind
}

func (e customPatchError) WithMessage(message string) PatchError {
	return customPatchError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customPatchError) Wrap(err error) PatchError {
	return customPatchError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customPatchError) Unwrap() error {
	return e.originalError
}

// KindOf returns the [Kind] of the outermost [PatchError] in err's chain. Errors
// that didn't originate in this module are treated as I/O failures, and nil is
// [KindOK].
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var patchErr PatchError
	if errors.As(err, &patchErr) {
		return patchErr.Kind()
	}
	return KindIOFailure
}
