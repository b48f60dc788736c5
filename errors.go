package strata

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/strata/internal/format"
	"github.com/hupe1980/strata/internal/layer"
	"github.com/hupe1980/strata/plan"
)

var (
	// ErrInvalidInput is returned when build input is unsorted, has duplicate
	// keys or holds values the codec cannot encode.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBuild is returned when a layer cannot be constructed.
	ErrBuild = errors.New("build failed")

	// ErrCorruptFormat is returned when an index file fails validation.
	ErrCorruptFormat = errors.New("corrupt index format")

	// ErrTypeMismatch is returned when a file's key or value type differs from
	// the requested one. It is a kind of ErrCorruptFormat.
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", ErrCorruptFormat)

	// ErrIO is returned when the backing storage fails.
	ErrIO = errors.New("index i/o failure")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index closed")

	// ErrInvalidPlan is returned for plans that fail validation.
	ErrInvalidPlan = plan.ErrInvalid
)

// InputError reports the first offending entry of a build input.
//
// errors.Is(err, ErrInvalidInput) holds for every InputError.
type InputError struct {
	Position int
	Reason   string
	cause    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input at entry %d: %s", e.Position, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InputError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if isPublic(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Storage failures.
	var re *format.ReadError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	// Layout and node validation.
	switch {
	case errors.Is(err, format.ErrInvalidMagic),
		errors.Is(err, format.ErrInvalidVersion),
		errors.Is(err, format.ErrTruncated),
		errors.Is(err, format.ErrCorrupt),
		errors.Is(err, layer.ErrCorruptNode):
		return fmt.Errorf("%w: %w", ErrCorruptFormat, err)
	case errors.Is(err, layer.ErrEmptyLayer),
		errors.Is(err, layer.ErrNodeOverflow):
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	return err
}

// isPublic reports whether err already carries a public sentinel.
func isPublic(err error) bool {
	for _, public := range []error{ErrInvalidInput, ErrBuild, ErrCorruptFormat, ErrIO, ErrClosed, ErrInvalidPlan} {
		if errors.Is(err, public) {
			return true
		}
	}
	return false
}

// ioError classifies a failure of op. Anything that is not a known format or
// build error is a storage failure.
func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("%s: %w", op, err)
	if t := translateError(err); t != err || isPublic(err) {
		return t
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
