// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotcodec

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBallot   = errors.New("invalid ballot")
	ErrModulusTooSmall = errors.New("modulus too small")
	ErrInvalidQuestion = errors.New("invalid question")
)

// ConfigError reports a question definition or modulus the codec cannot work with.
// It is fatal for the whole question.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(err error, format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...), Err: err}
}

func invalidBallot(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBallot, fmt.Sprintf(format, args...))
}
