// Package cmserrors defines the error taxonomy shared by the page resolver,
// the block renderer and the cache registry.
package cmserrors

import (
	perrors "github.com/jmgilman/go/errors"
)

// NotFound reports a page or block reference that does not resolve.
func NotFound(format string, args ...any) error {
	return perrors.Newf(perrors.CodeNotFound, format, args...)
}

// Configuration reports a missing default template or a missing
// block-service or cache-backend registration.
func Configuration(format string, args ...any) error {
	return perrors.Newf(perrors.CodeInvalidConfig, format, args...)
}

// Render wraps a failure raised while executing a block.
func Render(cause error, format string, args ...any) error {
	if cause == nil {
		return perrors.Newf(perrors.CodeExecutionFailed, format, args...)
	}
	return perrors.Wrapf(cause, perrors.CodeExecutionFailed, format, args...)
}

// With attaches a context key to err, keeping its code.
func With(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	return perrors.WithContext(err, key, value)
}

func IsNotFound(err error) bool {
	return err != nil && perrors.GetCode(err) == perrors.CodeNotFound
}

func IsConfiguration(err error) bool {
	return err != nil && perrors.GetCode(err) == perrors.CodeInvalidConfig
}

func IsRender(err error) bool {
	return err != nil && perrors.GetCode(err) == perrors.CodeExecutionFailed
}
