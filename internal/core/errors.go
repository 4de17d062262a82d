package core

import "errors"

// UserError is an error whose message is meant to be shown to a
// non-technical operator. It always carries remediation text: what went
// wrong and what to do about it. Anything else that escapes the pipeline
// is an internal failure.
type UserError struct {
	msg string
}

func (e *UserError) Error() string {
	return e.msg
}

// NewUserError builds a user-facing error from a prebuilt message.
func NewUserError(msg string) *UserError {
	return &UserError{msg: msg}
}

// IsUserError reports whether err is (or wraps) a user-facing error.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
