// Package host - Handle table, errors and console bridging for foreign callers.
package host

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownHandle is returned for handles never issued or already released.
var ErrUnknownHandle = errors.New("unknown or released model handle")

// Error is what a host sees when a call fails: the operation and the
// underlying message.
type Error struct {
	Op      string
	Message string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the Go error for errors.Is checks on the Go side.
func (e *Error) Unwrap() error { return e.err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Message: err.Error(), err: err}
}

// Exception renders err as the message a host throws. It returns "" for nil.
func Exception(err error) string {
	if err == nil {
		return ""
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Message
	}
	return err.Error()
}
