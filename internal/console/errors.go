package console

import (
	"errors"
	"fmt"
)

// UserError is shown to the operator as is. It reports bad input or a refused
// request, not a failure of the peer.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func NewUserError(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// errQuit ends the session.
var errQuit = errors.New("quit")
