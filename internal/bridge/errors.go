package bridge

import (
	"errors"
	"fmt"
)

// ErrPrivateHost is returned for media fetches aimed at loopback, private
// or link-local addresses
var ErrPrivateHost = errors.New("refusing to fetch a private address")

// TransportError is a failed exchange with the other side. Status and Body
// are kept raw for diagnostics.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("request failed with status: %d. Body: %s", e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("request failed with status: %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("transport: %v", e.Err)
	default:
		return "transport failure"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a {success: false, error} reply from the privileged side
type RemoteError struct {
	Action  Action
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}
