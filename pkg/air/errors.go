package air

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy indicates a previous send is still outstanding.
	ErrBusy = errors.New("send outstanding")
	// ErrClosed indicates the link is closed.
	ErrClosed = errors.New("link closed")
	// ErrAddrInUse indicates the station address is taken on the channel.
	ErrAddrInUse = errors.New("address in use")
	// ErrInvalidAddr indicates a malformed station address.
	ErrInvalidAddr = errors.New("invalid station address")
)

// UnknownSchemeError indicates no driver is registered for a URL scheme.
type UnknownSchemeError struct {
	Scheme string
}

// Error implements error.
func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown air link scheme: %q", e.Scheme)
}
