package router

import (
	"errors"
	"fmt"
)

// Disconnect reasons reported by the chat network.
const (
	ReasonBadSession          = 500
	ReasonConnectionClosed    = 428
	ReasonConnectionLost      = 408
	ReasonConnectionReplaced  = 440
	ReasonLoggedOut           = 401
	ReasonMultideviceMismatch = 411
	ReasonRestartRequired     = 515
	ReasonUnavailableService  = 503
)

type Class string

const (
	ClassTransient        Class = "transient"
	ClassFatalCredentials Class = "fatal_credentials"
	ClassFatalReplaced    Class = "fatal_replaced"
	ClassUnknown          Class = "unknown"
)

var (
	ErrLoggedOut       = errors.New("session logged out, re-authentication required")
	ErrReplaced        = errors.New("connection replaced by another session")
	ErrRestartRequired = errors.New("unrecognised disconnect, restart required")
)

// Classify maps a disconnect reason to what the process should do. The
// error is nil for transient reasons. Unavailable service and multi-device
// mismatch fall through to a process restart.
func Classify(reason int) (Class, error) {
	switch reason {
	case ReasonConnectionLost, ReasonConnectionClosed, ReasonRestartRequired:
		return ClassTransient, nil
	case ReasonLoggedOut, ReasonBadSession:
		return ClassFatalCredentials, fmt.Errorf("reason %d: %w", reason, ErrLoggedOut)
	case ReasonConnectionReplaced:
		return ClassFatalReplaced, fmt.Errorf("reason %d: %w", reason, ErrReplaced)
	}
	return ClassUnknown, fmt.Errorf("reason %d: %w", reason, ErrRestartRequired)
}
