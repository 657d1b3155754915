package tv

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds a caller can branch on.
var (
	// ErrNotConnected is returned when an operation is attempted before the
	// client reaches the Ready state. No network I/O is performed.
	ErrNotConnected = errors.New("not connected to TV")

	// ErrConnectionLost fans out to every outstanding request when the
	// connection drops mid-session.
	ErrConnectionLost = errors.New("connection to TV lost")

	// ErrTimeout is returned when no response frame arrives within the
	// configured deadline.
	ErrTimeout = errors.New("request timed out")
)

// DeviceError is an explicit error frame returned by the TV for a request.
// Status and Payload are passed through verbatim.
type DeviceError struct {
	Status  string          // the frame's error field, e.g. "401 insufficient permissions"
	Payload json.RawMessage // raw error payload, if any
}

func (e *DeviceError) Error() string {
	if e.Status == "" {
		return "TV returned an error"
	}
	return fmt.Sprintf("TV returned an error: %s", e.Status)
}

// PairingError is a terminal error frame during the registration handshake.
type PairingError struct {
	Status string
}

func (e *PairingError) Error() string {
	if e.Status == "" {
		return "pairing rejected by TV"
	}
	return fmt.Sprintf("pairing rejected by TV: %s", e.Status)
}
