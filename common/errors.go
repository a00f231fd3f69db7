package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for collection failures.
var (
	ErrDeviceNotFound        = errors.New("device not found")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrUnsupportedDeviceKind = errors.New("unsupported device kind")
	ErrStoreUnavailable      = errors.New("snapshot store unavailable")
)

// TransportError - Failure to open, run or read a remote command session.
type TransportError struct {
	Device  string
	Address string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s (%s): %v", e.Op, e.Device, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewUnsupportedDeviceKindError - Wrap ErrUnsupportedDeviceKind with the offending device and kind.
func NewUnsupportedDeviceKindError(deviceID string, kind DeviceKind) error {
	return fmt.Errorf("%w: device %s has kind %q", ErrUnsupportedDeviceKind, deviceID, kind)
}
