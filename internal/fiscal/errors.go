package fiscal

import (
	"errors"
	"fmt"
)

// Failure kinds crossing the codec/driver boundary. Drivers convert these to
// a DeviceStatus with the matching short code; they never escape the driver
// as raw errors.
var (
	// ErrProtocolSyntax marks a malformed or unparsable device response.
	ErrProtocolSyntax = errors.New("protocol syntax error")
	// ErrUnsupportedValue marks an enum with no mapping for this vendor.
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrInvalidArgument marks a caller-supplied value violating a precondition.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransport marks a channel-level send/receive failure.
	ErrTransport = errors.New("transport failure")
)

// Short codes carried by status messages raised at this layer. Vendor
// bit-tables use their own E1xx/W1xx codes.
const (
	CodeProtocolSyntax   = "E401"
	CodeUnsupportedValue = "E402"
	CodeInvalidArgument  = "E403"
	CodeTransport        = "E404"
	// CodeWrongDateTime is raised when a device date-time response does not
	// parse against the vendor's fixed format.
	CodeWrongDateTime = "E409"
)

// StatusFromError converts a codec/transport failure into the uniform
// DeviceStatus failure shape used by the receipt orchestration.
func StatusFromError(err error) DeviceStatus {
	var ds DeviceStatus
	switch {
	case errors.Is(err, ErrProtocolSyntax):
		ds.AddError(CodeProtocolSyntax, err.Error())
	case errors.Is(err, ErrUnsupportedValue):
		ds.AddError(CodeUnsupportedValue, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		ds.AddError(CodeInvalidArgument, err.Error())
	case errors.Is(err, ErrTransport):
		ds.AddError(CodeTransport, err.Error())
	default:
		ds.AddError("E400", err.Error())
	}
	return ds
}

// SyntaxErrorf builds an ErrProtocolSyntax-wrapped error.
func SyntaxErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrProtocolSyntax}, args...)...)
}

// UnsupportedErrorf builds an ErrUnsupportedValue-wrapped error.
func UnsupportedErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUnsupportedValue}, args...)...)
}

// InvalidArgumentErrorf builds an ErrInvalidArgument-wrapped error.
func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidArgument}, args...)...)
}

// TransportErrorf wraps a channel failure.
func TransportErrorf(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
