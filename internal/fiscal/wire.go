package fiscal

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodeText converts UTF-8 command text to the CP1251 bytes the devices
// expect on the wire.
func EncodeText(s string) ([]byte, error) {
	out, _, err := transform.Bytes(charmap.Windows1251.NewEncoder(), []byte(s))
	if err != nil {
		return nil, SyntaxErrorf("cannot encode text to CP1251: %v", err)
	}
	return out, nil
}

// DecodeText converts CP1251 response bytes back to UTF-8.
func DecodeText(b []byte) (string, error) {
	out, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), b)
	if err != nil {
		return "", SyntaxErrorf("cannot decode CP1251 response text: %v", err)
	}
	return string(out), nil
}

// FormatAmount renders a money value with exactly two fractional digits and
// an invariant decimal separator. Firmware parses these fields positionally;
// any other shape is a protocol error, not a style choice.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity invariantly, without zero padding.
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}

// FixWidth truncates then right-pads text with spaces to exactly width
// characters, for vendors whose firmware requires fixed-width fields.
func FixWidth(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}

// Truncate cuts text at max characters without padding.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// DefaultOperator substitutes the configured fallbacks for empty operator
// credentials.
func DefaultOperator(id, password, defaultID, defaultPassword string) (string, string) {
	if id == "" {
		id = defaultID
	}
	if password == "" {
		password = defaultPassword
	}
	return id, password
}

// ParseAmount parses a device-reported money field.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, SyntaxErrorf("bad amount field %q", s)
	}
	return d, nil
}

// Requestor is implemented by vendor drivers for the single command
// round-trip: encode, send, receive, split status. Kept internal to the
// fiscal packages; exposed for the shared RoundTrip helper.
type Requestor interface {
	Request(cmd Command) (RawResponse, error)
	Table() *StatusTable
}

// RoundTrip performs one command exchange and decodes the status vector.
// Transport and syntax failures come back as an Error DeviceStatus, never as
// a raw error.
func RoundTrip(r Requestor, cmd Command) (string, DeviceStatus) {
	resp, err := r.Request(cmd)
	if err != nil {
		return "", StatusFromError(err)
	}
	return resp.Payload, r.Table().Decode(resp.Status)
}

// SplitFields splits a response payload on the vendor delimiter and checks
// the positional field count.
func SplitFields(payload, delim string, want int) ([]string, error) {
	fields := strings.Split(payload, delim)
	if len(fields) != want {
		return nil, SyntaxErrorf("got %d fields, need %d in %q", len(fields), want, payload)
	}
	return fields, nil
}
