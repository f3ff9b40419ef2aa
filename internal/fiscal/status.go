// Package fiscal defines the vendor-independent model for fiscal printers:
// device status, receipt documents, the driver contract, and the receipt
// life-cycle orchestration shared by all vendor drivers.
package fiscal

import "fmt"

// Severity classifies a single status message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	// SeverityReserved marks table slots with no meaning; decoded bits with
	// this severity are never surfaced.
	SeverityReserved
)

// String returns the lowercase name used in JSON responses and logs.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "reserved"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusMessage is one decoded or annotated device condition.
type StatusMessage struct {
	Severity Severity `json:"type"`
	Code     string   `json:"code,omitempty"`
	Text     string   `json:"text"`
}

// DeviceStatus collects the messages produced by one device operation.
// It is built fresh per operation; the driver layer may append contextual
// annotations on top of the messages decoded from the status bytes.
type DeviceStatus struct {
	Messages []StatusMessage `json:"messages"`
}

// Ok reports whether no Error-severity message is present. It is derived,
// never stored, so annotations cannot get it out of sync.
func (s *DeviceStatus) Ok() bool {
	for _, m := range s.Messages {
		if m.Severity == SeverityError {
			return false
		}
	}
	return true
}

// AddInfo appends an informational message.
func (s *DeviceStatus) AddInfo(text string) {
	s.Messages = append(s.Messages, StatusMessage{Severity: SeverityInfo, Text: text})
}

// AddWarning appends a warning with an optional short code.
func (s *DeviceStatus) AddWarning(code, text string) {
	s.Messages = append(s.Messages, StatusMessage{Severity: SeverityWarning, Code: code, Text: text})
}

// AddError appends an error with an optional short code.
func (s *DeviceStatus) AddError(code, text string) {
	s.Messages = append(s.Messages, StatusMessage{Severity: SeverityError, Code: code, Text: text})
}

// FirstErrorText returns the text of the first Error message, or "".
func (s *DeviceStatus) FirstErrorText() string {
	for _, m := range s.Messages {
		if m.Severity == SeverityError {
			return m.Text
		}
	}
	return ""
}

// StatusBit is one entry of a vendor status bit-table.
type StatusBit struct {
	Code     string
	Text     string
	Severity Severity
}

// StatusTable maps a fixed-length status byte vector to messages. Entries are
// ordered high bit first within each byte: Entries[byteIdx*8] describes bit 7
// of that byte, Entries[byteIdx*8+7] describes bit 0.
type StatusTable struct {
	// Entries must hold exactly 8*ByteCount items.
	Entries []StatusBit
	// ByteCount is the mandatory status vector length for this vendor.
	ByteCount int
	// SwitchByte marks one byte position as a DIP-switch state byte instead
	// of a status-bit byte; -1 when the vendor has none. Its bits (except the
	// top one) render as informational SWn=ON/OFF lines.
	SwitchByte int
}

// Decode maps raw status bytes to a DeviceStatus. It is pure: the same input
// always yields the same output. A vector of unexpected length produces a
// single syntax error instead of a partial decode.
func (t *StatusTable) Decode(status []byte) DeviceStatus {
	var ds DeviceStatus
	if len(status) != t.ByteCount {
		ds.AddError(CodeProtocolSyntax,
			fmt.Sprintf("Unexpected status length: got %d bytes, need %d", len(status), t.ByteCount))
		return ds
	}
	for i, b := range status {
		if i == t.SwitchByte {
			decodeSwitchByte(&ds, b)
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) == 0 {
				continue
			}
			entry := t.Entries[i*8+(7-bit)]
			if entry.Severity == SeverityReserved {
				continue
			}
			ds.Messages = append(ds.Messages, StatusMessage{
				Severity: entry.Severity,
				Code:     entry.Code,
				Text:     entry.Text,
			})
		}
	}
	return ds
}

// decodeSwitchByte renders bits 0..6 as SW1..SW7 state lines. The top bit is
// a parity/marker bit on these devices and is skipped.
func decodeSwitchByte(ds *DeviceStatus, b byte) {
	for i := 0; i < 7; i++ {
		state := "OFF"
		if b&(1<<uint(i)) != 0 {
			state = "ON"
		}
		ds.AddInfo(fmt.Sprintf("SW%d=%s", i+1, state))
	}
}
