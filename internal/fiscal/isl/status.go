package isl

import "github.com/adcondev/fiscal-daemon/internal/fiscal"

// statusTable is the fixed ISL bit-table: four bytes, eight entries per
// byte, high bit first. This family has no switch-state byte.
var statusTable = fiscal.StatusTable{
	ByteCount:  statusLen,
	SwitchByte: -1,
	Entries: []fiscal.StatusBit{
		// byte 0
		{Severity: fiscal.SeverityReserved},
		{Code: "E201", Text: "General error", Severity: fiscal.SeverityError},
		{Code: "E202", Text: "Invalid command", Severity: fiscal.SeverityError},
		{Code: "E203", Text: "Syntax error in command data", Severity: fiscal.SeverityError},
		{Code: "E204", Text: "Clock is not set", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		{Code: "E205", Text: "Command not permitted in this mode", Severity: fiscal.SeverityError},
		{Code: "E206", Text: "Sum field overflow", Severity: fiscal.SeverityError},
		// byte 1
		{Severity: fiscal.SeverityReserved},
		{Code: "E211", Text: "No paper", Severity: fiscal.SeverityError},
		{Code: "W211", Text: "Paper near end", Severity: fiscal.SeverityWarning},
		{Code: "E212", Text: "Printing mechanism fault", Severity: fiscal.SeverityError},
		{Text: "Fiscal receipt is open", Severity: fiscal.SeverityInfo},
		{Text: "Non-fiscal receipt is open", Severity: fiscal.SeverityInfo},
		{Code: "W212", Text: "Low supply voltage", Severity: fiscal.SeverityWarning},
		{Severity: fiscal.SeverityReserved},
		// byte 2
		{Severity: fiscal.SeverityReserved},
		{Code: "E221", Text: "Fiscal memory write error", Severity: fiscal.SeverityError},
		{Code: "E222", Text: "Fiscal memory is full", Severity: fiscal.SeverityError},
		{Code: "W221", Text: "Less than 50 fiscal memory records left", Severity: fiscal.SeverityWarning},
		{Text: "Device is fiscalized", Severity: fiscal.SeverityInfo},
		{Code: "E223", Text: "Serial number is not programmed", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		// byte 3
		{Severity: fiscal.SeverityReserved},
		{Code: "E231", Text: "Payment already started", Severity: fiscal.SeverityError},
		{Code: "E232", Text: "Daily report with zeroing required", Severity: fiscal.SeverityError},
		{Text: "Daily registers are not empty", Severity: fiscal.SeverityInfo},
		{Code: "W231", Text: "RAM was reset", Severity: fiscal.SeverityWarning},
		{Code: "E233", Text: "Tax rates are not set", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
	},
}
