package zfp

import "github.com/adcondev/fiscal-daemon/internal/fiscal"

// statusTable is the fixed ZFP bit-table: six bytes, eight entries per byte,
// high bit first. Byte 4 carries the DIP-switch states and is rendered as
// SWn=ON/OFF lines instead of being looked up here.
var statusTable = fiscal.StatusTable{
	ByteCount:  statusLen,
	SwitchByte: 4,
	Entries: []fiscal.StatusBit{
		// byte 0
		{Severity: fiscal.SeverityReserved},
		{Code: "E101", Text: "General error", Severity: fiscal.SeverityError},
		{Code: "E102", Text: "Invalid command code", Severity: fiscal.SeverityError},
		{Code: "E103", Text: "Command syntax error", Severity: fiscal.SeverityError},
		{Code: "E104", Text: "Date and time are not set", Severity: fiscal.SeverityError},
		{Code: "W101", Text: "Real-time clock battery is low", Severity: fiscal.SeverityWarning},
		{Severity: fiscal.SeverityReserved},
		{Code: "E105", Text: "Printing unit fault", Severity: fiscal.SeverityError},
		// byte 1
		{Severity: fiscal.SeverityReserved},
		{Code: "E111", Text: "Sum overflow", Severity: fiscal.SeverityError},
		{Code: "E112", Text: "Operation not permitted in this mode", Severity: fiscal.SeverityError},
		{Code: "W111", Text: "RAM was reset", Severity: fiscal.SeverityWarning},
		{Code: "E113", Text: "Tax rates are not set", Severity: fiscal.SeverityError},
		{Code: "E114", Text: "Serial number is not programmed", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		{Code: "E115", Text: "Printer cover is open", Severity: fiscal.SeverityError},
		// byte 2
		{Severity: fiscal.SeverityReserved},
		{Code: "E121", Text: "No paper", Severity: fiscal.SeverityError},
		{Code: "W121", Text: "Paper near end", Severity: fiscal.SeverityWarning},
		{Text: "Fiscal receipt is open", Severity: fiscal.SeverityInfo},
		{Text: "Non-fiscal receipt is open", Severity: fiscal.SeverityInfo},
		{Code: "W122", Text: "Printer overheating", Severity: fiscal.SeverityWarning},
		{Code: "E122", Text: "Cutter fault", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		// byte 3
		{Severity: fiscal.SeverityReserved},
		{Code: "E131", Text: "Fiscal memory store error", Severity: fiscal.SeverityError},
		{Code: "E132", Text: "Fiscal memory is full", Severity: fiscal.SeverityError},
		{Code: "W131", Text: "Fiscal memory almost full", Severity: fiscal.SeverityWarning},
		{Text: "Device is fiscalized", Severity: fiscal.SeverityInfo},
		{Code: "E133", Text: "Fiscal memory read error", Severity: fiscal.SeverityError},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		// byte 4: switch-state byte, entries unused
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		// byte 5
		{Severity: fiscal.SeverityReserved},
		{Code: "E151", Text: "Payment already started", Severity: fiscal.SeverityError},
		{Code: "E152", Text: "Daily report required (24h exceeded)", Severity: fiscal.SeverityError},
		{Text: "Daily registers are not empty", Severity: fiscal.SeverityInfo},
		{Code: "W151", Text: "Low external voltage", Severity: fiscal.SeverityWarning},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
		{Severity: fiscal.SeverityReserved},
	},
}
