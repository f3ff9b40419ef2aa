package fiscal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Driver is the operation set every vendor variant implements. The shape is
// constant across vendors; only the wire encoding differs. Methods never
// return raw errors: every failure is converted to a DeviceStatus whose Ok
// is false, so the receipt orchestration sees one uniform failure signal.
//
// Raw payload strings are returned alongside the status for diagnostics;
// callers outside tests normally ignore them.
type Driver interface {
	// DeviceInfo returns the identity and protocol limits captured when the
	// driver connected. It does not touch the device.
	DeviceInfo() DeviceInfo

	// GetStatus probes the device with a zero-payload command.
	GetStatus() DeviceStatus

	// GetDateTime reads the device clock. On a non-Ok status or a response
	// that does not parse against the vendor's fixed date-time format it
	// returns the zero time and an Error status coded CodeWrongDateTime.
	GetDateTime() (time.Time, DeviceStatus)
	SetDateTime(t time.Time) DeviceStatus

	OpenReceipt(saleNumber, operatorID, operatorPassword string) (string, DeviceStatus)
	OpenReversalReceipt(reason ReversalReason, origReceiptNumber string,
		origDateTime time.Time, origFMSerial, saleNumber, operatorID, operatorPassword string) (string, DeviceStatus)

	AddItem(department int, text string, unitPrice decimal.Decimal, taxGroup TaxGroup,
		quantity decimal.Decimal, modValue decimal.Decimal, modType PriceModifierType) (string, DeviceStatus)

	// AddComment prints free text inside an open receipt. Overlong text is
	// truncated to the device maximum, never rejected.
	AddComment(text string) (string, DeviceStatus)

	AddPayment(amount decimal.Decimal, payment PaymentType) (string, DeviceStatus)

	// SubtotalAdjustment applies an absolute amount on the current subtotal;
	// discounts are passed negated.
	SubtotalAdjustment(amount decimal.Decimal) (string, DeviceStatus)

	CloseReceipt() (string, DeviceStatus)
	// AbortReceipt cancels an open receipt. Aborting when nothing is open is
	// a device-side no-op and must not produce an Error status.
	AbortReceipt() (string, DeviceStatus)
	// FullPaymentAndCloseReceipt settles the full residual amount in cash
	// and closes in one command.
	FullPaymentAndCloseReceipt() (string, DeviceStatus)

	// LastReceiptInfo queries the trailer/QR payload of the last closed
	// receipt and parses it into ReceiptInfo.
	LastReceiptInfo() (ReceiptInfo, DeviceStatus)

	// MoneyTransfer deposits (positive) or withdraws (negative) cash from
	// the drawer, outside the receipt state machine.
	MoneyTransfer(amount decimal.Decimal) (string, DeviceStatus)

	PrintDailyReport(zeroing bool) (string, DeviceStatus)
	PrintReportForDate(start, end time.Time, report ReportType) (string, DeviceStatus)

	OpenDrawer() DeviceStatus
	PaperFeed(lines int) DeviceStatus
}
