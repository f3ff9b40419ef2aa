package fiscal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxGroup is a device tax group letter. Each vendor driver maps groups to
// its own protocol token; an unmapped group fails with ErrUnsupportedValue.
type TaxGroup string

const (
	TaxGroupA TaxGroup = "A"
	TaxGroupB TaxGroup = "B"
	TaxGroupC TaxGroup = "C"
	TaxGroupD TaxGroup = "D"
	TaxGroupE TaxGroup = "E"
	TaxGroupF TaxGroup = "F"
	TaxGroupG TaxGroup = "G"
	TaxGroupH TaxGroup = "H"
)

// PaymentType names a tender instruction. Mappings to protocol tokens are
// per vendor and overridable per device serial number from configuration.
type PaymentType string

const (
	PaymentCash    PaymentType = "cash"
	PaymentCard    PaymentType = "card"
	PaymentCheck   PaymentType = "check"
	PaymentVoucher PaymentType = "voucher"
	PaymentBank    PaymentType = "bank"
	// PaymentChange marks computed change in a document. It is never sent to
	// the device; the receipt orchestration skips it.
	PaymentChange PaymentType = "change"
)

// PriceModifierType selects how Item.PriceModifierValue applies.
type PriceModifierType string

const (
	ModifierNone             PriceModifierType = "none"
	ModifierDiscountPercent  PriceModifierType = "discount-percent"
	ModifierDiscountAmount   PriceModifierType = "discount-amount"
	ModifierSurchargePercent PriceModifierType = "surcharge-percent"
	ModifierSurchargeAmount  PriceModifierType = "surcharge-amount"
)

// ReversalReason is the legal ground for a reversal receipt.
type ReversalReason string

const (
	ReversalOperatorError    ReversalReason = "operator-error"
	ReversalRefund           ReversalReason = "refund"
	ReversalTaxBaseReduction ReversalReason = "tax-base-reduction"
)

// ItemType tags one line of a receipt document.
type ItemType string

const (
	// ItemSale invokes a priced sale registration.
	ItemSale ItemType = "sale"
	// ItemComment prints as free text inside the receipt body.
	ItemComment ItemType = "comment"
	// ItemFooterComment prints after payments, before the close.
	ItemFooterComment ItemType = "footer-comment"
	// ItemSurchargeAmount adds an absolute surcharge on the subtotal.
	ItemSurchargeAmount ItemType = "surcharge-amount"
	// ItemDiscountAmount subtracts an absolute discount from the subtotal.
	ItemDiscountAmount ItemType = "discount-amount"
)

// Item is one ordered line of a receipt document.
type Item struct {
	Type ItemType `json:"type"`
	Text string   `json:"text"`
	// Department <= 0 selects the tax-group sale path; > 0 selects the
	// department path (the department number is offset-encoded on the wire).
	Department         int               `json:"department,omitempty"`
	UnitPrice          decimal.Decimal   `json:"unitPrice"`
	TaxGroup           TaxGroup          `json:"taxGroup,omitempty"`
	Quantity           decimal.Decimal   `json:"quantity"`
	PriceModifierValue decimal.Decimal   `json:"priceModifierValue"`
	PriceModifierType  PriceModifierType `json:"priceModifierType,omitempty"`
}

// Payment is one tender line of a receipt document.
type Payment struct {
	Amount decimal.Decimal `json:"amount"`
	Type   PaymentType     `json:"paymentType"`
}

// Receipt is the input document for a fiscal sale.
type Receipt struct {
	UniqueSaleNumber string    `json:"uniqueSaleNumber"`
	Operator         string    `json:"operator,omitempty"`
	OperatorPassword string    `json:"operatorPassword,omitempty"`
	Items            []Item    `json:"items"`
	Payments         []Payment `json:"payments,omitempty"`
}

// ReversalReceipt voids a previously issued receipt.
type ReversalReceipt struct {
	Receipt
	Reason ReversalReason `json:"reason"`
	// ReceiptNumber, ReceiptDateTime and FiscalMemorySerialNumber identify
	// the original receipt being reversed.
	ReceiptNumber            string    `json:"receiptNumber"`
	ReceiptDateTime          time.Time `json:"receiptDateTime"`
	FiscalMemorySerialNumber string    `json:"fiscalMemorySerialNumber"`
}

// ReceiptInfo is the device-side record of a closed receipt, parsed from the
// vendor's post-close query. Populated only when the close succeeded.
type ReceiptInfo struct {
	FiscalMemorySerialNumber string          `json:"fiscalMemorySerialNumber,omitempty"`
	ReceiptNumber            string          `json:"receiptNumber,omitempty"`
	ReceiptDateTime          time.Time       `json:"receiptDateTime,omitempty"`
	ReceiptAmount            decimal.Decimal `json:"receiptAmount"`
}

// DeviceInfo describes one connected printer and its protocol limits.
type DeviceInfo struct {
	SerialNumber             string `json:"serialNumber"`
	FiscalMemorySerialNumber string `json:"fiscalMemorySerialNumber"`
	Model                    string `json:"model"`
	Firmware                 string `json:"firmware,omitempty"`
	URI                      string `json:"uri"`
	ItemTextMaxLength        int    `json:"itemTextMaxLength"`
	CommentTextMaxLength     int    `json:"commentTextMaxLength"`
}

// Command is one encoded device request: a single opcode byte plus a
// vendor-delimited text payload. Immutable once built.
type Command struct {
	Opcode  byte
	Payload string
}

// RawResponse is one decoded device reply: the payload text and the
// fixed-length status byte vector, produced once per request.
type RawResponse struct {
	Payload string
	Status  []byte
}

// Channel is the byte transport a driver talks through. Implementations own
// framing and checksums; the driver sees whole request/response payloads.
// Both calls may block for the duration of one command round-trip.
type Channel interface {
	Send(data []byte) error
	Receive() ([]byte, error)
}

// ReportType selects the content of a by-date report.
type ReportType string

const (
	ReportBrief    ReportType = "brief"
	ReportDetailed ReportType = "detailed"
)
