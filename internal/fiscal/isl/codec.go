// Package isl implements the ISL vendor family: one-byte opcodes with
// `,`-separated positional payload fields and a four-byte status vector at
// the head of every response frame.
package isl

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

const (
	cmdOpenReversal  = 0x2E
	cmdOpenReceipt   = 0x30
	cmdAddItem       = 0x31
	cmdPaperFeed     = 0x2C
	cmdAbortReceipt  = 0x3C
	cmdSetDateTime   = 0x3D
	cmdGetDateTime   = 0x3E
	cmdAddPayment    = 0x35
	cmdAddComment    = 0x36
	cmdCloseReceipt  = 0x38
	cmdSubtotal      = 0x33
	cmdDailyReport   = 0x45
	cmdMoneyTransfer = 0x46
	cmdGetStatus     = 0x4A
	cmdDeviceInfo    = 0x5A
	cmdReportByDate  = 0x5E
	cmdOpenDrawer    = 0x6A
	cmdLastReceipt   = 0x74
)

const (
	fieldSep       = ","
	itemTextMaxLen = 22
	commentMaxLen  = 28
	statusLen      = 4
	dateTimeLayout = "02-01-06 15:04:05"
	reportDateFmt  = "020106"
)

// Only groups A-D exist on this family; the rest fail as unsupported.
var taxTokens = map[fiscal.TaxGroup]string{
	fiscal.TaxGroupA: "1",
	fiscal.TaxGroupB: "2",
	fiscal.TaxGroupC: "3",
	fiscal.TaxGroupD: "4",
}

var defaultPaymentTokens = map[fiscal.PaymentType]string{
	fiscal.PaymentCash:    "P",
	fiscal.PaymentCard:    "C",
	fiscal.PaymentCheck:   "N",
	fiscal.PaymentVoucher: "D",
}

var reversalTokens = map[fiscal.ReversalReason]string{
	fiscal.ReversalOperatorError:    "E",
	fiscal.ReversalRefund:           "R",
	fiscal.ReversalTaxBaseReduction: "T",
}

func taxToken(g fiscal.TaxGroup) (string, error) {
	t, ok := taxTokens[g]
	if !ok {
		return "", fiscal.UnsupportedErrorf("tax group %q has no ISL mapping", g)
	}
	return t, nil
}

func reversalToken(r fiscal.ReversalReason) (string, error) {
	t, ok := reversalTokens[r]
	if !ok {
		return "", fiscal.UnsupportedErrorf("reversal reason %q has no ISL mapping", r)
	}
	return t, nil
}

// buildItemPayload encodes one sale line. There is no fixed name width on
// this family; names are truncated at the device maximum:
//
//	<text>,<taxDigit|dept>,<price>[*qty][;±pct|:±amt]
func buildItemPayload(department int, text string, unitPrice decimal.Decimal,
	taxGroup fiscal.TaxGroup, quantity decimal.Decimal,
	modValue decimal.Decimal, modType fiscal.PriceModifierType) (string, error) {

	var sel string
	if department > 0 {
		// Plain decimal department index on this family.
		sel = strconv.Itoa(department)
	} else {
		var err error
		if sel, err = taxToken(taxGroup); err != nil {
			return "", err
		}
	}

	price := fiscal.FormatAmount(unitPrice)
	if !quantity.IsZero() {
		price += "*" + fiscal.FormatQuantity(quantity)
	}

	mod, err := modifierSuffix(modValue, modType)
	if err != nil {
		return "", err
	}

	return strings.Join([]string{
		fiscal.Truncate(text, itemTextMaxLen),
		sel,
		price + mod,
	}, fieldSep), nil
}

// modifierSuffix: percent behind `;`, absolute amount behind `:`.
func modifierSuffix(value decimal.Decimal, mod fiscal.PriceModifierType) (string, error) {
	switch mod {
	case "", fiscal.ModifierNone:
		return "", nil
	case fiscal.ModifierDiscountPercent:
		return ";-" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierSurchargePercent:
		return ";+" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierDiscountAmount:
		return ":-" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierSurchargeAmount:
		return ":+" + fiscal.FormatAmount(value), nil
	default:
		return "", fiscal.UnsupportedErrorf("price modifier %q has no ISL mapping", mod)
	}
}

// parseLastReceipt parses the post-close query payload:
//
//	<fmSerial>,<receiptNumber>,<dateTime>,<amount>
func parseLastReceipt(payload string) (fiscal.ReceiptInfo, error) {
	fields, err := fiscal.SplitFields(payload, fieldSep, 4)
	if err != nil {
		return fiscal.ReceiptInfo{}, err
	}
	when, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(fields[2]), time.Local)
	if err != nil {
		return fiscal.ReceiptInfo{}, fiscal.SyntaxErrorf("bad receipt date-time %q", fields[2])
	}
	amount, err := fiscal.ParseAmount(fields[3])
	if err != nil {
		return fiscal.ReceiptInfo{}, err
	}
	return fiscal.ReceiptInfo{
		FiscalMemorySerialNumber: strings.TrimSpace(fields[0]),
		ReceiptNumber:            strings.TrimSpace(fields[1]),
		ReceiptDateTime:          when,
		ReceiptAmount:            amount,
	}, nil
}
