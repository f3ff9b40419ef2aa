// Package zfp implements the ZFP vendor family: one-byte opcodes with
// `;`-separated positional payload fields, fixed-width item names, and a
// six-byte trailing status vector.
package zfp

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

const (
	cmdGetStatus      = 0x20
	cmdSetDateTime    = 0x22
	cmdGetDateTime    = 0x23
	cmdOpenDrawer     = 0x2A
	cmdPaperFeed      = 0x2B
	cmdOpenReversal   = 0x2E
	cmdOpenReceipt    = 0x30
	cmdAddItem        = 0x31
	cmdAddComment     = 0x32
	cmdSubtotal       = 0x33
	cmdAddPayment     = 0x35
	cmdFullClose      = 0x36
	cmdCloseReceipt   = 0x38
	cmdAbortReceipt   = 0x39
	cmdMoneyTransfer  = 0x3B
	cmdDeviceInfo     = 0x60
	cmdLastReceipt    = 0x72
	cmdReportByDate   = 0x7B
	cmdDailyReport    = 0x7C
)

const (
	fieldSep = ";"
	// itemNameWidth is mandatory: firmware parses the name field
	// character-for-character.
	itemNameWidth = 36
	// maxDepartment keeps the offset-encoded department inside two hex digits.
	maxDepartment  = 0x7F
	commentMaxLen  = 36
	statusLen      = 6
	dateTimeLayout = "02-01-2006 15:04:05"
	reportDateFmt  = "020106"
)

var taxTokens = map[fiscal.TaxGroup]string{
	fiscal.TaxGroupA: "A",
	fiscal.TaxGroupB: "B",
	fiscal.TaxGroupC: "C",
	fiscal.TaxGroupD: "D",
	fiscal.TaxGroupE: "E",
	fiscal.TaxGroupF: "F",
	fiscal.TaxGroupG: "G",
	fiscal.TaxGroupH: "H",
}

var defaultPaymentTokens = map[fiscal.PaymentType]string{
	fiscal.PaymentCash:    "0",
	fiscal.PaymentCard:    "1",
	fiscal.PaymentCheck:   "2",
	fiscal.PaymentVoucher: "3",
	fiscal.PaymentBank:    "4",
}

var reversalTokens = map[fiscal.ReversalReason]string{
	fiscal.ReversalOperatorError:    "0",
	fiscal.ReversalRefund:           "1",
	fiscal.ReversalTaxBaseReduction: "2",
}

func taxToken(g fiscal.TaxGroup) (string, error) {
	t, ok := taxTokens[g]
	if !ok {
		return "", fiscal.UnsupportedErrorf("tax group %q has no ZFP mapping", g)
	}
	return t, nil
}

func reversalToken(r fiscal.ReversalReason) (string, error) {
	t, ok := reversalTokens[r]
	if !ok {
		return "", fiscal.UnsupportedErrorf("reversal reason %q has no ZFP mapping", r)
	}
	return t, nil
}

// buildItemPayload encodes one sale line. Field order and widths are part of
// the protocol:
//
//	<name:36>;<taxToken|deptHex>;<price>[*qty][,±pct|:±amt]
func buildItemPayload(department int, text string, unitPrice decimal.Decimal,
	taxGroup fiscal.TaxGroup, quantity decimal.Decimal,
	modValue decimal.Decimal, modType fiscal.PriceModifierType) (string, error) {

	var sel string
	if department > 0 {
		// Department path: offset-encoded, two uppercase hex digits.
		if department > maxDepartment {
			return "", fiscal.InvalidArgumentErrorf(
				"department %d exceeds the ZFP maximum of %d", department, maxDepartment)
		}
		sel = fmt.Sprintf("%02X", department+0x80)
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
		fiscal.FixWidth(text, itemNameWidth),
		sel,
		price + mod,
	}, fieldSep), nil
}

// modifierSuffix renders the price modifier as a signed magnitude behind the
// delimiter that selects percent (`,`) or amount (`:`) interpretation.
func modifierSuffix(value decimal.Decimal, mod fiscal.PriceModifierType) (string, error) {
	switch mod {
	case "", fiscal.ModifierNone:
		return "", nil
	case fiscal.ModifierDiscountPercent:
		return ",-" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierSurchargePercent:
		return ",+" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierDiscountAmount:
		return ":-" + fiscal.FormatAmount(value), nil
	case fiscal.ModifierSurchargeAmount:
		return ":+" + fiscal.FormatAmount(value), nil
	default:
		return "", fiscal.UnsupportedErrorf("price modifier %q has no ZFP mapping", mod)
	}
}

// subtotalPayload applies a signed absolute adjustment on the running
// subtotal; print and display flags are always on.
func subtotalPayload(amount decimal.Decimal) string {
	sign := "+"
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return "1" + fieldSep + "1" + fieldSep + ":" + sign + fiscal.FormatAmount(amount)
}

// parseLastReceipt parses the post-close trailer payload:
//
//	<fmSerial>*<receiptNumber>*<dateTime>*<amount>
func parseLastReceipt(payload string) (fiscal.ReceiptInfo, error) {
	fields := strings.Split(payload, "*")
	if len(fields) != 4 {
		return fiscal.ReceiptInfo{}, fiscal.SyntaxErrorf(
			"last receipt payload has %d fields, need 4: %q", len(fields), payload)
	}
	when, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(fields[2]), time.Local)
	if err != nil {
		return fiscal.ReceiptInfo{}, fiscal.SyntaxErrorf(
			"bad receipt date-time %q", fields[2])
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
