package fiscal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PrintReceipt runs the whole receipt life-cycle against one driver:
// defensive abort, open, items in document order, payments (or implicit full
// cash settlement), footer comments, close, and the post-close info query.
// The device itself holds the receipt state; this function mirrors it by
// aborting on the first failed sub-operation and returning immediately.
func PrintReceipt(d Driver, rcp *Receipt) (ReceiptInfo, DeviceStatus) {
	return printReceipt(d, rcp, func() (string, DeviceStatus) {
		return d.OpenReceipt(rcp.UniqueSaleNumber, rcp.Operator, rcp.OperatorPassword)
	})
}

// PrintReversalReceipt is PrintReceipt with a reversal open referencing the
// original receipt's number, date-time and fiscal memory serial.
func PrintReversalReceipt(d Driver, rcp *ReversalReceipt) (ReceiptInfo, DeviceStatus) {
	return printReceipt(d, &rcp.Receipt, func() (string, DeviceStatus) {
		return d.OpenReversalReceipt(rcp.Reason, rcp.ReceiptNumber, rcp.ReceiptDateTime,
			rcp.FiscalMemorySerialNumber, rcp.UniqueSaleNumber, rcp.Operator, rcp.OperatorPassword)
	})
}

func printReceipt(d Driver, rcp *Receipt, open func() (string, DeviceStatus)) (ReceiptInfo, DeviceStatus) {
	// Clear any receipt a previous failed sequence left open. The device
	// treats an abort with nothing open as a no-op.
	d.AbortReceipt()

	if _, status := open(); !status.Ok() {
		abortQuietly(d)
		status.AddInfo("Error occurred while opening the receipt")
		return ReceiptInfo{}, status
	}

	// Items apply in document order, fail-fast: the first non-Ok status
	// aborts the receipt and reports the 1-based item index.
	for i, item := range rcp.Items {
		if item.Type == ItemFooterComment {
			continue
		}
		if status := applyItem(d, item); !status.Ok() {
			abortQuietly(d)
			status.AddInfo(fmt.Sprintf("Error occurred in Item %d", i+1))
			return ReceiptInfo{}, status
		}
	}

	if len(realPayments(rcp.Payments)) == 0 {
		if status := applyFooterComments(d, rcp.Items); !status.Ok() {
			abortQuietly(d)
			return ReceiptInfo{}, status
		}
		// No tender instructions: implicit full cash settlement.
		if _, status := d.FullPaymentAndCloseReceipt(); !status.Ok() {
			abortQuietly(d)
			status.AddInfo("Error occurred while closing the receipt")
			return ReceiptInfo{}, status
		}
	} else {
		for i, p := range rcp.Payments {
			// Change entries are computed change, not tender; skipped.
			if p.Type == PaymentChange {
				continue
			}
			if _, status := d.AddPayment(p.Amount, p.Type); !status.Ok() {
				abortQuietly(d)
				status.AddInfo(fmt.Sprintf("Error occurred in Payment %d", i+1))
				return ReceiptInfo{}, status
			}
		}
		if status := applyFooterComments(d, rcp.Items); !status.Ok() {
			abortQuietly(d)
			return ReceiptInfo{}, status
		}
		if _, status := d.CloseReceipt(); !status.Ok() {
			abortQuietly(d)
			status.AddInfo("Error occurred while closing the receipt")
			return ReceiptInfo{}, status
		}
	}

	// The device, not the submitted document, is the source of truth for
	// the closed receipt's number, time and amount. A parse failure here is
	// surfaced as an Error even though the device-side close succeeded.
	info, status := d.LastReceiptInfo()
	if !status.Ok() {
		status.AddInfo("Receipt was closed but its data could not be read back")
		return ReceiptInfo{}, status
	}
	return info, status
}

func applyItem(d Driver, item Item) DeviceStatus {
	switch item.Type {
	case ItemComment:
		_, status := d.AddComment(item.Text)
		return status
	case ItemSurchargeAmount:
		_, status := d.SubtotalAdjustment(item.PriceModifierValue)
		return status
	case ItemDiscountAmount:
		_, status := d.SubtotalAdjustment(item.PriceModifierValue.Neg())
		return status
	default:
		_, status := d.AddItem(item.Department, item.Text, item.UnitPrice, item.TaxGroup,
			item.Quantity, item.PriceModifierValue, item.PriceModifierType)
		return status
	}
}

func applyFooterComments(d Driver, items []Item) DeviceStatus {
	for i, item := range items {
		if item.Type != ItemFooterComment {
			continue
		}
		if _, status := d.AddComment(item.Text); !status.Ok() {
			status.AddInfo(fmt.Sprintf("Error occurred in Item %d", i+1))
			return status
		}
	}
	return DeviceStatus{}
}

// abortQuietly is the failure-recovery path; its own failure must not mask
// the original error.
func abortQuietly(d Driver) {
	_, _ = d.AbortReceipt()
}

func realPayments(payments []Payment) []Payment {
	out := payments[:0:0]
	for _, p := range payments {
		if p.Type != PaymentChange {
			out = append(out, p)
		}
	}
	return out
}

// MoneyTransfer validates and signs a deposit or withdraw request before the
// single-command device call. A negative withdraw input is rejected, not
// coerced.
func MoneyTransfer(d Driver, amount decimal.Decimal, withdraw bool) DeviceStatus {
	if withdraw {
		if amount.IsNegative() {
			return StatusFromError(InvalidArgumentErrorf("withdraw amount must not be negative"))
		}
		amount = amount.Neg()
	}
	_, status := d.MoneyTransfer(amount)
	return status
}
