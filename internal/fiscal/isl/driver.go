package isl

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

const (
	defaultOperatorID       = "1"
	defaultOperatorPassword = "0000"
)

// Driver drives one ISL-family device over a Channel.
type Driver struct {
	ch            fiscal.Channel
	info          fiscal.DeviceInfo
	paymentTokens map[fiscal.PaymentType]string
}

// NewDriver binds a driver to an open channel.
func NewDriver(ch fiscal.Channel) *Driver {
	d := &Driver{
		ch:            ch,
		paymentTokens: make(map[fiscal.PaymentType]string, len(defaultPaymentTokens)),
	}
	for k, v := range defaultPaymentTokens {
		d.paymentTokens[k] = v
	}
	d.info = fiscal.DeviceInfo{
		Model:                "ISL",
		ItemTextMaxLength:    itemTextMaxLen,
		CommentTextMaxLength: commentMaxLen,
	}
	return d
}

func (d *Driver) DeviceInfo() fiscal.DeviceInfo { return d.info }

// SetURI records the channel address the driver was connected through.
func (d *Driver) SetURI(uri string) { d.info.URI = uri }

// Close releases the underlying channel.
func (d *Driver) Close() error {
	if c, ok := d.ch.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// OverridePaymentTokens applies the per-serial-number remap table from
// configuration; only the listed payment types change.
func (d *Driver) OverridePaymentTokens(overrides map[fiscal.PaymentType]string) {
	for k, v := range overrides {
		d.paymentTokens[k] = v
	}
}

// ReadDeviceInfo queries serial numbers, model and firmware and caches them.
func (d *Driver) ReadDeviceInfo() (fiscal.DeviceInfo, fiscal.DeviceStatus) {
	payload, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdDeviceInfo})
	if !status.Ok() {
		return d.info, status
	}
	fields, err := fiscal.SplitFields(payload, fieldSep, 4)
	if err != nil {
		return d.info, fiscal.StatusFromError(err)
	}
	d.info.SerialNumber = strings.TrimSpace(fields[0])
	d.info.FiscalMemorySerialNumber = strings.TrimSpace(fields[1])
	d.info.Model = strings.TrimSpace(fields[2])
	d.info.Firmware = strings.TrimSpace(fields[3])
	return d.info, status
}

// Request performs one raw exchange. The status vector occupies the leading
// four bytes of every response frame; the payload follows.
func (d *Driver) Request(cmd fiscal.Command) (fiscal.RawResponse, error) {
	text, err := fiscal.EncodeText(cmd.Payload)
	if err != nil {
		return fiscal.RawResponse{}, err
	}
	frame := make([]byte, 0, len(text)+1)
	frame = append(frame, cmd.Opcode)
	frame = append(frame, text...)
	if err := d.ch.Send(frame); err != nil {
		return fiscal.RawResponse{}, fiscal.TransportErrorf("send", err)
	}
	raw, err := d.ch.Receive()
	if err != nil {
		return fiscal.RawResponse{}, fiscal.TransportErrorf("receive", err)
	}
	if len(raw) < statusLen {
		return fiscal.RawResponse{}, fiscal.SyntaxErrorf(
			"response frame too short: %d bytes", len(raw))
	}
	payload, err := fiscal.DecodeText(raw[statusLen:])
	if err != nil {
		return fiscal.RawResponse{}, err
	}
	return fiscal.RawResponse{
		Payload: strings.TrimSpace(payload),
		Status:  raw[:statusLen],
	}, nil
}

// Table returns the ISL status bit-table.
func (d *Driver) Table() *fiscal.StatusTable { return &statusTable }

func (d *Driver) GetStatus() fiscal.DeviceStatus {
	_, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdGetStatus})
	return status
}

func (d *Driver) GetDateTime() (time.Time, fiscal.DeviceStatus) {
	payload, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdGetDateTime})
	if !status.Ok() {
		return time.Time{}, status
	}
	when, err := time.ParseInLocation(dateTimeLayout, payload, time.Local)
	if err != nil {
		status.AddError(fiscal.CodeWrongDateTime, "Wrong format of date and time")
		return time.Time{}, status
	}
	return when, status
}

func (d *Driver) SetDateTime(t time.Time) fiscal.DeviceStatus {
	_, status := fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdSetDateTime,
		Payload: t.Format(dateTimeLayout),
	})
	return status
}

func (d *Driver) OpenReceipt(saleNumber, operatorID, operatorPassword string) (string, fiscal.DeviceStatus) {
	id, pwd := fiscal.DefaultOperator(operatorID, operatorPassword, defaultOperatorID, defaultOperatorPassword)
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdOpenReceipt,
		Payload: strings.Join([]string{id, pwd, saleNumber}, fieldSep),
	})
}

func (d *Driver) OpenReversalReceipt(reason fiscal.ReversalReason, origReceiptNumber string,
	origDateTime time.Time, origFMSerial, saleNumber, operatorID, operatorPassword string) (string, fiscal.DeviceStatus) {

	token, err := reversalToken(reason)
	if err != nil {
		return "", fiscal.StatusFromError(err)
	}
	id, pwd := fiscal.DefaultOperator(operatorID, operatorPassword, defaultOperatorID, defaultOperatorPassword)
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode: cmdOpenReversal,
		Payload: strings.Join([]string{
			id, pwd, saleNumber, token, origReceiptNumber,
			origDateTime.Format(dateTimeLayout), origFMSerial,
		}, fieldSep),
	})
}

func (d *Driver) AddItem(department int, text string, unitPrice decimal.Decimal,
	taxGroup fiscal.TaxGroup, quantity decimal.Decimal,
	modValue decimal.Decimal, modType fiscal.PriceModifierType) (string, fiscal.DeviceStatus) {

	payload, err := buildItemPayload(department, text, unitPrice, taxGroup, quantity, modValue, modType)
	if err != nil {
		return "", fiscal.StatusFromError(err)
	}
	return fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdAddItem, Payload: payload})
}

func (d *Driver) AddComment(text string) (string, fiscal.DeviceStatus) {
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdAddComment,
		Payload: fiscal.Truncate(text, commentMaxLen),
	})
}

func (d *Driver) AddPayment(amount decimal.Decimal, payment fiscal.PaymentType) (string, fiscal.DeviceStatus) {
	token, ok := d.paymentTokens[payment]
	if !ok {
		return "", fiscal.StatusFromError(
			fiscal.UnsupportedErrorf("payment type %q has no ISL mapping", payment))
	}
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdAddPayment,
		Payload: fiscal.FormatAmount(amount) + fieldSep + token,
	})
}

func (d *Driver) SubtotalAdjustment(amount decimal.Decimal) (string, fiscal.DeviceStatus) {
	sign := "+"
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdSubtotal,
		Payload: "1" + fieldSep + "1" + fieldSep + ":" + sign + fiscal.FormatAmount(amount),
	})
}

func (d *Driver) CloseReceipt() (string, fiscal.DeviceStatus) {
	return fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdCloseReceipt})
}

func (d *Driver) AbortReceipt() (string, fiscal.DeviceStatus) {
	return fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdAbortReceipt})
}

// FullPaymentAndCloseReceipt settles the residual in cash (an empty payment
// command) and closes; this family has no single combined command.
func (d *Driver) FullPaymentAndCloseReceipt() (string, fiscal.DeviceStatus) {
	payload, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdAddPayment})
	if !status.Ok() {
		return payload, status
	}
	return fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdCloseReceipt})
}

func (d *Driver) LastReceiptInfo() (fiscal.ReceiptInfo, fiscal.DeviceStatus) {
	payload, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdLastReceipt})
	if !status.Ok() {
		return fiscal.ReceiptInfo{}, status
	}
	info, err := parseLastReceipt(payload)
	if err != nil {
		return fiscal.ReceiptInfo{}, fiscal.StatusFromError(err)
	}
	return info, status
}

func (d *Driver) MoneyTransfer(amount decimal.Decimal) (string, fiscal.DeviceStatus) {
	sign := "+"
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode:  cmdMoneyTransfer,
		Payload: sign + fiscal.FormatAmount(amount),
	})
}

func (d *Driver) PrintDailyReport(zeroing bool) (string, fiscal.DeviceStatus) {
	mode := "X"
	if zeroing {
		mode = "Z"
	}
	return fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdDailyReport, Payload: mode})
}

func (d *Driver) PrintReportForDate(start, end time.Time, report fiscal.ReportType) (string, fiscal.DeviceStatus) {
	mode := "0"
	if report == fiscal.ReportDetailed {
		mode = "1"
	}
	return fiscal.RoundTrip(d, fiscal.Command{
		Opcode: cmdReportByDate,
		Payload: strings.Join([]string{
			start.Format(reportDateFmt), end.Format(reportDateFmt), mode,
		}, fieldSep),
	})
}

func (d *Driver) OpenDrawer() fiscal.DeviceStatus {
	_, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdOpenDrawer})
	return status
}

func (d *Driver) PaperFeed(lines int) fiscal.DeviceStatus {
	if lines <= 0 {
		lines = 1
	}
	_, status := fiscal.RoundTrip(d, fiscal.Command{Opcode: cmdPaperFeed, Payload: strconv.Itoa(lines)})
	return status
}
