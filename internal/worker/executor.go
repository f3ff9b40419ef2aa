// Package worker turns queued job documents into fiscal driver calls.
package worker

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
	"github.com/adcondev/fiscal-daemon/internal/jobqueue"
	"github.com/adcondev/fiscal-daemon/internal/registry"
)

// Job action names accepted over the wire.
const (
	ActionPrintReceipt         = "print-receipt"
	ActionPrintReversalReceipt = "print-reversal-receipt"
	ActionDailyReport          = "daily-report"
	ActionReportByDate         = "report-by-date"
	ActionGetDateTime          = "get-datetime"
	ActionSetDateTime          = "set-datetime"
	ActionGetStatus            = "get-status"
	ActionLastReceipt          = "last-receipt"
	ActionDeviceInfo           = "device-info"
	ActionDeposit              = "deposit"
	ActionWithdraw             = "withdraw"
	ActionOpenDrawer           = "open-drawer"
	ActionPaperFeed            = "paper-feed"
)

// PrinterResolver looks registered printers up by id. registry.Registry
// satisfies it.
type PrinterResolver interface {
	Get(id string) (*registry.Printer, error)
}

// Executor resolves a job's printer and dispatches its action on the
// driver. It runs on the queue's worker goroutine, one job at a time.
type Executor struct {
	printers PrinterResolver

	// Operator defaults applied to receipts that carry none.
	operatorID       string
	operatorPassword string
}

func NewExecutor(printers PrinterResolver) *Executor {
	return &Executor{printers: printers}
}

// SetOperatorDefaults installs the configured operator credentials used
// when a receipt document omits them.
func (e *Executor) SetOperatorDefaults(id, password string) {
	e.operatorID = id
	e.operatorPassword = password
}

// Run implements jobqueue.Runner.
func (e *Executor) Run(job *jobqueue.PrintJob) jobqueue.Result {
	p, err := e.printers.Get(job.PrinterID)
	if err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}

	log.Printf("[WORKER] 🖨️ Job %s -> Printer: %s (%s)", job.ID, p.ID, job.Action)

	switch job.Action {
	case ActionPrintReceipt:
		return e.printReceipt(p.Driver, job.Document)
	case ActionPrintReversalReceipt:
		return e.printReversalReceipt(p.Driver, job.Document)
	case ActionDailyReport:
		return e.dailyReport(p.Driver, job.Document)
	case ActionReportByDate:
		return e.reportByDate(p.Driver, job.Document)
	case ActionGetDateTime:
		return e.getDateTime(p.Driver)
	case ActionSetDateTime:
		return e.setDateTime(p.Driver, job.Document)
	case ActionGetStatus:
		return jobqueue.Result{Status: p.Driver.GetStatus()}
	case ActionLastReceipt:
		info, status := p.Driver.LastReceiptInfo()
		return jobqueue.Result{Status: status, Data: info}
	case ActionDeviceInfo:
		return jobqueue.Result{Status: fiscal.DeviceStatus{}, Data: p.Driver.DeviceInfo()}
	case ActionDeposit:
		return e.moneyTransfer(p.Driver, job.Document, false)
	case ActionWithdraw:
		return e.moneyTransfer(p.Driver, job.Document, true)
	case ActionOpenDrawer:
		return jobqueue.Result{Status: p.Driver.OpenDrawer()}
	case ActionPaperFeed:
		return e.paperFeed(p.Driver, job.Document)
	default:
		return failure(fiscal.CodeInvalidArgument, fmt.Sprintf("unknown action %q", job.Action))
	}
}

func (e *Executor) applyOperatorDefaults(rcp *fiscal.Receipt) {
	if rcp.Operator == "" {
		rcp.Operator = e.operatorID
		rcp.OperatorPassword = e.operatorPassword
	}
}

func (e *Executor) printReceipt(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var rcp fiscal.Receipt
	if err := parseDocument(doc, &rcp); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	e.applyOperatorDefaults(&rcp)
	info, status := fiscal.PrintReceipt(d, &rcp)
	return jobqueue.Result{Status: status, Data: info}
}

func (e *Executor) printReversalReceipt(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var rcp fiscal.ReversalReceipt
	if err := parseDocument(doc, &rcp); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	e.applyOperatorDefaults(&rcp.Receipt)
	info, status := fiscal.PrintReversalReceipt(d, &rcp)
	return jobqueue.Result{Status: status, Data: info}
}

func (e *Executor) dailyReport(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var req struct {
		Zeroing bool `json:"zeroing"`
	}
	if err := parseDocument(doc, &req); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	_, status := d.PrintDailyReport(req.Zeroing)
	return jobqueue.Result{Status: status}
}

func (e *Executor) reportByDate(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var req struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Detailed bool   `json:"detailed"`
	}
	if err := parseDocument(doc, &req); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	start, err := time.ParseInLocation("2006-01-02", req.Start, time.Local)
	if err != nil {
		return failure(fiscal.CodeInvalidArgument, fmt.Sprintf("bad start date %q (want YYYY-MM-DD)", req.Start))
	}
	end, err := time.ParseInLocation("2006-01-02", req.End, time.Local)
	if err != nil {
		return failure(fiscal.CodeInvalidArgument, fmt.Sprintf("bad end date %q (want YYYY-MM-DD)", req.End))
	}
	report := fiscal.ReportBrief
	if req.Detailed {
		report = fiscal.ReportDetailed
	}
	_, status := d.PrintReportForDate(start, end, report)
	return jobqueue.Result{Status: status}
}

func (e *Executor) getDateTime(d fiscal.Driver) jobqueue.Result {
	dt, status := d.GetDateTime()
	if !status.Ok() {
		return jobqueue.Result{Status: status}
	}
	return jobqueue.Result{
		Status: status,
		Data:   map[string]string{"dateTime": dt.Format(time.RFC3339)},
	}
}

func (e *Executor) setDateTime(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var req struct {
		DateTime time.Time `json:"dateTime"`
	}
	if err := parseDocument(doc, &req); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	if req.DateTime.IsZero() {
		return failure(fiscal.CodeInvalidArgument, "missing 'dateTime' field")
	}
	return jobqueue.Result{Status: d.SetDateTime(req.DateTime)}
}

func (e *Executor) moneyTransfer(d fiscal.Driver, doc json.RawMessage, withdraw bool) jobqueue.Result {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := parseDocument(doc, &req); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	return jobqueue.Result{Status: fiscal.MoneyTransfer(d, req.Amount, withdraw)}
}

func (e *Executor) paperFeed(d fiscal.Driver, doc json.RawMessage) jobqueue.Result {
	var req struct {
		Lines int `json:"lines"`
	}
	if err := parseDocument(doc, &req); err != nil {
		return failure(fiscal.CodeInvalidArgument, err.Error())
	}
	if req.Lines <= 0 {
		req.Lines = 1
	}
	return jobqueue.Result{Status: d.PaperFeed(req.Lines)}
}

func parseDocument(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing 'document' field")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid document JSON: %w", err)
	}
	return nil
}

func failure(code, text string) jobqueue.Result {
	var status fiscal.DeviceStatus
	status.AddError(code, text)
	return jobqueue.Result{Status: status}
}
