package worker

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
	"github.com/adcondev/fiscal-daemon/internal/jobqueue"
	"github.com/adcondev/fiscal-daemon/internal/registry"
)

// stubDriver records the driver calls an action produces. Methods the tested
// actions never reach stay on the embedded nil interface.
type stubDriver struct {
	fiscal.Driver
	calls []string
}

func (d *stubDriver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *stubDriver) DeviceInfo() fiscal.DeviceInfo {
	return fiscal.DeviceInfo{SerialNumber: "DT518293", Model: "FP-700"}
}

func (d *stubDriver) GetStatus() fiscal.DeviceStatus {
	d.record("status")
	return fiscal.DeviceStatus{}
}

func (d *stubDriver) GetDateTime() (time.Time, fiscal.DeviceStatus) {
	d.record("get-datetime")
	return time.Date(2026, 3, 14, 12, 30, 0, 0, time.Local), fiscal.DeviceStatus{}
}

func (d *stubDriver) SetDateTime(t time.Time) fiscal.DeviceStatus {
	d.record("set-datetime:%s", t.Format("2006-01-02 15:04:05"))
	return fiscal.DeviceStatus{}
}

func (d *stubDriver) PrintDailyReport(zeroing bool) (string, fiscal.DeviceStatus) {
	d.record("daily-report:%t", zeroing)
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) PrintReportForDate(start, end time.Time, report fiscal.ReportType) (string, fiscal.DeviceStatus) {
	d.record("report:%s-%s:%v", start.Format("20060102"), end.Format("20060102"), report)
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) MoneyTransfer(amount decimal.Decimal) (string, fiscal.DeviceStatus) {
	d.record("transfer:%s", amount.StringFixed(2))
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) PaperFeed(lines int) fiscal.DeviceStatus {
	d.record("feed:%d", lines)
	return fiscal.DeviceStatus{}
}

func (d *stubDriver) OpenReceipt(saleNumber, operatorID, operatorPassword string) (string, fiscal.DeviceStatus) {
	d.record("open:%s:%s:%s", saleNumber, operatorID, operatorPassword)
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) AbortReceipt() (string, fiscal.DeviceStatus) {
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) AddItem(department int, text string, unitPrice decimal.Decimal, taxGroup fiscal.TaxGroup,
	quantity, modValue decimal.Decimal, modType fiscal.PriceModifierType) (string, fiscal.DeviceStatus) {
	d.record("item:%s", text)
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) FullPaymentAndCloseReceipt() (string, fiscal.DeviceStatus) {
	d.record("close-full")
	return "", fiscal.DeviceStatus{}
}

func (d *stubDriver) LastReceiptInfo() (fiscal.ReceiptInfo, fiscal.DeviceStatus) {
	return fiscal.ReceiptInfo{ReceiptNumber: "0099"}, fiscal.DeviceStatus{}
}

// fixedResolver serves one printer for every known id.
type fixedResolver struct {
	printer *registry.Printer
}

func (r *fixedResolver) Get(id string) (*registry.Printer, error) {
	if r.printer == nil || id != r.printer.ID {
		return nil, fmt.Errorf("printer %q is not registered", id)
	}
	return r.printer, nil
}

func newTestExecutor() (*Executor, *stubDriver) {
	drv := &stubDriver{}
	resolver := &fixedResolver{printer: &registry.Printer{
		ID:     "dt518293",
		Driver: drv,
		Info:   drv.DeviceInfo(),
	}}
	return NewExecutor(resolver), drv
}

func runJob(e *Executor, action, document string) jobqueue.Result {
	job := &jobqueue.PrintJob{ID: "job-1", PrinterID: "dt518293", Action: action}
	if document != "" {
		job.Document = json.RawMessage(document)
	}
	return e.Run(job)
}

func TestExecutor_UnknownPrinter(t *testing.T) {
	e, _ := newTestExecutor()

	job := &jobqueue.PrintJob{ID: "job-1", PrinterID: "ghost", Action: ActionGetStatus}
	result := e.Run(job)
	if result.Status.Ok() {
		t.Fatal("expected a failed result")
	}
	if !strings.Contains(result.Status.FirstErrorText(), "not registered") {
		t.Errorf("error text = %q", result.Status.FirstErrorText())
	}
}

func TestExecutor_UnknownAction(t *testing.T) {
	e, _ := newTestExecutor()

	result := runJob(e, "make-coffee", "")
	if result.Status.Ok() || !strings.Contains(result.Status.FirstErrorText(), "unknown action") {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_PrintReceiptOperatorDefaults(t *testing.T) {
	doc := `{"uniqueSaleNumber":"DT518293-0001-0000123",` +
		`"items":[{"type":"sale","text":"Milk","unitPrice":"2.40","quantity":"1"}]}`

	t.Run("document without operator gets the configured one", func(t *testing.T) {
		e, drv := newTestExecutor()
		e.SetOperatorDefaults("3", "1234")

		result := runJob(e, ActionPrintReceipt, doc)
		if !result.Status.Ok() {
			t.Fatalf("print failed: %s", result.Status.FirstErrorText())
		}
		if want := "open:DT518293-0001-0000123:3:1234"; drv.calls[0] != want {
			t.Errorf("open call = %q, want %q", drv.calls[0], want)
		}
	})

	t.Run("document operator wins over the default", func(t *testing.T) {
		e, drv := newTestExecutor()
		e.SetOperatorDefaults("3", "1234")

		withOperator := `{"uniqueSaleNumber":"DT518293-0001-0000124","operator":"7","operatorPassword":"0007",` +
			`"items":[{"type":"sale","text":"Milk","unitPrice":"2.40","quantity":"1"}]}`
		result := runJob(e, ActionPrintReceipt, withOperator)
		if !result.Status.Ok() {
			t.Fatalf("print failed: %s", result.Status.FirstErrorText())
		}
		if want := "open:DT518293-0001-0000124:7:0007"; drv.calls[0] != want {
			t.Errorf("open call = %q, want %q", drv.calls[0], want)
		}
	})
}

func TestExecutor_GetDateTime(t *testing.T) {
	e, drv := newTestExecutor()

	result := runJob(e, ActionGetDateTime, "")
	if !result.Status.Ok() {
		t.Fatalf("result = %+v", result)
	}
	data, ok := result.Data.(map[string]string)
	if !ok || data["dateTime"] == "" {
		t.Fatalf("Data = %#v; want a dateTime map", result.Data)
	}
	if _, err := time.Parse(time.RFC3339, data["dateTime"]); err != nil {
		t.Errorf("dateTime %q is not RFC3339: %v", data["dateTime"], err)
	}
	if len(drv.calls) != 1 || drv.calls[0] != "get-datetime" {
		t.Errorf("driver calls = %v", drv.calls)
	}
}

func TestExecutor_SetDateTime(t *testing.T) {
	e, drv := newTestExecutor()

	result := runJob(e, ActionSetDateTime, `{"dateTime":"2026-03-14T12:30:00Z"}`)
	if !result.Status.Ok() {
		t.Fatalf("result = %+v", result)
	}
	if len(drv.calls) != 1 || !strings.HasPrefix(drv.calls[0], "set-datetime:") {
		t.Errorf("driver calls = %v", drv.calls)
	}

	missing := runJob(e, ActionSetDateTime, `{}`)
	if missing.Status.Ok() || !strings.Contains(missing.Status.FirstErrorText(), "dateTime") {
		t.Errorf("missing field result = %+v", missing)
	}
}

func TestExecutor_DailyReport(t *testing.T) {
	e, drv := newTestExecutor()

	if result := runJob(e, ActionDailyReport, `{"zeroing":true}`); !result.Status.Ok() {
		t.Fatalf("result = %+v", result)
	}
	if drv.calls[0] != "daily-report:true" {
		t.Errorf("driver calls = %v", drv.calls)
	}
}

func TestExecutor_ReportByDate(t *testing.T) {
	e, drv := newTestExecutor()

	result := runJob(e, ActionReportByDate, `{"start":"2026-03-01","end":"2026-03-14","detailed":true}`)
	if !result.Status.Ok() {
		t.Fatalf("result = %+v", result)
	}
	if drv.calls[0] != fmt.Sprintf("report:20260301-20260314:%v", fiscal.ReportDetailed) {
		t.Errorf("driver calls = %v", drv.calls)
	}

	bad := runJob(e, ActionReportByDate, `{"start":"01.03.2026","end":"2026-03-14"}`)
	if bad.Status.Ok() || !strings.Contains(bad.Status.FirstErrorText(), "start date") {
		t.Errorf("bad date result = %+v", bad)
	}
}

func TestExecutor_MoneyTransfer(t *testing.T) {
	e, drv := newTestExecutor()

	if result := runJob(e, ActionDeposit, `{"amount":"25.00"}`); !result.Status.Ok() {
		t.Fatalf("deposit result = %+v", result)
	}
	if result := runJob(e, ActionWithdraw, `{"amount":"10.00"}`); !result.Status.Ok() {
		t.Fatalf("withdraw result = %+v", result)
	}
	if drv.calls[0] != "transfer:25.00" || drv.calls[1] != "transfer:-10.00" {
		t.Errorf("driver calls = %v", drv.calls)
	}

	// Withdraw of a negative amount never reaches the device.
	bad := runJob(e, ActionWithdraw, `{"amount":"-5.00"}`)
	if bad.Status.Ok() {
		t.Fatal("negative withdraw succeeded")
	}
	if len(drv.calls) != 2 {
		t.Errorf("driver calls = %v; rejected transfer reached the device", drv.calls)
	}
}

func TestExecutor_PaperFeed(t *testing.T) {
	e, drv := newTestExecutor()

	runJob(e, ActionPaperFeed, `{"lines":4}`)
	runJob(e, ActionPaperFeed, `{"lines":0}`)
	if drv.calls[0] != "feed:4" || drv.calls[1] != "feed:1" {
		t.Errorf("driver calls = %v", drv.calls)
	}
}

func TestExecutor_DeviceInfo(t *testing.T) {
	e, _ := newTestExecutor()

	result := runJob(e, ActionDeviceInfo, "")
	if !result.Status.Ok() {
		t.Fatalf("result = %+v", result)
	}
	info, ok := result.Data.(fiscal.DeviceInfo)
	if !ok || info.SerialNumber != "DT518293" {
		t.Errorf("Data = %#v", result.Data)
	}
}

func TestExecutor_BadDocument(t *testing.T) {
	e, _ := newTestExecutor()

	missing := runJob(e, ActionPrintReceipt, "")
	if missing.Status.Ok() || !strings.Contains(missing.Status.FirstErrorText(), "document") {
		t.Errorf("missing document result = %+v", missing)
	}

	invalid := runJob(e, ActionPrintReceipt, `{not json`)
	if invalid.Status.Ok() || !strings.Contains(invalid.Status.FirstErrorText(), "invalid document JSON") {
		t.Errorf("invalid document result = %+v", invalid)
	}
}
