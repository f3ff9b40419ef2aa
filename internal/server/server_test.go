package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
	"github.com/adcondev/fiscal-daemon/internal/jobqueue"
	"github.com/adcondev/fiscal-daemon/internal/registry"
)

type fakeRunner struct {
	lastPrinter string
	lastAction  string
}

func (f *fakeRunner) RunSync(printerID, action string, _ json.RawMessage, _ int) (jobqueue.TaskInfo, error) {
	f.lastPrinter = printerID
	f.lastAction = action
	return jobqueue.TaskInfo{
		ID:     "job-1",
		Found:  true,
		Status: jobqueue.StatusFinished,
		Result: &jobqueue.Result{Status: fiscal.DeviceStatus{}},
	}, nil
}

func (f *fakeRunner) TaskInfo(id string) jobqueue.TaskInfo {
	return jobqueue.TaskInfo{ID: id, Found: false}
}

func (f *fakeRunner) Stats() jobqueue.Statistics {
	return jobqueue.Statistics{IsRunning: true}
}

type fakePrinterManager struct{}

func (f *fakePrinterManager) List() []*registry.Printer { return nil }
func (f *fakePrinterManager) Delete(string) error       { return nil }
func (f *fakePrinterManager) Detect(bool) error         { return nil }
func (f *fakePrinterManager) Ready() bool               { return true }

func (f *fakePrinterManager) Configure(string) (*registry.Printer, error) { return nil, nil }

func newTestServer(cfg Config) (*Server, *fakeRunner) {
	runner := &fakeRunner{}
	return NewServer(cfg, runner, &fakePrinterManager{}), runner
}

func TestWebSocketOrigin(t *testing.T) {
	// 1. Test Restricted Origin (Default behavior / Explicit Allow)
	t.Run("Restricted Origin", func(t *testing.T) {
		srv, _ := newTestServer(Config{AllowedOrigins: []string{"http://good.com"}})
		defer srv.Shutdown()

		ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
		defer ts.Close()

		u := "ws" + ts.URL[4:]

		// Case A: Connection from Allowed Origin
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		opts := &websocket.DialOptions{
			HTTPHeader: http.Header{
				"Origin": []string{"http://good.com"},
			},
		}

		conn, resp, err := websocket.Dial(ctx, u, opts)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			t.Fatalf("Connection from good.com failed: %v", err)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")

		// Case B: Connection from Disallowed Origin
		optsBad := &websocket.DialOptions{
			HTTPHeader: http.Header{
				"Origin": []string{"http://evil.com"},
			},
		}

		_, respBad, err := websocket.Dial(ctx, u, optsBad)
		if respBad != nil && respBad.Body != nil {
			_ = respBad.Body.Close()
		}
		if err == nil {
			t.Fatalf("Connection from evil.com succeeded (should fail)")
		}
	})

	// 2. Test Same Origin Enforcement (When AllowedOrigins is empty/nil)
	t.Run("Same Origin Enforcement", func(t *testing.T) {
		srv, _ := newTestServer(Config{AllowedOrigins: nil})
		defer srv.Shutdown()

		ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
		defer ts.Close()

		u := "ws" + ts.URL[4:]

		// Case A: Connection from Same Origin (Default behavior of Dial)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		conn, resp, err := websocket.Dial(ctx, u, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			t.Fatalf("Connection from same origin failed: %v", err)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")

		// Case B: Connection from Different Origin
		optsBad := &websocket.DialOptions{
			HTTPHeader: http.Header{
				"Origin": []string{"http://external-site.com"},
			},
		}
		_, respBad, err := websocket.Dial(ctx, u, optsBad)
		if respBad != nil && respBad.Body != nil {
			_ = respBad.Body.Close()
		}
		if err == nil {
			t.Fatalf("Connection from external-site.com succeeded (should fail)")
		}
	})
}

// dial opens a test connection and discards the welcome message.
func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, resp, err := websocket.Dial(ctx, "ws"+ts.URL[4:], nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	var welcome Response
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		t.Fatalf("reading welcome: %v", err)
	}
	if welcome.Type != "info" {
		t.Fatalf("welcome.Type = %q; want info", welcome.Type)
	}
	return conn, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, msg Message) Response {
	t.Helper()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("writing %q message: %v", msg.Type, err)
	}
	var resp Response
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("reading response to %q: %v", msg.Type, err)
	}
	return resp
}

func TestServerRouting(t *testing.T) {
	srv, runner := newTestServer(Config{AllowedOrigins: []string{"*"}, ServerID: "srv-1"})
	defer srv.Shutdown()

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	defer ts.Close()

	conn, ctx := dial(t, ts)

	t.Run("ping answers pong with server id", func(t *testing.T) {
		resp := roundTrip(t, ctx, conn, Message{Type: "ping", ID: "p1"})
		if resp.Type != "pong" || resp.ID != "p1" || resp.ServerID != "srv-1" {
			t.Errorf("got %+v; want pong/p1/srv-1", resp)
		}
	})

	t.Run("print dispatches to the runner", func(t *testing.T) {
		resp := roundTrip(t, ctx, conn, Message{
			Type:      "print",
			ID:        "m1",
			PrinterID: "dt518293",
			Action:    "get-status",
			TimeoutMs: 1000,
		})
		if resp.Type != "result" || resp.Status != "success" {
			t.Errorf("got type=%q status=%q; want result/success", resp.Type, resp.Status)
		}
		if runner.lastPrinter != "dt518293" || runner.lastAction != "get-status" {
			t.Errorf("runner saw %q/%q", runner.lastPrinter, runner.lastAction)
		}
	})

	t.Run("print without printerId is rejected", func(t *testing.T) {
		resp := roundTrip(t, ctx, conn, Message{Type: "print", ID: "m2", Action: "get-status"})
		if resp.Type != "error" {
			t.Errorf("got type=%q; want error", resp.Type)
		}
	})

	t.Run("task poll for unknown id reports unknown", func(t *testing.T) {
		resp := roundTrip(t, ctx, conn, Message{Type: "task", ID: "m3", TaskID: "nope"})
		if resp.Type != "task" || resp.Status != "unknown" {
			t.Errorf("got type=%q status=%q; want task/unknown", resp.Type, resp.Status)
		}
		if resp.Task == nil || resp.Task.Found {
			t.Errorf("Task = %+v; want Found=false", resp.Task)
		}
	})

	t.Run("unknown message type is rejected", func(t *testing.T) {
		resp := roundTrip(t, ctx, conn, Message{Type: "bogus", ID: "m4"})
		if resp.Type != "error" {
			t.Errorf("got type=%q; want error", resp.Type)
		}
	})
}

func TestServerTokenAuth(t *testing.T) {
	srv, _ := newTestServer(Config{AllowedOrigins: []string{"*"}, AuthToken: "secreto"})
	defer srv.Shutdown()

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	defer ts.Close()

	conn, ctx := dial(t, ts)

	resp := roundTrip(t, ctx, conn, Message{
		Type: "print", ID: "m1", PrinterID: "x", Action: "get-status",
	})
	if resp.Type != "error" {
		t.Fatalf("print without token accepted: %+v", resp)
	}

	resp = roundTrip(t, ctx, conn, Message{
		Type: "print", ID: "m2", PrinterID: "x", Action: "get-status", Token: "secreto",
	})
	if resp.Type != "result" {
		t.Fatalf("print with token rejected: %+v", resp)
	}
}
