// Package server exposes the fiscal job API over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/adcondev/fiscal-daemon/internal/jobqueue"
	"github.com/adcondev/fiscal-daemon/internal/printer"
	"github.com/adcondev/fiscal-daemon/internal/registry"
	workererrors "github.com/adcondev/fiscal-daemon/internal/worker/errors"
)

// JobRunner is the queue side the server talks to.
type JobRunner interface {
	RunSync(printerID, action string, document json.RawMessage, timeoutMs int) (jobqueue.TaskInfo, error)
	TaskInfo(id string) jobqueue.TaskInfo
	Stats() jobqueue.Statistics
}

// PrinterManager is the registry side the server talks to.
type PrinterManager interface {
	List() []*registry.Printer
	Configure(uri string) (*registry.Printer, error)
	Delete(id string) error
	Detect(force bool) error
	Ready() bool
}

// Config holds server configuration
type Config struct {
	ServerID string
	// AuthToken, when set, is required on every mutating message.
	AuthToken string
	// MaxJobsPerMinute limits job submissions per client address.
	MaxJobsPerMinute int
	AllowedOrigins   []string
}

// Message represents an incoming WebSocket message
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Token     string          `json:"token,omitempty"`
	PrinterID string          `json:"printerId,omitempty"`
	Action    string          `json:"action,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
	TimeoutMs int             `json:"timeoutMs,omitempty"`
	TaskID    string          `json:"taskId,omitempty"`
	URI       string          `json:"uri,omitempty"`
	Force     bool            `json:"force,omitempty"`
}

// Response represents an outgoing WebSocket message
type Response struct {
	Type     string              `json:"type"`
	ID       string              `json:"id,omitempty"`
	Status   string              `json:"status,omitempty"`
	Message  string              `json:"message,omitempty"`
	Task     *jobqueue.TaskInfo  `json:"task,omitempty"`
	Printers []printer.DetailDTO `json:"printers,omitempty"`
	Pending  int                 `json:"pending,omitempty"`
	ServerID string              `json:"serverId,omitempty"`
}

// Server manages WebSocket connections and routes fiscal requests.
type Server struct {
	cfg          Config
	clients      *ClientRegistry
	limiter      *JobRateLimiter
	runner       JobRunner
	printers     PrinterManager
	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

// NewServer creates a new WebSocket server
func NewServer(cfg Config, runner JobRunner, printers PrinterManager) *Server {
	if cfg.MaxJobsPerMinute <= 0 {
		cfg.MaxJobsPerMinute = 120
	}
	return &Server{
		cfg:          cfg,
		clients:      NewClientRegistry(),
		limiter:      NewJobRateLimiter(cfg.MaxJobsPerMinute),
		runner:       runner,
		printers:     printers,
		shutdownChan: make(chan struct{}),
	}
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// An empty origin list enforces same-origin.
	opts := &websocket.AcceptOptions{OriginPatterns: s.cfg.AllowedOrigins}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Printf("[WS] ❌ Error accepting client: %v", err)
		return
	}

	s.clients.Add(conn, r.RemoteAddr)
	log.Printf("[WS] ➕ Client connected (total: %d) from %s", s.clients.Count(), r.RemoteAddr)

	ctx := r.Context()
	welcome := Response{
		Type:     "info",
		Status:   "connected",
		Message:  "Fiscal daemon ready",
		ServerID: s.cfg.ServerID,
	}
	_ = wsjson.Write(ctx, conn, welcome)

	s.handleMessages(ctx, conn)

	s.clients.Remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	log.Printf("[WS] ➖ Client disconnected (remaining: %d)", s.clients.Count())
}

// handleMessages processes incoming messages from a client
func (s *Server) handleMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		var msg Message
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return
			}
			log.Printf("[WS] ⚠️ Error reading message: %v", err)
			return
		}

		s.routeMessage(ctx, conn, &msg)
	}
}

// routeMessage routes a message to the appropriate handler
func (s *Server) routeMessage(ctx context.Context, conn *websocket.Conn, msg *Message) {
	switch msg.Type {
	case "print":
		s.handlePrint(ctx, conn, msg)
	case "task":
		s.handleTask(ctx, conn, msg)
	case "printers":
		s.handlePrinters(ctx, conn, msg)
	case "configure":
		s.handleConfigure(ctx, conn, msg)
	case "delete":
		s.handleDelete(ctx, conn, msg)
	case "detect":
		s.handleDetect(ctx, conn, msg)
	case "status":
		s.handleStatus(ctx, conn, msg)
	case "ping":
		s.handlePing(ctx, conn, msg)
	default:
		log.Printf("[WS] ⚠️ Unknown message type: %s", msg.Type)
		s.sendError(ctx, conn, msg.ID, "Unknown message type: "+msg.Type)
	}
}

// handlePrint submits a fiscal job and, when a timeout is given, waits for
// its result before answering.
func (s *Server) handlePrint(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if !s.authorized(msg) {
		s.sendError(ctx, conn, msg.ID, "Invalid or missing token")
		return
	}
	remoteAddr := s.clients.Addr(conn)
	if !s.limiter.Allow(remoteAddr) {
		log.Printf("[QUEUE] 🚫 Rate limit hit for %s", remoteAddr)
		s.sendError(ctx, conn, msg.ID, "Too many jobs, slow down")
		return
	}
	if msg.PrinterID == "" {
		s.sendError(ctx, conn, msg.ID, "Field 'printerId' is required for type 'print'")
		return
	}
	if msg.Action == "" {
		s.sendError(ctx, conn, msg.ID, "Field 'action' is required for type 'print'")
		return
	}

	task, err := s.runner.RunSync(msg.PrinterID, msg.Action, msg.Document, msg.TimeoutMs)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}

	response := Response{
		Type:   "result",
		ID:     msg.ID,
		Status: string(task.Status),
		Task:   &task,
	}
	if task.Result != nil {
		if task.Result.Status.Ok() {
			response.Status = "success"
		} else {
			response.Status = "error"
		}
		response.Message = workererrors.SummarizeStatus(task.Result.Status)
	}
	_ = wsjson.Write(ctx, conn, response)
}

// handleTask answers a poll for a previously submitted job.
func (s *Server) handleTask(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if msg.TaskID == "" {
		s.sendError(ctx, conn, msg.ID, "Field 'taskId' is required for type 'task'")
		return
	}
	task := s.runner.TaskInfo(msg.TaskID)
	status := "unknown"
	if task.Found {
		status = string(task.Status)
	}
	_ = wsjson.Write(ctx, conn, Response{
		Type:   "task",
		ID:     msg.ID,
		Status: status,
		Task:   &task,
	})
}

// handlePrinters lists registered printers.
func (s *Server) handlePrinters(ctx context.Context, conn *websocket.Conn, msg *Message) {
	list := s.printers.List()
	dtos := make([]printer.DetailDTO, len(list))
	for i, p := range list {
		dtos[i] = printer.DetailDTO{
			ID:           p.ID,
			SerialNumber: p.Info.SerialNumber,
			FMSerial:     p.Info.FiscalMemorySerialNumber,
			Model:        p.Info.Model,
			Firmware:     p.Info.Firmware,
			URI:          p.Info.URI,
		}
	}
	_ = wsjson.Write(ctx, conn, Response{
		Type:     "printers",
		ID:       msg.ID,
		Status:   "ok",
		Printers: dtos,
	})
}

// handleConfigure registers a printer by URI.
func (s *Server) handleConfigure(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if !s.authorized(msg) {
		s.sendError(ctx, conn, msg.ID, "Invalid or missing token")
		return
	}
	if msg.URI == "" {
		s.sendError(ctx, conn, msg.ID, "Field 'uri' is required for type 'configure'")
		return
	}
	p, err := s.printers.Configure(msg.URI)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	_ = wsjson.Write(ctx, conn, Response{
		Type:    "configured",
		ID:      msg.ID,
		Status:  "ok",
		Message: "Printer " + p.ID + " registered",
	})
}

// handleDelete removes a printer.
func (s *Server) handleDelete(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if !s.authorized(msg) {
		s.sendError(ctx, conn, msg.ID, "Invalid or missing token")
		return
	}
	if msg.PrinterID == "" {
		s.sendError(ctx, conn, msg.ID, "Field 'printerId' is required for type 'delete'")
		return
	}
	if err := s.printers.Delete(msg.PrinterID); err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	_ = wsjson.Write(ctx, conn, Response{
		Type:    "deleted",
		ID:      msg.ID,
		Status:  "ok",
		Message: "Printer " + msg.PrinterID + " removed",
	})
}

// handleDetect triggers a detection pass.
func (s *Server) handleDetect(ctx context.Context, conn *websocket.Conn, msg *Message) {
	if !s.authorized(msg) {
		s.sendError(ctx, conn, msg.ID, "Invalid or missing token")
		return
	}
	if err := s.printers.Detect(msg.Force); err != nil {
		s.sendError(ctx, conn, msg.ID, workererrors.ExtractUserFriendlyError(err))
		return
	}
	s.handlePrinters(ctx, conn, msg)
}

// handleStatus sends queue status
func (s *Server) handleStatus(ctx context.Context, conn *websocket.Conn, msg *Message) {
	stats := s.runner.Stats()
	_ = wsjson.Write(ctx, conn, Response{
		Type:    "status",
		ID:      msg.ID,
		Status:  "ok",
		Pending: stats.Pending,
		Message: formatStatus(stats.Pending, stats.JobsProcessed, stats.JobsFailed),
	})
}

// handlePing responds to ping
func (s *Server) handlePing(ctx context.Context, conn *websocket.Conn, msg *Message) {
	_ = wsjson.Write(ctx, conn, Response{
		Type:     "pong",
		ID:       msg.ID,
		Status:   "ok",
		ServerID: s.cfg.ServerID,
	})
}

// sendError sends an error response to the client
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, id, message string) {
	_ = wsjson.Write(ctx, conn, Response{
		Type:    "error",
		ID:      id,
		Status:  "error",
		Message: message,
	})
}

// authorized checks the message token against the configured one. An empty
// configured token disables the check (dev mode).
func (s *Server) authorized(msg *Message) bool {
	return s.cfg.AuthToken == "" || msg.Token == s.cfg.AuthToken
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		clientCount := s.clients.Count()
		log.Printf("[WS] 🛑 Shutting down, disconnecting %d clients", clientCount)

		s.clients.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		})
	})
}

func formatStatus(pending int, processed, failed int64) string {
	return "Pending: " + strconv.Itoa(pending) +
		", processed: " + strconv.FormatInt(processed, 10) +
		", failed: " + strconv.FormatInt(failed, 10)
}
