package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/judwhite/go-svc"

	"github.com/adcondev/fiscal-daemon/internal/assets"
	"github.com/adcondev/fiscal-daemon/internal/auth"
	"github.com/adcondev/fiscal-daemon/internal/config"
	"github.com/adcondev/fiscal-daemon/internal/fiscal"
	"github.com/adcondev/fiscal-daemon/internal/jobqueue"
	"github.com/adcondev/fiscal-daemon/internal/printer"
	"github.com/adcondev/fiscal-daemon/internal/registry"
	"github.com/adcondev/fiscal-daemon/internal/server"
	"github.com/adcondev/fiscal-daemon/internal/transport"
	"github.com/adcondev/fiscal-daemon/internal/worker"
)

// GetEnvConfig returns the current environment configuration
func GetEnvConfig() config.Environment {
	return config.GetEnvironment(config.BuildEnvironment)
}

// Program implements svc.Service interface
type Program struct {
	wg         sync.WaitGroup
	quit       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server
	wsServer   *server.Server
	queue      *jobqueue.Queue
	printers   *registry.Registry
	settings   *config.Store
	authMgr    *auth.Manager
	startTime  time.Time
}

// Init initializes the service
func (p *Program) Init(_ svc.Environment) error {
	envConfig := GetEnvConfig()

	if err := initLogging(envConfig); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║   🧾 FISCAL DAEMON - Cash Register Print Service           ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Printf("[INIT] 🚀 Starting service - Environment: %s", envConfig.Name)
	log.Printf("[INIT] 📅 Build: %s %s", config.BuildDate, config.BuildTime)

	return nil
}

// Start starts the service
func (p *Program) Start() error {
	p.quit = make(chan struct{})
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	cfg := GetEnvConfig()

	// Persisted settings (server id, printer map, payment remaps)
	settingsPath := cfg.SettingsPath(os.Getenv("PROGRAMDATA"))
	store, err := config.NewStore(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	p.settings = store
	log.Printf("[INIT] 📁 Settings file: %s", settingsPath)
	log.Printf("[INIT] 🆔 Server ID: %s", store.Settings().ServerID)

	// Auth manager (bound to service context for clean shutdown)
	p.authMgr = auth.NewManager(p.ctx)

	// Device connection factory
	provider := &transport.Provider{
		Timeout:       cfg.DeviceTimeout,
		PaymentTokens: paymentTokenLookup(store),
	}

	// Printer registry, job queue and executor. The queue gate is installed
	// after construction: queue -> executor -> registry is the data path,
	// registry -> queue only for the busy check.
	p.printers = registry.New(provider, nil, store)
	executor := worker.NewExecutor(p.printers)
	executor.SetOperatorDefaults(store.Settings().OperatorID, store.Settings().OperatorPassword)
	p.queue = jobqueue.New(executor, cfg.QueueCapacity)
	p.printers.SetJobGate(p.queue)
	p.queue.Start()

	if store.Settings().AutoDetect && cfg.AutoDetect {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.printers.Detect(false); err != nil {
				log.Printf("[INIT] ⚠️ Printer detection failed: %v", err)
			}
		}()
	}

	// WebSocket server
	p.wsServer = server.NewServer(server.Config{
		ServerID:       store.Settings().ServerID,
		AuthToken:      config.AuthToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}, p.queue, p.printers)

	// Setup embedded filesystem
	webFS, err := fs.Sub(assets.WebFiles, "web")
	if err != nil {
		log.Fatalf("[FATAL] Error loading web assets: %v", err)
	}

	// Parse index.html as Go template for token injection
	indexBytes := readWebFile(webFS, "index.html")
	dashboardTmpl, err := template.New("dashboard").Parse(string(indexBytes))
	if err != nil {
		log.Fatalf("[FATAL] Error parsing index.html as template: %v", err)
	}

	loginHTML := readWebFile(webFS, "login.html")

	// Create HTTP mux with auth boundaries
	mux := http.NewServeMux()

	// ── PUBLIC ROUTES (no auth required) ─────────────────────
	mux.HandleFunc("/login", serveLogin(p.authMgr, loginHTML))
	mux.HandleFunc("/auth/login", handleLogin(p.authMgr))
	mux.HandleFunc("/auth/logout", handleLogout(p.authMgr))
	mux.HandleFunc("/ws", p.wsServer.HandleWebSocket) // WS is public; token validates inside per-message
	mux.HandleFunc("/health", p.healthHandler(cfg))   // Health is public for monitoring tools

	// ── PROTECTED ROUTES (session required for dashboard) ────
	mux.HandleFunc("/logs/flush", requireAuth(p.authMgr, handleLogFlush))
	mux.HandleFunc("/logs/verbose", requireAuth(p.authMgr, handleLogVerbose))
	mux.HandleFunc("/", requireAuth(p.authMgr, serveDashboard(dashboardTmpl)))

	p.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		log.Println("┌─────────────────────────────────────────────────────────────┐")
		log.Printf("│ 🧾 FISCAL DAEMON READY - Environment: %-22s│", cfg.Name)
		log.Printf("│ 🔌 WebSocket: ws://%s/ws%-25s│", cfg.ListenAddr, "")
		log.Printf("│ 🌐 Dashboard: http://%s%-27s│", cfg.ListenAddr, "")
		log.Printf("│ 💚 Health:    http://%s/health%-21s│", cfg.ListenAddr, "")
		log.Printf("│ 🔐 Auth:      %-44v│", p.authMgr.Enabled())
		log.Println("└─────────────────────────────────────────────────────────────┘")

		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] ❌ Error starting HTTP server: %v", err)
		}
	}()

	return nil
}

// Stop stops the service gracefully
func (p *Program) Stop() error {
	log.Println("[STOP] 🛑 Service shutting down...")

	// 1. Cancel context (stops auth cleanup goroutine)
	p.cancel()

	// 2. Stop the job worker
	if p.queue != nil {
		p.queue.Stop()
	}

	// 3. Graceful HTTP shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.httpServer != nil {
		if err := p.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[STOP] ⚠️ HTTP shutdown error: %v", err)
		}
	}

	// 4. Shutdown WebSocket server
	if p.wsServer != nil {
		p.wsServer.Shutdown()
	}

	// 5. Release the printer channels
	if p.printers != nil {
		p.printers.Close()
	}

	close(p.quit)
	p.wg.Wait()

	uptime := time.Since(p.startTime)
	log.Printf("[STOP] ✅ Service stopped (uptime: %v)", uptime.Round(time.Second))
	return nil
}

// healthHandler reports queue, worker and registry health.
func (p *Program) healthHandler(cfg config.Environment) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := p.queue.Stats()
		capacity := cfg.QueueCapacity

		var utilization float64
		if capacity > 0 {
			utilization = float64(stats.Pending) / float64(capacity) * 100
		}

		printers := p.printers.List()
		summary := printer.Summary{
			Status:          "ok",
			RegisteredCount: len(printers),
			Ready:           p.printers.Ready(),
		}
		if len(printers) == 0 {
			summary.Status = "warning"
		}

		response := HealthResponse{
			Status: "ok",
			Queue: QueueStatus{
				Current:     stats.Pending,
				Capacity:    capacity,
				Utilization: utilization,
			},
			Worker: WorkerStatus{
				Running:       stats.IsRunning,
				JobsProcessed: stats.JobsProcessed,
				JobsFailed:    stats.JobsFailed,
			},
			Printers: summary,
			Build: BuildInfo{
				Env:  config.BuildEnvironment,
				Date: config.BuildDate,
				Time: config.BuildTime,
			},
			Uptime: int(time.Since(p.startTime).Seconds()),
			Log: LogStatus{
				SizeBytes: GetLogFileSize(),
				Verbose:   GetVerbose(),
			},
		}

		if !summary.Ready || summary.Status == "error" {
			response.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// paymentTokenLookup adapts the persisted string-keyed remap to the typed
// form the provider hands to drivers.
func paymentTokenLookup(store *config.Store) func(string) map[fiscal.PaymentType]string {
	return func(serialNumber string) map[fiscal.PaymentType]string {
		raw := store.PaymentTokens(serialNumber)
		if len(raw) == 0 {
			return nil
		}
		out := make(map[fiscal.PaymentType]string, len(raw))
		for name, token := range raw {
			out[fiscal.PaymentType(name)] = token
		}
		return out
	}
}

func initLogging(envConfig config.Environment) error {
	logPath := envConfig.LogPath(os.Getenv("PROGRAMDATA"))
	logDir := filepath.Dir(logPath)

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return err
	}

	if err := InitLogger(logPath, envConfig.Verbose); err != nil {
		return err
	}

	log.Printf("[INIT] 📁 Log file: %s", logPath)
	return nil
}

// requireAuth wraps a handler with session validation.
// If auth is disabled (no hash), all requests pass through.
func requireAuth(authMgr *auth.Manager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authMgr.Enabled() {
			next(w, r)
			return
		}
		if !authMgr.GetSessionFromRequest(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// serveLogin returns a handler that serves the login page.
func serveLogin(authMgr *auth.Manager, loginHTML []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authMgr.Enabled() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if authMgr.GetSessionFromRequest(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(loginHTML)
	}
}

// handleLogin processes POST /auth/login.
func handleLogin(authMgr *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ip := r.RemoteAddr
		if authMgr.IsLockedOut(ip) {
			log.Printf("[AUDIT] LOGIN_BLOCKED | IP=%s | reason=lockout", ip)
			http.Redirect(w, r, "/login?locked=1", http.StatusSeeOther)
			return
		}
		password := r.FormValue("password")
		if !authMgr.ValidatePassword(password) {
			authMgr.RecordFailedLogin(ip)
			log.Printf("[AUDIT] LOGIN_FAILED | IP=%s", ip)
			http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
			return
		}
		authMgr.ClearFailedLogins(ip)
		authMgr.SetSessionCookie(w)
		log.Printf("[AUDIT] LOGIN_SUCCESS | IP=%s", ip)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleLogFlush truncates the service log to its last lines.
func handleLogFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := FlushLogFile(); err != nil {
		log.Printf("[LOG] ❌ Flush failed: %v", err)
		http.Error(w, "flush failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LogStatus{SizeBytes: GetLogFileSize(), Verbose: GetVerbose()})
}

// handleLogVerbose switches chatty-message logging on or off.
func handleLogVerbose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		http.Error(w, "enabled must be true or false", http.StatusBadRequest)
		return
	}
	SetVerbose(enabled)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LogStatus{SizeBytes: GetLogFileSize(), Verbose: GetVerbose()})
}

// handleLogout clears the session.
func handleLogout(authMgr *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMgr.ClearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// serveDashboard renders the dashboard template with token injection.
func serveDashboard(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct{ AuthToken string }{AuthToken: config.AuthToken}
		if err := tmpl.Execute(w, data); err != nil {
			log.Printf("[HTTP] ❌ Error rendering dashboard: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// readWebFile reads a file from the embedded FS, fataling on error.
func readWebFile(webFS fs.FS, name string) []byte {
	data, err := fs.ReadFile(webFS, name)
	if err != nil {
		log.Fatalf("[FATAL] Error reading %s: %v", name, err)
	}
	return data
}
