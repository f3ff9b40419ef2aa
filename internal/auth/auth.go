// Package auth guards the dashboard with a build-time password, cookie
// sessions and per-IP login throttling.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adcondev/fiscal-daemon/internal/config"
)

const (
	SessionCookieName = "fd_session"
	SessionDuration   = 15 * time.Minute
	MaxLoginAttempts  = 5
	LockoutDuration   = 5 * time.Minute
	cleanupInterval   = 5 * time.Minute
)

// loginAttempts tracks consecutive failures from one address.
type loginAttempts struct {
	failures    int
	lockedUntil time.Time
}

// Manager owns dashboard sessions and the login throttle. A nil password
// hash (no ldflags injection) disables auth entirely, for development runs.
type Manager struct {
	mu           sync.RWMutex
	passwordHash []byte
	sessions     map[string]time.Time
	attempts     map[string]loginAttempts
}

// NewManager decodes the injected password hash and starts the expiry sweep,
// which stops when ctx is cancelled.
func NewManager(ctx context.Context) *Manager {
	m := &Manager{
		sessions: make(map[string]time.Time),
		attempts: make(map[string]loginAttempts),
	}
	if config.PasswordHashB64 != "" {
		hash, err := base64.StdEncoding.DecodeString(config.PasswordHashB64)
		if err != nil {
			log.Printf("[AUTH] ❌ Invalid password hash in build config: %v", err)
		} else {
			m.passwordHash = hash
		}
	}
	go m.sweep(ctx)
	log.Printf("[AUTH] 🔐 Auth manager initialized (enabled=%v)", m.Enabled())
	return m
}

// Enabled reports whether a usable password hash was injected at build time.
func (m *Manager) Enabled() bool {
	return len(m.passwordHash) > 0
}

// ValidatePassword compares the submitted password against the build hash.
// With auth disabled every password passes.
func (m *Manager) ValidatePassword(password string) bool {
	if !m.Enabled() {
		log.Println("[AUTH] ⚠️ Auth disabled: no password hash configured (dev mode)")
		return true
	}
	return bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
}

// CreateSession issues a random session token valid for SessionDuration.
func (m *Manager) CreateSession() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// rand.Read failing means the OS entropy source is broken; a
		// predictable fallback token is still better than locking the
		// operator out of a LAN-only dashboard.
		log.Printf("[AUTH] ⚠️ crypto/rand failed: %v", err)
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	token := hex.EncodeToString(b)

	m.mu.Lock()
	m.sessions[token] = time.Now().Add(SessionDuration)
	m.mu.Unlock()
	return token
}

// ValidateSession reports whether token names a live session, expiring it
// when its deadline has passed.
func (m *Manager) ValidateSession(token string) bool {
	if token == "" {
		return false
	}

	m.mu.RLock()
	deadline, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(deadline) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return false
	}
	return true
}

// GetSessionFromRequest validates the session cookie carried by r.
func (m *Manager) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return false
	}
	return m.ValidateSession(cookie.Value)
}

// SetSessionCookie creates a session and writes its cookie.
func (m *Manager) SetSessionCookie(w http.ResponseWriter) string {
	token := m.CreateSession()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// ClearSessionCookie expires the session cookie on the client.
func (m *Manager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// IsLockedOut reports whether ip is inside an active lockout window.
func (m *Manager) IsLockedOut(ip string) bool {
	m.mu.RLock()
	a, ok := m.attempts[ip]
	m.mu.RUnlock()
	return ok && a.failures >= MaxLoginAttempts && time.Now().Before(a.lockedUntil)
}

// RecordFailedLogin counts a failure for ip, locking it out past the limit.
func (m *Manager) RecordFailedLogin(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attempts[ip]
	a.failures++
	if a.failures >= MaxLoginAttempts {
		a.lockedUntil = time.Now().Add(LockoutDuration)
		log.Printf("[AUDIT] LOCKOUT | IP=%s | failures=%d | duration=%v",
			ip, a.failures, LockoutDuration)
	}
	m.attempts[ip] = a
}

// ClearFailedLogins forgets ip's failures after a successful login.
func (m *Manager) ClearFailedLogins(ip string) {
	m.mu.Lock()
	delete(m.attempts, ip)
	m.mu.Unlock()
}

// sweep drops expired sessions and elapsed lockouts on a fixed interval.
func (m *Manager) sweep(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AUTH] 🛑 Session sweep stopped")
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for token, deadline := range m.sessions {
				if now.After(deadline) {
					delete(m.sessions, token)
				}
			}
			for ip, a := range m.attempts {
				if a.failures >= MaxLoginAttempts && now.After(a.lockedUntil) {
					delete(m.attempts, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}
