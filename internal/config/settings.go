package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Settings is the state the daemon persists across restarts: its identity,
// the printers it last talked to, and per-device operator defaults.
type Settings struct {
	// ServerID identifies this installation to POS clients. Generated once.
	ServerID string `json:"serverId"`
	// Printers maps printer id to connection URI.
	Printers map[string]string `json:"printers"`
	// AutoDetect enables the serial port scan on startup.
	AutoDetect bool `json:"autoDetect"`
	// PaymentTypeMap remaps payment types to vendor tokens, keyed by device
	// serial number. Inner key is the payment type name ("cash", "card", ...).
	PaymentTypeMap map[string]map[string]string `json:"paymentTypeMap,omitempty"`
	// Operator defaults applied when a receipt carries none.
	OperatorID       string `json:"operatorId,omitempty"`
	OperatorPassword string `json:"operatorPassword,omitempty"`
}

// Store reads and writes Settings as a JSON file. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	filePath string
	settings Settings
}

// NewStore loads the settings file, creating it with defaults (and a fresh
// server id) on first run.
func NewStore(filePath string) (*Store, error) {
	s := &Store{filePath: filePath}
	if err := s.loadFromFile(); err != nil {
		return nil, fmt.Errorf("settings store init: %w", err)
	}
	if s.settings.ServerID == "" {
		s.settings.ServerID = newServerID()
		if err := s.saveToFile(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// PrinterURIs returns the persisted printer-id to URI map.
func (s *Store) PrinterURIs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.settings.Printers))
	for k, v := range s.settings.Printers {
		out[k] = v
	}
	return out
}

// SavePrinterURIs replaces the persisted printer map.
func (s *Store) SavePrinterURIs(uris map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Printers = make(map[string]string, len(uris))
	for k, v := range uris {
		s.settings.Printers[k] = v
	}
	return s.saveToFile()
}

// PaymentTokens returns the payment remap for one device serial, or nil.
func (s *Store) PaymentTokens(serialNumber string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	remap, ok := s.settings.PaymentTypeMap[serialNumber]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(remap))
	for k, v := range remap {
		out[k] = v
	}
	return out
}

// Update applies fn to the settings under the lock and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
	return s.saveToFile()
}

func (s *Store) snapshot() Settings {
	out := s.settings
	out.Printers = make(map[string]string, len(s.settings.Printers))
	for k, v := range s.settings.Printers {
		out.Printers[k] = v
	}
	return out
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.settings = Settings{Printers: map[string]string{}, AutoDetect: true}
			return nil
		}
		return fmt.Errorf("reading settings file: %w", err)
	}
	if err := json.Unmarshal(data, &s.settings); err != nil {
		return fmt.Errorf("parsing settings file: %w", err)
	}
	if s.settings.Printers == nil {
		s.settings.Printers = map[string]string{}
	}
	return nil
}

func (s *Store) saveToFile() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	jsonData, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing settings: %w", err)
	}
	if err := os.WriteFile(s.filePath, jsonData, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

// newServerID renders a fresh UUID in compact URL-safe base64.
func newServerID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
