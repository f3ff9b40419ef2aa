// Package registry keeps the set of connected fiscal printers and owns
// their life cycle: auto-detection, manual configuration, and removal.
package registry

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

// Connector turns printer URIs into live drivers. transport.Provider
// satisfies it.
type Connector interface {
	Connect(uri string) (fiscal.Driver, error)
	DetectAvailablePrinters() map[string]fiscal.Driver
}

// JobGate reports whether print work is still queued or running; detection
// must not yank drivers out from under an active job.
type JobGate interface {
	Pending() int
}

// URIStore persists the printer-id to URI map across restarts.
type URIStore interface {
	PrinterURIs() map[string]string
	SavePrinterURIs(map[string]string) error
}

// Printer is one registered device.
type Printer struct {
	ID     string
	Driver fiscal.Driver
	Info   fiscal.DeviceInfo
}

// Registry is safe for concurrent use. Detection swaps the whole printer
// set; everything else reads under the same lock.
type Registry struct {
	mu        sync.Mutex
	printers  map[string]*Printer
	ready     bool
	detecting bool

	connector Connector
	gate      JobGate
	store     URIStore
}

func New(connector Connector, gate JobGate, store URIStore) *Registry {
	return &Registry{
		printers:  make(map[string]*Printer),
		connector: connector,
		gate:      gate,
		store:     store,
	}
}

// SetJobGate installs the pending-jobs check. The queue is built after the
// registry (it needs the registry for job execution), so the gate arrives
// late.
func (r *Registry) SetJobGate(gate JobGate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = gate
}

// Ready reports whether the last detection pass has finished.
func (r *Registry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Get returns the printer with the given id, or an error naming it.
func (r *Registry) Get(id string) (*Printer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.printers[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("printer %q is not registered", id)
	}
	return p, nil
}

// List returns a snapshot of all registered printers.
func (r *Registry) List() []*Printer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Printer, 0, len(r.printers))
	for _, p := range r.printers {
		out = append(out, p)
	}
	return out
}

// Detect connects every persisted URI plus whatever DetectAvailablePrinters
// finds on the host ports, then swaps the new set in. With force=false a
// registry that is already populated and ready is left alone. Detection is
// refused while jobs are pending, and only one pass runs at a time: a call
// arriving while a pass is scanning is a no-op.
func (r *Registry) Detect(force bool) error {
	r.mu.Lock()
	if r.detecting {
		r.mu.Unlock()
		log.Println("[REGISTRY] ⏳ Detection already running, skipping")
		return nil
	}
	if r.ready && !force && len(r.printers) > 0 {
		r.mu.Unlock()
		return nil
	}
	if r.gate != nil && r.gate.Pending() > 0 {
		r.mu.Unlock()
		return fmt.Errorf("cannot re-detect printers: %d jobs pending", r.gate.Pending())
	}
	r.detecting = true
	r.ready = false
	old := r.printers
	saved := map[string]string{}
	if r.store != nil {
		saved = r.store.PrinterURIs()
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.detecting = false
		r.mu.Unlock()
	}()

	closeAll(old)

	next := make(map[string]*Printer)
	for id, uri := range saved {
		drv, err := r.connector.Connect(uri)
		if err != nil {
			log.Printf("[REGISTRY] ⚠️ Saved printer %s (%s) did not answer: %v", id, uri, err)
			continue
		}
		addPrinter(next, drv)
	}
	for _, drv := range r.connector.DetectAvailablePrinters() {
		addPrinter(next, drv)
	}

	r.mu.Lock()
	r.printers = next
	r.ready = true
	r.mu.Unlock()

	r.persist()
	log.Printf("[REGISTRY] ✅ Detection finished, %d printer(s) registered", len(next))
	return nil
}

// Configure connects the given URI and registers the resulting printer,
// replacing any entry that already holds the same device.
func (r *Registry) Configure(uri string) (*Printer, error) {
	drv, err := r.connector.Connect(uri)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	p := addPrinter(r.printers, drv)
	r.mu.Unlock()

	r.persist()
	log.Printf("[REGISTRY] 🖨️ Configured printer %s at %s", p.ID, uri)
	return p, nil
}

// Delete removes a printer and closes its driver.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	key := strings.ToLower(id)
	p, ok := r.printers[key]
	if ok {
		delete(r.printers, key)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("printer %q is not registered", id)
	}
	closeDriver(p.Driver)
	r.persist()
	return nil
}

// Close shuts down every driver. The registry is unusable afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	old := r.printers
	r.printers = make(map[string]*Printer)
	r.ready = false
	r.mu.Unlock()
	closeAll(old)
}

// addPrinter registers drv under its lowercase serial number. The same
// device on the same URI is a no-op; the same serial on a different URI
// gets a numeric suffix so both stay addressable.
func addPrinter(set map[string]*Printer, drv fiscal.Driver) *Printer {
	info := drv.DeviceInfo()
	id := strings.ToLower(info.SerialNumber)
	if id == "" {
		id = "printer"
	}
	if existing, ok := set[id]; ok {
		if existing.Info.URI == info.URI {
			closeDriver(drv)
			return existing
		}
		base := id
		for n := 1; ; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
			if _, taken := set[id]; !taken {
				break
			}
		}
	}
	p := &Printer{ID: id, Driver: drv, Info: info}
	set[id] = p
	return p
}

func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	r.mu.Lock()
	uris := make(map[string]string, len(r.printers))
	for id, p := range r.printers {
		uris[id] = p.Info.URI
	}
	r.mu.Unlock()
	if err := r.store.SavePrinterURIs(uris); err != nil {
		log.Printf("[REGISTRY] ⚠️ Cannot persist printer list: %v", err)
	}
}

func closeAll(set map[string]*Printer) {
	for _, p := range set {
		closeDriver(p.Driver)
	}
}

func closeDriver(drv fiscal.Driver) {
	if c, ok := drv.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
