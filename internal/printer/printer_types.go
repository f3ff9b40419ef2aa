// Package printer contains shared types to avoid import cycles.
package printer

// Summary provides a lightweight overview for health checks
type Summary struct {
	Status          string `json:"status"` // "ok", "warning", "error"
	RegisteredCount int    `json:"registered_count"`
	Ready           bool   `json:"ready"`
}

// DetailDTO is the JSON response format for printer details
type DetailDTO struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serial_number"`
	FMSerial     string `json:"fm_serial,omitempty"`
	Model        string `json:"model"`
	Firmware     string `json:"firmware,omitempty"`
	URI          string `json:"uri"`
}
