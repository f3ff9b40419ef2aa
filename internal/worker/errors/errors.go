package workererrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adcondev/fiscal-daemon/internal/fiscal"
)

// ExtractUserFriendlyError creates a clean error message for the UI
func ExtractUserFriendlyError(err error) string {
	switch {
	case errors.Is(err, fiscal.ErrTransport):
		return fmt.Sprintf("TRANSPORT: %s", extractInnerError(err.Error()))
	case errors.Is(err, fiscal.ErrProtocolSyntax):
		return fmt.Sprintf("PROTOCOL: %s", extractInnerError(err.Error()))
	case errors.Is(err, fiscal.ErrUnsupportedValue),
		errors.Is(err, fiscal.ErrInvalidArgument):
		return fmt.Sprintf("VALIDATION: %s", extractInnerError(err.Error()))
	}

	errStr := err.Error()

	// Common error patterns and their friendly messages
	errorMappings := []struct {
		pattern string
		message string
	}{
		{"missing 'document' field", "VALIDATION: Missing 'document' field"},
		{"invalid document json", "JSON: Invalid document structure"},
		{"missing 'dateTime' field", "VALIDATION: Missing 'dateTime' field"},
		{"is not registered", "PRINTER: Not registered - run detection or configure it"},
		{"did not answer", "PRINTER: Cannot connect - check cable and power"},
		{"queue is full", "QUEUE: Too many pending jobs, retry later"},
		{"unknown action", "COMMAND: Unknown action type"},
		{"unknown printer vendor", "URI: Unknown vendor prefix (use zfp or isl)"},
		{"unknown transport scheme", "URI: Unknown transport scheme (use serial or tcp)"},
		{"malformed printer uri", "URI: Malformed printer address"},
		{"jobs pending", "REGISTRY: Busy - wait for queued jobs to finish"},
	}

	// Check for matching patterns
	for _, mapping := range errorMappings {
		if strings.Contains(strings.ToLower(errStr), strings.ToLower(mapping.pattern)) {
			return mapping.message
		}
	}

	// Fallback: return cleaned error
	return fmt.Sprintf("ERROR: %s", errStr)
}

// SummarizeStatus flattens a device status into one UI line: the first
// error if any, otherwise OK with a warning count.
func SummarizeStatus(status fiscal.DeviceStatus) string {
	if first := status.FirstErrorText(); first != "" {
		return first
	}
	warnings := 0
	for _, m := range status.Messages {
		if m.Severity == fiscal.SeverityWarning {
			warnings++
		}
	}
	if warnings > 0 {
		return fmt.Sprintf("OK (%d warning(s))", warnings)
	}
	return "OK"
}

// extractInnerError gets the innermost error message
func extractInnerError(errStr string) string {
	// Find the last colon-separated segment
	parts := strings.Split(errStr, ": ")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return errStr
}
