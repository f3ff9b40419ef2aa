// Package daemon wires the fiscal print service together and runs it under
// the platform service manager.
package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const (
	maxLogSize     = 5 * 1024 * 1024 // rotate above 5MB
	rotateKeep     = 1000            // lines kept on rotation
	flushKeep      = 50              // lines kept on manual flush
	tailReadWindow = 64 * 1024
)

// Prefixes of chatty per-job messages, dropped unless verbose logging is on.
var chattyPrefixes = []string{
	"[WS] ➕ Client connected",
	"[WS] ➖ Client disconnected",
	"[QUEUE] 📥 Job queued",
	"[WORKER] 🔄 Processing job",
	"[WORKER] 👂 Waiting",
	"[DEBUG]",
}

// fileLogger is an io.Writer that appends to a rotating log file, filtering
// chatty messages when verbose is off. It is installed as the output of the
// standard logger, so every package's log.Printf lands here.
type fileLogger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	verbose bool
}

var serviceLog = &fileLogger{verbose: true}

func (l *fileLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.verbose {
		msg := string(p)
		for _, prefix := range chattyPrefixes {
			if strings.Contains(msg, prefix) {
				return len(p), nil
			}
		}
	}

	if l.file == nil {
		return 0, fmt.Errorf("log file not initialized")
	}
	return l.file.Write(p)
}

// InitLogger opens (rotating first if oversized) the service log file and
// routes the standard logger to it.
func InitLogger(path string, verbose bool) error {
	serviceLog.mu.Lock()
	defer serviceLog.mu.Unlock()

	serviceLog.path = path
	serviceLog.verbose = verbose

	if err := truncateToTail(path, maxLogSize, rotateKeep); err != nil {
		fmt.Printf("[INIT] ⚠️ Log rotation failed: %v\n", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec
	if err != nil {
		return err
	}
	serviceLog.file = f

	log.SetOutput(serviceLog)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	return nil
}

// SetVerbose switches chatty-message filtering at runtime.
func SetVerbose(v bool) {
	serviceLog.mu.Lock()
	serviceLog.verbose = v
	serviceLog.mu.Unlock()
	log.Printf("[LOG] 🔊 Verbose logging: %v", v)
}

// GetVerbose reports whether chatty messages are being written.
func GetVerbose() bool {
	serviceLog.mu.Lock()
	defer serviceLog.mu.Unlock()
	return serviceLog.verbose
}

// GetLogFileSize returns the current size of the log file in bytes.
func GetLogFileSize() int64 {
	serviceLog.mu.Lock()
	path := serviceLog.path
	serviceLog.mu.Unlock()

	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FlushLogFile discards the log file's contents except its last lines,
// reopening it afterwards so writes continue uninterrupted.
func FlushLogFile() error {
	serviceLog.mu.Lock()
	defer serviceLog.mu.Unlock()

	if serviceLog.path == "" {
		return fmt.Errorf("log path not configured")
	}

	lines := readLastNLines(serviceLog.path, flushKeep)
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}

	if serviceLog.file != nil {
		if err := serviceLog.file.Close(); err != nil {
			return err
		}
		serviceLog.file = nil
	}

	if err := os.WriteFile(serviceLog.path, []byte(content), 0600); err != nil {
		return err
	}

	f, err := os.OpenFile(serviceLog.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec
	if err != nil {
		return err
	}
	serviceLog.file = f

	log.Println("[LOG] 🧹 Log file flushed")
	return nil
}

// truncateToTail rewrites the file to its last keep lines once its size
// passes limit. Missing file is not an error.
func truncateToTail(path string, limit int64, keep int) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < limit {
		return nil
	}

	lines := readLastNLines(path, keep)
	if len(lines) == 0 {
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
}

// readLastNLines returns up to n complete lines from the end of the file,
// reading at most the last 64KB.
func readLastNLines(path string, n int) []string {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil
	}
	defer file.Close() //nolint:errcheck

	stat, err := file.Stat()
	if err != nil || stat.Size() == 0 {
		return nil
	}

	size := stat.Size()
	window := int64(tailReadWindow)
	if size < window {
		window = size
	}

	buf := make([]byte, window)
	if _, err := file.Seek(size-window, io.SeekStart); err != nil {
		return nil
	}
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil
	}

	lines := strings.Split(string(buf), "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	// A window starting mid-line leaves a partial first entry.
	if size > window && len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
