// internal/logging/logging.go

// Package logging routes the standard logger to stdout and an optional log file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   atomic.Bool
	console io.Writer = os.Stdout
)

// Init points the standard logger at the console and, when logPath is set,
// appends to that file as well. Calling Init again replaces the previous file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{console}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetConsole replaces the console writer used by the next Init call.
// Passing nil silences console output (file output is unaffected).
func SetConsole(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	console = w
}

// SetDebug toggles LogDebug output.
func SetDebug(enabled bool) { debug.Store(enabled) }

// DebugEnabled reports whether LogDebug output is enabled.
func DebugEnabled() bool { return debug.Load() }

func LogEvent(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(msg)
}

// LogDebug behaves like LogEvent but only when debug logging is enabled.
func LogDebug(format string, args ...any) {
	if !debug.Load() {
		return
	}
	log.Println("[DEBUG] " + fmt.Sprintf(format, args...))
}

// LogRequest records traffic to and from an external collaborator
// (embedding or generation backend).
func LogRequest(direction, host, model, tool string, payload any) {
	msg := buildRequestMessage(direction, host, model, tool, payload)
	log.Println(msg)
}

func buildRequestMessage(direction, host, model, tool string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if tool = strings.TrimSpace(tool); tool != "" {
		parts = append(parts, fmt.Sprintf("op=%s", tool))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
