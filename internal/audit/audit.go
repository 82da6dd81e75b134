// Package audit writes one JSON line per scan so operators can replay
// exactly what the engine decided and why.
package audit

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Entry is a structured record of one completed scan.
type Entry struct {
	Timestamp   time.Time     `json:"timestamp"`
	ScanID      string        `json:"scan_id"`
	PayloadType string        `json:"payload_type"`
	Verdict     string        `json:"verdict"`
	Score       int           `json:"score"`
	Flags       []string      `json:"flags,omitempty"`
	Decision    string        `json:"decision,omitempty"` // policy outcome
	PolicyRule  string        `json:"policy_rule,omitempty"`
	Latency     time.Duration `json:"latency_ns"`
}

// Logger handles structured audit logging.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	fallback *log.Logger
}

// NewLogger creates an audit logger. If filePath is empty, entries go
// to stdout in JSON format.
func NewLogger(filePath string) (*Logger, error) {
	var file *os.File
	var err error

	if filePath != "" {
		file, err = os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	} else {
		file = os.Stdout
	}

	return &Logger{
		file:     file,
		encoder:  json.NewEncoder(file),
		fallback: log.New(os.Stderr, "[AUDIT] ", log.LstdFlags),
	}, nil
}

// Log writes one audit entry. A nil logger drops entries silently so
// callers can treat auditing as optional.
func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := l.encoder.Encode(entry); err != nil {
		l.fallback.Printf("Failed to write audit entry: %v, entry: %+v", err, entry)
	}
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && l.file != os.Stdout {
		return l.file.Close()
	}
	return nil
}
