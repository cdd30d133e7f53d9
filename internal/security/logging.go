package security

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
	LogLevelSecurity LogLevel = "SECURITY"
)

// SecurityEventType identifies an auditable action.
type SecurityEventType string

const (
	// Authentication
	EventTokenRejected      SecurityEventType = "TOKEN_REJECTED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"

	// Organizations
	EventOrganizationCreate     SecurityEventType = "ORGANIZATION_CREATE"
	EventOrganizationSwitch     SecurityEventType = "ORGANIZATION_SWITCH"
	EventOrganizationSwitchDeny SecurityEventType = "ORGANIZATION_SWITCH_DENIED"

	// Projects and documents
	EventProjectCreate   SecurityEventType = "PROJECT_CREATE"
	EventProjectDelete   SecurityEventType = "PROJECT_DELETE"
	EventDocumentDelete  SecurityEventType = "DOCUMENT_DELETE"
	EventDocumentReorder SecurityEventType = "DOCUMENT_REORDER"
)

// LogEntry is one JSON log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`

	// Security events
	EventType  SecurityEventType      `json:"event_type,omitempty"`
	ActorID    *string                `json:"actor_id,omitempty"`
	ActorEmail string                 `json:"actor_email,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`

	// HTTP requests
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`

	Error string `json:"error,omitempty"`
}

// Logger writes structured JSON log lines, one entry per line.
type Logger struct {
	output  *log.Logger
	service string
}

// NewLogger creates a logger writing to stdout.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a logger writing to w.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{output: log.New(w, "", 0)}
}

// WithService returns a copy of the logger that stamps every entry's extra
// map with the service name.
func (l *Logger) WithService(name string) *Logger {
	return &Logger{output: l.output, service: name}
}

func (l *Logger) write(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if l.service != "" {
		if entry.Extra == nil {
			entry.Extra = map[string]interface{}{}
		}
		entry.Extra["service"] = l.service
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.output.Printf(`{"level":"ERROR","message":"log marshal failed: %s"}`, err)
		return
	}
	l.output.Println(string(data))
}

// Info logs an informational message.
func (l *Logger) Info(message string) {
	l.write(LogEntry{Level: LogLevelInfo, Message: message})
}

// Warn logs a warning.
func (l *Logger) Warn(message string) {
	l.write(LogEntry{Level: LogLevelWarning, Message: message})
}

// Error logs an error; err may be nil.
func (l *Logger) Error(message string, err error) {
	entry := LogEntry{Level: LogLevelError, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Critical logs a failure that needs operator attention; err may be nil.
func (l *Logger) Critical(message string, err error) {
	entry := LogEntry{Level: LogLevelCritical, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// SecurityEvent logs an auditable action.
//
// Parameters:
//   - eventType: What happened
//   - actorID: Acting user id, nil for anonymous requests
//   - actorEmail: Acting user's email if known
//   - ipAddress, userAgent: Request origin
//   - extra: Event specific fields (ids, reasons)
func (l *Logger) SecurityEvent(eventType SecurityEventType, actorID *string, actorEmail, ipAddress, userAgent string, extra map[string]interface{}) {
	l.write(LogEntry{
		Level:      LogLevelSecurity,
		Message:    fmt.Sprintf("security event: %s", eventType),
		EventType:  eventType,
		ActorID:    actorID,
		ActorEmail: actorEmail,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Extra:      extra,
	})
}

// HTTPRequest logs a completed HTTP request.
func (l *Logger) HTTPRequest(requestID, method, path string, status int, latencyMS int64, ipAddress, userAgent string) {
	l.write(LogEntry{
		Level:     LogLevelInfo,
		Message:   fmt.Sprintf("%s %s %d", method, path, status),
		RequestID: requestID,
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMS: latencyMS,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}
