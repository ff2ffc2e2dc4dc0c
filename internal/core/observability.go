package core

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the minimal structured logging contract the service depends on.
// Key/value pairs follow the slog convention.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the Logger contract.
type SlogLogger struct{ L *slog.Logger }

func (s SlogLogger) Debug(msg string, kv ...any) { s.L.Debug(msg, kv...) }
func (s SlogLogger) Info(msg string, kv ...any)  { s.L.Info(msg, kv...) }
func (s SlogLogger) Warn(msg string, kv ...any)  { s.L.Warn(msg, kv...) }
func (s SlogLogger) Error(msg string, kv ...any) { s.L.Error(msg, kv...) }

// AuditStatus labels the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry is an immutable record of one service operation.
type AuditEntry struct {
	Operation     string        `json:"operation"`
	Status        AuditStatus   `json:"status"`
	ParticipantID string        `json:"participant_id,omitempty"`
	EntityID      string        `json:"entity_id,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// AuditRecorder receives audit entries for every service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes for aggregation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends a started span, recording the terminal error if any.
type TraceSpan interface {
	End(err error)
}

// Clock supplies the current time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
