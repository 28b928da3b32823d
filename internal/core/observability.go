package core

import (
	"context"
	"time"

	"roomcore/pkg/domain"
)

// Logger is the structured logging surface used by the service.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for audit entries and placements.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// AuditStatus records the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one placement mutation attempt.
type AuditEntry struct {
	Operation  string
	Action     domain.Action
	InstanceID string
	ItemID     string
	ZoneID     string
	Status     AuditStatus
	Error      string
	Duration   time.Duration
	Timestamp  time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation's error.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// MultiAuditRecorder fans entries out to several recorders.
type MultiAuditRecorder []AuditRecorder

// Record forwards entry to every recorder.
func (m MultiAuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, entry)
		}
	}
}
