package logging

import "log/slog"

// Common field names for consistent logging across governance components.
const (
	FieldComponent     = "component"
	FieldAgent         = "agent"
	FieldMetric        = "metric"
	FieldStatus        = "status"
	FieldEventType     = "event_type"
	FieldEventID       = "event_id"
	FieldCorrelationID = "correlation_id"
	FieldWinner        = "winner"
	FieldSeverity      = "severity"
	FieldScore         = "score"
	FieldError         = "error"
)

// Component returns a slog attribute for the emitting component.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// Agent returns a slog attribute for the reporting agent.
func Agent(name string) slog.Attr {
	return slog.String(FieldAgent, name)
}

// Metric returns a slog attribute for the quality metric.
func Metric(name string) slog.Attr {
	return slog.String(FieldMetric, name)
}

// Status returns a slog attribute for an outcome status.
func Status(status string) slog.Attr {
	return slog.String(FieldStatus, status)
}

// EventType returns a slog attribute for a bus event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// CorrelationID returns a slog attribute for a correlation ID.
func CorrelationID(id string) slog.Attr {
	return slog.String(FieldCorrelationID, id)
}

// Winner returns a slog attribute for an arbitration winner.
func Winner(agent string) slog.Attr {
	return slog.String(FieldWinner, agent)
}

// Severity returns a slog attribute for a drift severity.
func Severity(sev string) slog.Attr {
	return slog.String(FieldSeverity, sev)
}

// Score returns a slog attribute for a trust score.
func Score(score float64) slog.Attr {
	return slog.Float64(FieldScore, score)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
