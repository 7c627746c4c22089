package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestComponent(t *testing.T) {
	attr := Component("drift")
	if attr.Key != FieldComponent {
		t.Errorf("expected key %q, got %q", FieldComponent, attr.Key)
	}
	if attr.Value.String() != "drift" {
		t.Errorf("expected value %q, got %q", "drift", attr.Value.String())
	}
}

func TestAgent(t *testing.T) {
	attr := Agent("agent-alpha")
	if attr.Key != FieldAgent {
		t.Errorf("expected key %q, got %q", FieldAgent, attr.Key)
	}
	if attr.Value.String() != "agent-alpha" {
		t.Errorf("expected value %q, got %q", "agent-alpha", attr.Value.String())
	}
}

func TestMetric(t *testing.T) {
	attr := Metric("latency")
	if attr.Key != FieldMetric {
		t.Errorf("expected key %q, got %q", FieldMetric, attr.Key)
	}
	if attr.Value.String() != "latency" {
		t.Errorf("expected value %q, got %q", "latency", attr.Value.String())
	}
}

func TestStatus(t *testing.T) {
	attr := Status("fail")
	if attr.Key != FieldStatus {
		t.Errorf("expected key %q, got %q", FieldStatus, attr.Key)
	}
	if attr.Value.String() != "fail" {
		t.Errorf("expected value %q, got %q", "fail", attr.Value.String())
	}
}

func TestCorrelationID(t *testing.T) {
	attr := CorrelationID("corr-123")
	if attr.Key != FieldCorrelationID {
		t.Errorf("expected key %q, got %q", FieldCorrelationID, attr.Key)
	}
	if attr.Value.String() != "corr-123" {
		t.Errorf("expected value %q, got %q", "corr-123", attr.Value.String())
	}
}

func TestScore(t *testing.T) {
	attr := Score(1.05)
	if attr.Key != FieldScore {
		t.Errorf("expected key %q, got %q", FieldScore, attr.Key)
	}
	if attr.Value.Kind() != slog.KindFloat64 {
		t.Errorf("expected float64 kind, got %v", attr.Value.Kind())
	}
}

func TestError(t *testing.T) {
	attr := Error(errors.New("journal append failed"))
	if attr.Key != FieldError {
		t.Errorf("expected key %q, got %q", FieldError, attr.Key)
	}
	if attr.Value.String() != "journal append failed" {
		t.Errorf("expected error message, got %q", attr.Value.String())
	}
}
