// Package governance assembles the QA governance subsystem: one event bus,
// one trust ledger, one drift detector and one arbitration engine behind an
// explicit System handle. There are no package-level singletons; every
// consumer receives the System it should use.
package governance

import (
	"fmt"
	"time"

	"github.com/arbiter-systems/qagov/common/logging"
	"github.com/arbiter-systems/qagov/internal/arbitration"
	"github.com/arbiter-systems/qagov/internal/bus"
	"github.com/arbiter-systems/qagov/internal/config"
	"github.com/arbiter-systems/qagov/internal/drift"
	"github.com/arbiter-systems/qagov/internal/rules"
	"github.com/arbiter-systems/qagov/internal/trust"
)

// EventTypeQAOutcome is the bus event type carrying agent quality reports.
const EventTypeQAOutcome = "qa_outcome"

// System owns the governance components and their bus wiring.
type System struct {
	cfg    *config.Config
	logger *logging.Logger

	bus         *bus.Bus
	trust       *trust.Engine
	drift       *drift.Detector
	arbitration *arbitration.Engine
	rules       *rules.Rules
}

// New constructs a System from configuration: loads governance rules, opens
// the trust ledger, starts the bus workers and subscribes the ledger and the
// drift detector to QA outcome events.
func New(cfg *config.Config, logger *logging.Logger) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	governanceRules := rules.Load(cfg.Rules.Path, logger)

	trustEngine, err := trust.New(trust.Config{
		StorageDir:        cfg.Trust.StorageDir,
		SuccessMultiplier: cfg.Trust.SuccessMultiplier,
		FailureMultiplier: cfg.Trust.FailureMultiplier,
		Minimum:           cfg.Trust.Minimum,
		Maximum:           cfg.Trust.Maximum,
		FlushInterval:     cfg.Trust.FlushInterval,
		AgentDefaults:     cfg.Trust.AgentDefaults,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("governance: trust engine: %w", err)
	}

	driftDetector, err := drift.New(drift.Config{
		WindowSize: cfg.Drift.WindowSize,
		Threshold:  cfg.Drift.Threshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("governance: drift detector: %w", err)
	}

	eventBus, err := bus.New(bus.Config{
		WorkerCount: cfg.Bus.WorkerCount,
		QueueSize:   cfg.Bus.QueueSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("governance: event bus: %w", err)
	}

	s := &System{
		cfg:         cfg,
		logger:      logger.With(logging.Component("governance")),
		bus:         eventBus,
		trust:       trustEngine,
		drift:       driftDetector,
		arbitration: arbitration.New(arbitration.Config{
			MaxQueue:   cfg.Arbitration.MaxQueue,
			StaleAfter: cfg.Arbitration.StaleAfter,
		}, governanceRules, logger),
		rules: governanceRules,
	}

	if _, err := eventBus.Subscribe(EventTypeQAOutcome, s.handleTrust); err != nil {
		return nil, err
	}
	if _, err := eventBus.Subscribe(EventTypeQAOutcome, s.handleDrift); err != nil {
		return nil, err
	}

	return s, nil
}

// handleTrust maps outcome statuses onto ledger mutations: pass rewards,
// fail and disabled penalize.
func (s *System) handleTrust(ev bus.Event) error {
	agent, _ := ev.Payload["agent"].(string)
	status, _ := ev.Payload["status"].(string)
	if agent == "" {
		return fmt.Errorf("outcome event without agent")
	}

	switch status {
	case drift.StatusPass:
		s.trust.RecordSuccess(agent)
	case drift.StatusFail, drift.StatusDisabled:
		s.trust.RecordFailure(agent)
	default:
		return fmt.Errorf("unknown outcome status %q", status)
	}
	return nil
}

func (s *System) handleDrift(ev bus.Event) error {
	agent, _ := ev.Payload["agent"].(string)
	metric, _ := ev.Payload["metric"].(string)
	status, _ := ev.Payload["status"].(string)
	s.drift.RecordEvent(agent, metric, status)
	return nil
}

// PublishOutcome reports one agent quality outcome: it is dispatched through
// the bus to the ledger and the drift detector, and buffered directly for
// arbitration.
func (s *System) PublishOutcome(agent, metric, status string) error {
	payload := map[string]any{
		"agent":  agent,
		"metric": metric,
		"status": status,
	}

	if err := s.bus.Publish(EventTypeQAOutcome, payload); err != nil {
		return err
	}

	s.arbitration.AddEvent(payload)
	return nil
}

// ResolveMetric collects and resolves a metric's conflicts against current
// trust scores. The second return is false when nothing was ready.
func (s *System) ResolveMetric(metric string, now time.Time) (arbitration.Decision, bool) {
	conflicts := s.arbitration.CollectReadyConflicts(metric, now)
	if len(conflicts) == 0 {
		return arbitration.Decision{}, false
	}
	return s.arbitration.ResolveConflict(conflicts, s.trust.Scores()), true
}

// CheckDrift reports whether a drift signal is pending.
func (s *System) CheckDrift() bool {
	return s.drift.IsDrift()
}

// ProposeAmendment consumes a pending drift signal into a proposal.
func (s *System) ProposeAmendment() (drift.Proposal, error) {
	return s.drift.ProposeAmendment()
}

// Amendments returns the audit list of all governance amendment proposals.
func (s *System) Amendments() []drift.Proposal {
	return s.drift.Proposals()
}

// TrustScores returns a copy of the current trust ledger.
func (s *System) TrustScores() map[string]float64 {
	return s.trust.Scores()
}

// Rules exposes the loaded governance priorities.
func (s *System) Rules() *rules.Rules {
	return s.rules
}

// BusMetrics returns the dispatcher's counter snapshot.
func (s *System) BusMetrics() bus.Metrics {
	return s.bus.Metrics()
}

// WaitForIdle blocks until every published outcome has been dispatched or the
// timeout elapses.
func (s *System) WaitForIdle(timeout time.Duration) bool {
	return s.bus.WaitForIdle(timeout)
}

// Close drains the bus, stops its workers and flushes the trust ledger.
func (s *System) Close(timeout time.Duration) error {
	s.bus.WaitForIdle(timeout)
	s.bus.Shutdown(timeout)
	return s.trust.Close()
}
