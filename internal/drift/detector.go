// Package drift watches per-(agent, metric) outcome windows for sustained
// failure density and turns it into governance-amendment proposals.
package drift

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arbiter-systems/qagov/common/logging"
	"github.com/arbiter-systems/qagov/internal/metrics"
)

// Outcome statuses tracked in drift windows.
const (
	StatusPass     = "pass"
	StatusFail     = "fail"
	StatusDisabled = "disabled"
)

// Severity levels attached to drift signals.
const (
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
)

// ErrNoDriftSignal is returned by ProposeAmendment when no drift signal is
// pending. Callers probe this routinely; it is not a programmer error.
var ErrNoDriftSignal = errors.New("drift: no drift signal present")

// Signal describes a detected drift condition for one (agent, metric) window.
type Signal struct {
	Agent         string   `json:"agent"`
	Metric        string   `json:"metric"`
	Severity      string   `json:"severity"`
	FailCount     int      `json:"fail_count"`
	DisabledCount int      `json:"disabled_count"`
	Correlation   string   `json:"correlation"`
	Documents     []string `json:"recommended_documents"`
}

// Proposal is a governance amendment derived from a drift signal. Proposals
// accumulate in an audit list; each signal yields at most one.
type Proposal struct {
	ID         string    `json:"id"`
	Signal     Signal    `json:"signal"`
	ProposedAt time.Time `json:"proposed_at"`
}

// recommendedDocuments are the governance artifacts an amendment should touch.
var recommendedDocuments = []string{"qa_policy.md", "agent_conduct.md"}

// Config controls detector construction.
type Config struct {
	// WindowSize bounds each (agent, metric) outcome window.
	WindowSize int

	// Threshold is the fail (or disabled) count within a window that
	// constitutes drift.
	Threshold int
}

// Detector keeps bounded outcome windows and caches at most one pending
// drift signal at a time. Safe for concurrent use.
type Detector struct {
	cfg    Config
	logger *logging.Logger

	mu        sync.Mutex
	windows   map[string][]string
	pending   *Signal
	proposals []Proposal
}

// New creates a detector. Non-positive window size or threshold is a
// construction error.
func New(cfg Config, logger *logging.Logger) (*Detector, error) {
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("drift: window size must be >= 1, got %d", cfg.WindowSize)
	}
	if cfg.Threshold < 1 {
		return nil, fmt.Errorf("drift: threshold must be >= 1, got %d", cfg.Threshold)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Detector{
		cfg:     cfg,
		logger:  logger.With(logging.Component("drift")),
		windows: make(map[string][]string),
	}, nil
}

// RecordEvent appends an outcome status to the (agent, metric) window and
// evaluates it. Events without agent or metric carry too little identity to
// track and are silently ignored.
func (d *Detector) RecordEvent(agent, metric, status string) {
	if agent == "" || metric == "" {
		return
	}

	key := windowKey(agent, metric)

	d.mu.Lock()
	defer d.mu.Unlock()

	window := append(d.windows[key], status)
	if len(window) > d.cfg.WindowSize {
		window = window[len(window)-d.cfg.WindowSize:]
	}
	d.windows[key] = window

	if signal := d.evaluate(agent, metric, window); signal != nil {
		d.pending = signal
	}
}

// IsDrift reports whether a drift signal is pending. When none was cached
// synchronously it re-scans every window and caches the first hit, covering
// window mutations that arrived through other paths.
func (d *Detector) IsDrift() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		return true
	}

	for key, window := range d.windows {
		agent, metric := splitKey(key)
		if signal := d.evaluate(agent, metric, window); signal != nil {
			d.pending = signal
			return true
		}
	}
	return false
}

// ProposeAmendment consumes the pending drift signal into a proposal. It
// returns ErrNoDriftSignal when nothing is pending; each signal yields at
// most one proposal.
func (d *Detector) ProposeAmendment() (Proposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return Proposal{}, ErrNoDriftSignal
	}

	proposal := Proposal{
		ID:         uuid.NewString(),
		Signal:     *d.pending,
		ProposedAt: time.Now().UTC(),
	}
	d.pending = nil
	d.proposals = append(d.proposals, proposal)

	metrics.DriftProposalsTotal.WithLabelValues(proposal.Signal.Severity).Inc()
	d.logger.Info("amendment proposed",
		logging.Agent(proposal.Signal.Agent),
		logging.Metric(proposal.Signal.Metric),
		logging.Severity(proposal.Signal.Severity))

	return proposal, nil
}

// Proposals returns the audit list of every proposal made so far.
func (d *Detector) Proposals() []Proposal {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Proposal, len(d.proposals))
	copy(out, d.proposals)
	return out
}

// evaluate checks a window against the thresholds and builds the drift
// signal, or returns nil when the window is healthy.
func (d *Detector) evaluate(agent, metric string, window []string) *Signal {
	failCount, disabledCount := 0, 0
	for _, status := range window {
		switch status {
		case StatusFail:
			failCount++
		case StatusDisabled:
			disabledCount++
		}
	}

	if failCount < d.cfg.Threshold && disabledCount < d.cfg.Threshold {
		return nil
	}

	severity := SeverityModerate
	if failCount >= 2*d.cfg.Threshold {
		severity = SeverityHigh
	}

	return &Signal{
		Agent:         agent,
		Metric:        metric,
		Severity:      severity,
		FailCount:     failCount,
		DisabledCount: disabledCount,
		Correlation:   agent + ":" + metric,
		Documents:     recommendedDocuments,
	}
}

func windowKey(agent, metric string) string {
	return agent + "\x00" + metric
}

func splitKey(key string) (agent, metric string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
