// Package arbitration buffers competing quality reports per metric and
// resolves ready conflicts by weighted vote: trust score times governance
// priority.
//
// Tie-break policy: equal weights resolve by the input ordering of the
// conflict list (stable sort). This is deliberate and covered by tests.
package arbitration

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arbiter-systems/qagov/common/logging"
	"github.com/arbiter-systems/qagov/internal/metrics"
	"github.com/arbiter-systems/qagov/internal/rules"
)

// MethodTrustWeighted identifies the standard resolution method in rationales.
const MethodTrustWeighted = "trust_weighted_priority"

// UnknownMetric is the metric name on the sentinel decision returned for an
// empty conflict set.
const UnknownMetric = "unknown"

// PendingEvent is a buffered report awaiting arbitration.
type PendingEvent struct {
	Event      map[string]any `json:"event"`
	ReceivedAt time.Time      `json:"received_at"`
	EventID    string         `json:"event_id"`
}

// Agent returns the reporting agent recorded in the event, or "".
func (p PendingEvent) Agent() string {
	agent, _ := p.Event["agent"].(string)
	return agent
}

// ScoreBreakdown explains one participant's weight in a decision.
type ScoreBreakdown struct {
	Agent    string  `json:"agent"`
	Trust    float64 `json:"trust"`
	Priority float64 `json:"priority"`
	Weight   float64 `json:"weight"`
}

// Rationale captures how a decision was reached.
type Rationale struct {
	Method           string           `json:"method,omitempty"`
	Scores           []ScoreBreakdown `json:"scores,omitempty"`
	Confidence       float64          `json:"confidence"`
	ParticipantCount int              `json:"participant_count"`
	Reason           string           `json:"reason,omitempty"`
}

// Decision is the immutable result of resolving one conflict.
type Decision struct {
	Metric       string         `json:"metric"`
	Winner       string         `json:"winner"`
	Participants []PendingEvent `json:"participants"`
	Rationale    Rationale      `json:"rationale"`
}

// Config controls engine construction.
type Config struct {
	// MaxQueue caps buffered events per metric; the oldest entry is dropped
	// on overflow.
	MaxQueue int

	// StaleAfter forces a lone report to become resolvable once its queue's
	// oldest entry has aged past this duration.
	StaleAfter time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxQueue < 1 {
		c.MaxQueue = 50
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 30 * time.Second
	}
}

// Engine buffers competing reports and resolves conflicts. All access to the
// pending map goes through one mutex, so concurrent producers are safe.
type Engine struct {
	cfg    Config
	rules  *rules.Rules
	logger *logging.Logger

	mu      sync.Mutex
	pending map[string][]PendingEvent
}

// New creates an arbitration engine using the given governance rules for
// priority lookups.
func New(cfg Config, governanceRules *rules.Rules, logger *logging.Logger) *Engine {
	cfg.applyDefaults()
	if governanceRules == nil {
		governanceRules = rules.FromMap(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Engine{
		cfg:     cfg,
		rules:   governanceRules,
		logger:  logger.With(logging.Component("arbitration")),
		pending: make(map[string][]PendingEvent),
	}
}

// AddEvent buffers a report under its metric. Events without a metric are
// ignored. A newer report from an agent already queued for that metric
// replaces the old one (last-write-wins per agent); on overflow the oldest
// entry is dropped.
func (e *Engine) AddEvent(event map[string]any) {
	metric, ok := event["metric"].(string)
	if !ok || metric == "" {
		return
	}
	agent, _ := event["agent"].(string)

	pe := PendingEvent{
		Event:      event,
		ReceivedAt: time.Now(),
		EventID:    uuid.NewString(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	queue := e.pending[metric]
	if agent != "" {
		for i, existing := range queue {
			if existing.Agent() == agent {
				queue = append(queue[:i], queue[i+1:]...)
				break
			}
		}
	}

	queue = append(queue, pe)
	if len(queue) > e.cfg.MaxQueue {
		queue = queue[len(queue)-e.cfg.MaxQueue:]
	}
	e.pending[metric] = queue
}

// CollectReadyConflicts atomically removes and returns a metric's queue when
// it is ready: at least two competing reports, or a single report older than
// StaleAfter. Otherwise it returns nil and leaves the queue in place.
func (e *Engine) CollectReadyConflicts(metric string, now time.Time) []PendingEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	queue := e.pending[metric]
	if len(queue) == 0 {
		return nil
	}

	stale := now.Sub(queue[0].ReceivedAt) >= e.cfg.StaleAfter
	if len(queue) < 2 && !stale {
		return nil
	}

	delete(e.pending, metric)
	return queue
}

// PendingCount reports how many events are buffered for a metric.
func (e *Engine) PendingCount(metric string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending[metric])
}

// ResolveConflict picks a winner among conflicting reports. Each participant's
// weight is its trust score (default 1.0) times its governance priority
// (default 1.0); the heaviest wins, with input order breaking ties. An empty
// conflict set yields a sentinel decision rather than an error.
func (e *Engine) ResolveConflict(conflicts []PendingEvent, trustScores map[string]float64) Decision {
	if len(conflicts) == 0 {
		return Decision{
			Metric:       UnknownMetric,
			Participants: []PendingEvent{},
			Rationale:    Rationale{Reason: "no_conflicts"},
		}
	}

	metric, _ := conflicts[0].Event["metric"].(string)
	if metric == "" {
		metric = UnknownMetric
	}

	breakdowns := make([]ScoreBreakdown, len(conflicts))
	for i, conflict := range conflicts {
		agent := conflict.Agent()
		trustScore, ok := trustScores[agent]
		if !ok {
			trustScore = 1.0
		}
		priority := e.rules.Priority(metric, agent)
		breakdowns[i] = ScoreBreakdown{
			Agent:    agent,
			Trust:    trustScore,
			Priority: priority,
			Weight:   trustScore * priority,
		}
	}

	sort.SliceStable(breakdowns, func(i, j int) bool {
		return breakdowns[i].Weight > breakdowns[j].Weight
	})

	top := breakdowns[0].Weight
	runnerUp := 0.0
	if len(breakdowns) > 1 {
		runnerUp = breakdowns[1].Weight
	}

	confidence := 0.0
	if sum := top + runnerUp; sum > 0 {
		confidence = (top - runnerUp) / sum
	}
	if confidence < 0 {
		confidence = 0
	}

	decision := Decision{
		Metric:       metric,
		Winner:       breakdowns[0].Agent,
		Participants: conflicts,
		Rationale: Rationale{
			Method:           MethodTrustWeighted,
			Scores:           breakdowns,
			Confidence:       confidence,
			ParticipantCount: len(conflicts),
		},
	}

	metrics.DecisionsTotal.WithLabelValues(MethodTrustWeighted).Inc()
	e.logger.Info("conflict resolved",
		logging.Metric(metric),
		logging.Winner(decision.Winner),
		"confidence", confidence,
		"participants", len(conflicts))

	return decision
}
