// Package rules loads the static governance priorities that weight
// arbitration independently of observed agent reliability.
package rules

import (
	"encoding/json"
	"os"

	"github.com/arbiter-systems/qagov/common/logging"
)

// DefaultPriority is used for any (metric, agent) pair without an explicit rule.
const DefaultPriority = 1.0

type rulesFile struct {
	Priorities map[string]map[string]float64 `json:"priorities"`
}

// Rules is an immutable lookup of (metric, agent) priority weights.
type Rules struct {
	priorities map[string]map[string]float64
}

// Load reads a governance rules JSON file. A missing or malformed file yields
// all-default priorities; policy lookups must never be fatal.
func Load(path string, logger *logging.Logger) *Rules {
	if logger == nil {
		logger = logging.Default()
	}
	log := logger.With(logging.Component("rules"))

	empty := &Rules{priorities: map[string]map[string]float64{}}
	if path == "" {
		return empty
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Info("governance rules file not readable, using defaults",
			"path", path, logging.Error(err))
		return empty
	}

	var parsed rulesFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Warn("governance rules file malformed, using defaults",
			"path", path, logging.Error(err))
		return empty
	}
	if parsed.Priorities == nil {
		return empty
	}

	return &Rules{priorities: parsed.Priorities}
}

// FromMap builds rules directly from a priorities map. Intended for tests and
// in-process embedding.
func FromMap(priorities map[string]map[string]float64) *Rules {
	if priorities == nil {
		priorities = map[string]map[string]float64{}
	}
	return &Rules{priorities: priorities}
}

// Priority returns the policy weight for (metric, agent), defaulting to 1.0.
func (r *Rules) Priority(metric, agent string) float64 {
	if agents, ok := r.priorities[metric]; ok {
		if p, ok := agents[agent]; ok {
			return p
		}
	}
	return DefaultPriority
}

// Priorities returns a deep copy of the explicit rule table.
func (r *Rules) Priorities() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(r.priorities))
	for metric, agents := range r.priorities {
		inner := make(map[string]float64, len(agents))
		for agent, p := range agents {
			inner[agent] = p
		}
		out[metric] = inner
	}
	return out
}

// Metrics returns the metric names that carry at least one explicit rule.
func (r *Rules) Metrics() []string {
	out := make([]string, 0, len(r.priorities))
	for metric := range r.priorities {
		out = append(out, metric)
	}
	return out
}
