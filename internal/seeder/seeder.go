// Package seeder generates synthetic QA outcome workloads for the simulate
// command and load-style tests.
package seeder

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
)

// qualityMetrics are the metric names synthetic agents report against.
var qualityMetrics = []string{
	"latency",
	"accuracy",
	"completeness",
	"consistency",
	"coverage",
}

// Outcome is one synthetic agent quality report.
type Outcome struct {
	Agent  string
	Metric string
	Status string
}

// Config controls workload generation.
type Config struct {
	// AgentCount is the size of the synthetic agent pool.
	AgentCount int

	// FailureRate is the probability of a fail outcome, in [0,1].
	FailureRate float64

	// DisabledRate is the probability of a disabled outcome, in [0,1].
	DisabledRate float64

	// FlakyAgents marks the first N agents as failure-prone: their failure
	// rate is tripled (capped at 1) to make drift and arbitration visible
	// in short runs.
	FlakyAgents int

	// Seed makes runs reproducible; 0 seeds from entropy.
	Seed uint64
}

// Generator produces a stream of synthetic outcomes.
type Generator struct {
	cfg    Config
	faker  *gofakeit.Faker
	agents []string
}

// New creates a generator with a stable agent pool.
func New(cfg Config) *Generator {
	if cfg.AgentCount < 1 {
		cfg.AgentCount = 5
	}
	if cfg.FailureRate <= 0 {
		cfg.FailureRate = 0.2
	}
	if cfg.DisabledRate <= 0 {
		cfg.DisabledRate = 0.05
	}

	faker := gofakeit.New(int64(cfg.Seed))

	agents := make([]string, cfg.AgentCount)
	for i := range agents {
		agents[i] = fmt.Sprintf("%s-%02d", faker.Adjective(), i)
	}

	return &Generator{cfg: cfg, faker: faker, agents: agents}
}

// Agents returns the synthetic agent pool.
func (g *Generator) Agents() []string {
	out := make([]string, len(g.agents))
	copy(out, g.agents)
	return out
}

// Next produces one outcome.
func (g *Generator) Next() Outcome {
	idx := g.faker.Number(0, len(g.agents)-1)
	agent := g.agents[idx]

	failureRate := g.cfg.FailureRate
	if idx < g.cfg.FlakyAgents {
		failureRate *= 3
		if failureRate > 1 {
			failureRate = 1
		}
	}

	status := "pass"
	roll := g.faker.Float64Range(0, 1)
	switch {
	case roll < failureRate:
		status = "fail"
	case roll < failureRate+g.cfg.DisabledRate:
		status = "disabled"
	}

	return Outcome{
		Agent:  agent,
		Metric: qualityMetrics[g.faker.Number(0, len(qualityMetrics)-1)],
		Status: status,
	}
}

// Batch produces n outcomes.
func (g *Generator) Batch(n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Metrics returns the metric names the generator reports against.
func Metrics() []string {
	out := make([]string, len(qualityMetrics))
	copy(out, qualityMetrics)
	return out
}
