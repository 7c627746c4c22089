package governance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-systems/qagov/internal/config"
	"github.com/arbiter-systems/qagov/internal/drift"
	"github.com/arbiter-systems/qagov/internal/governance"
)

func newSystem(t *testing.T, mutate func(*config.Config)) *governance.System {
	t.Helper()

	cfg := config.Default()
	cfg.Bus.WorkerCount = 1
	cfg.Trust.StorageDir = t.TempDir()
	cfg.Trust.FlushInterval = 1000
	cfg.Rules.Path = ""
	if mutate != nil {
		mutate(cfg)
	}

	s, err := governance.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(time.Second) })
	return s
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Drift.Threshold = 0
	_, err := governance.New(cfg, nil)
	assert.Error(t, err)
}

func TestPublishOutcome_MovesTrustScores(t *testing.T) {
	s := newSystem(t, nil)

	require.NoError(t, s.PublishOutcome("agent-a", "latency", "pass"))
	require.NoError(t, s.PublishOutcome("agent-b", "latency", "fail"))
	require.True(t, s.WaitForIdle(2*time.Second))

	scores := s.TrustScores()
	assert.InDelta(t, 1.05, scores["agent-a"], 1e-9)
	assert.InDelta(t, 0.9, scores["agent-b"], 1e-9)
}

func TestPublishOutcome_FeedsDriftDetector(t *testing.T) {
	s := newSystem(t, func(c *config.Config) {
		c.Drift.WindowSize = 5
		c.Drift.Threshold = 2
	})

	for i := 0; i < 2; i++ {
		require.NoError(t, s.PublishOutcome("flaky", "latency", "fail"))
	}
	require.True(t, s.WaitForIdle(2*time.Second))

	require.True(t, s.CheckDrift())
	proposal, err := s.ProposeAmendment()
	require.NoError(t, err)
	assert.Equal(t, "flaky", proposal.Signal.Agent)
	assert.Equal(t, "flaky:latency", proposal.Signal.Correlation)
	assert.Len(t, s.Amendments(), 1)
}

func TestResolveMetric_EndToEnd(t *testing.T) {
	s := newSystem(t, nil)

	// Build up divergent reliability first.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.PublishOutcome("reliable", "throughput", "pass"))
		require.NoError(t, s.PublishOutcome("flaky", "throughput", "fail"))
	}
	require.True(t, s.WaitForIdle(2*time.Second))

	// Competing reports for one metric.
	require.NoError(t, s.PublishOutcome("reliable", "latency", "pass"))
	require.NoError(t, s.PublishOutcome("flaky", "latency", "fail"))
	require.True(t, s.WaitForIdle(2*time.Second))

	decision, ok := s.ResolveMetric("latency", time.Now())
	require.True(t, ok)
	assert.Equal(t, "reliable", decision.Winner)
	assert.Equal(t, 2, decision.Rationale.ParticipantCount)
	assert.Greater(t, decision.Rationale.Confidence, 0.0)

	// The queue was consumed.
	_, ok = s.ResolveMetric("latency", time.Now())
	assert.False(t, ok)
}

func TestResolveMetric_NothingReady(t *testing.T) {
	s := newSystem(t, nil)

	require.NoError(t, s.PublishOutcome("solo", "latency", "pass"))
	require.True(t, s.WaitForIdle(2*time.Second))

	_, ok := s.ResolveMetric("latency", time.Now())
	assert.False(t, ok, "a lone fresh report is not a conflict")

	// But it becomes resolvable once stale.
	decision, ok := s.ResolveMetric("latency", time.Now().Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, "solo", decision.Winner)
}

func TestBusMetrics_CountOutcomes(t *testing.T) {
	s := newSystem(t, nil)

	require.NoError(t, s.PublishOutcome("agent-a", "latency", "pass"))
	require.True(t, s.WaitForIdle(2*time.Second))

	m := s.BusMetrics()
	assert.Equal(t, uint64(1), m.Published)
	// Two subscribers: trust and drift.
	assert.Equal(t, uint64(2), m.Delivered)
}

func TestDriftStatusConstantsAlign(t *testing.T) {
	// The bus payload statuses and drift statuses must stay in lockstep.
	assert.Equal(t, "pass", drift.StatusPass)
	assert.Equal(t, "fail", drift.StatusFail)
	assert.Equal(t, "disabled", drift.StatusDisabled)
}
