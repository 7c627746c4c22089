package drift_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-systems/qagov/internal/drift"
)

func newDetector(t *testing.T, windowSize, threshold int) *drift.Detector {
	t.Helper()
	d, err := drift.New(drift.Config{WindowSize: windowSize, Threshold: threshold}, nil)
	require.NoError(t, err)
	return d
}

func TestNew_RejectsNonPositiveArgs(t *testing.T) {
	_, err := drift.New(drift.Config{WindowSize: 0, Threshold: 3}, nil)
	assert.Error(t, err)

	_, err = drift.New(drift.Config{WindowSize: 5, Threshold: 0}, nil)
	assert.Error(t, err)
}

func TestThresholdScenario(t *testing.T) {
	d := newDetector(t, 5, 3)

	for _, status := range []string{"fail", "fail", "pass", "fail", "pass"} {
		d.RecordEvent("agentX", "latency", status)
	}

	require.True(t, d.IsDrift())

	proposal, err := d.ProposeAmendment()
	require.NoError(t, err)
	assert.Equal(t, drift.SeverityModerate, proposal.Signal.Severity)
	assert.Equal(t, "agentX", proposal.Signal.Agent)
	assert.Equal(t, "latency", proposal.Signal.Metric)
	assert.Equal(t, "agentX:latency", proposal.Signal.Correlation)
	assert.Equal(t, 3, proposal.Signal.FailCount)
	assert.NotEmpty(t, proposal.ID)

	// The signal is consumed: a second proposal without new events fails.
	_, err = d.ProposeAmendment()
	assert.ErrorIs(t, err, drift.ErrNoDriftSignal)
}

func TestHighSeverity(t *testing.T) {
	d := newDetector(t, 10, 2)

	for i := 0; i < 4; i++ {
		d.RecordEvent("agentX", "accuracy", drift.StatusFail)
	}

	require.True(t, d.IsDrift())
	proposal, err := d.ProposeAmendment()
	require.NoError(t, err)
	assert.Equal(t, drift.SeverityHigh, proposal.Signal.Severity, "fail count >= 2x threshold")
}

func TestDisabledCountsTowardDrift(t *testing.T) {
	d := newDetector(t, 5, 2)

	d.RecordEvent("agentY", "uptime", drift.StatusDisabled)
	d.RecordEvent("agentY", "uptime", drift.StatusDisabled)

	require.True(t, d.IsDrift())
	proposal, err := d.ProposeAmendment()
	require.NoError(t, err)
	assert.Equal(t, 2, proposal.Signal.DisabledCount)
	// Disabled-driven drift without failures stays moderate.
	assert.Equal(t, drift.SeverityModerate, proposal.Signal.Severity)
}

func TestWindowIsBounded(t *testing.T) {
	d := newDetector(t, 3, 3)

	// Three failures, then three passes: the failures age out of the window.
	for i := 0; i < 3; i++ {
		d.RecordEvent("agentZ", "latency", drift.StatusFail)
	}
	_, err := d.ProposeAmendment()
	require.NoError(t, err, "drift should have been signalled at three failures")

	for i := 0; i < 3; i++ {
		d.RecordEvent("agentZ", "latency", drift.StatusPass)
	}
	assert.False(t, d.IsDrift(), "old failures must fall out of the bounded window")
}

func TestIsDrift_Rescan(t *testing.T) {
	d := newDetector(t, 5, 2)

	d.RecordEvent("agentX", "latency", drift.StatusFail)
	d.RecordEvent("agentX", "latency", drift.StatusFail)

	// Consume the synchronously cached signal.
	_, err := d.ProposeAmendment()
	require.NoError(t, err)

	// The window still holds two failures: the rescan in IsDrift re-caches it.
	assert.True(t, d.IsDrift())
	_, err = d.ProposeAmendment()
	assert.NoError(t, err)
}

func TestRecordEvent_MissingIdentityIgnored(t *testing.T) {
	d := newDetector(t, 3, 1)

	d.RecordEvent("", "latency", drift.StatusFail)
	d.RecordEvent("agentX", "", drift.StatusFail)

	assert.False(t, d.IsDrift())
}

func TestProposals_Accumulate(t *testing.T) {
	d := newDetector(t, 3, 1)

	d.RecordEvent("agentA", "latency", drift.StatusFail)
	_, err := d.ProposeAmendment()
	require.NoError(t, err)

	d.RecordEvent("agentB", "accuracy", drift.StatusFail)
	_, err = d.ProposeAmendment()
	require.NoError(t, err)

	proposals := d.Proposals()
	require.Len(t, proposals, 2)
	assert.Equal(t, "agentA", proposals[0].Signal.Agent)
	assert.Equal(t, "agentB", proposals[1].Signal.Agent)
}
