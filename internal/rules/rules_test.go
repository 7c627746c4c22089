package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-systems/qagov/internal/rules"
)

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	content := []byte(`{"priorities": {"latency": {"agent-a": 2.0, "agent-b": 0.5}}}`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	r := rules.Load(path, nil)

	assert.Equal(t, 2.0, r.Priority("latency", "agent-a"))
	assert.Equal(t, 0.5, r.Priority("latency", "agent-b"))
	assert.Equal(t, 1.0, r.Priority("latency", "agent-c"))
	assert.Equal(t, 1.0, r.Priority("throughput", "agent-a"))
	assert.ElementsMatch(t, []string{"latency"}, r.Metrics())
}

func TestLoad_MissingFileDefaults(t *testing.T) {
	r := rules.Load(filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Equal(t, 1.0, r.Priority("any", "anyone"))
}

func TestLoad_MalformedFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0644))

	r := rules.Load(path, nil)
	assert.Equal(t, 1.0, r.Priority("any", "anyone"))
}

func TestLoad_EmptyPath(t *testing.T) {
	r := rules.Load("", nil)
	assert.Equal(t, 1.0, r.Priority("any", "anyone"))
}

func TestFromMap(t *testing.T) {
	r := rules.FromMap(map[string]map[string]float64{
		"accuracy": {"agent-a": 3.0},
	})
	assert.Equal(t, 3.0, r.Priority("accuracy", "agent-a"))

	assert.Equal(t, 1.0, rules.FromMap(nil).Priority("x", "y"))
}
