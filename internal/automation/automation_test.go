package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/sim"
)

const script = `
name: demo
seed: 3
steps:
  - name: settle
    preset: wall
    duration: 0.5
  - name: float
    params:
      gravity_scale: 0
      bouncy.restitution: 1
    burst:
      category: bouncy
      count: 20
      position: [0, 30, 0]
      spread: 3
    duration: 0.25
  - name: pour
    clear: true
    emitter:
      enabled: true
      category: heavy
      rate: 5
    duration: 0.1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScript(t, script))
	require.NoError(t, err)
	assert.Equal(t, "demo", sc.Name)
	require.Len(t, sc.Steps, 3)

	e := sand.New()
	s := sim.New(e, nil)
	results, err := RunScenario(context.Background(), sc, s, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "settle", results[0].Name)
	assert.Equal(t, 300, results[0].Result.Final.Count)
	assert.Equal(t, 30, results[0].Result.StepsTaken)

	assert.Equal(t, 320, results[1].Result.Final.Count)
	assert.InDelta(t, 0.5, results[1].Start, 1e-9)
	assert.Equal(t, 0.0, e.Settings().GravityScale)
	bouncy, err := e.Material(sand.Bouncy)
	require.NoError(t, err)
	assert.Equal(t, 1.0, bouncy.Restitution)

	assert.Equal(t, 30, results[2].Result.Final.Count)
	assert.InDelta(t, 0.75, results[2].Start, 1e-9)
}

func TestLoadScenarioRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no steps", "name: empty\n"},
		{"zero duration", "steps:\n  - preset: wall\n"},
		{"bad burst category", "steps:\n  - duration: 1\n    burst: {category: lava, count: 3}\n"},
		{"empty burst", "steps:\n  - duration: 1\n    burst: {category: normal}\n"},
		{"bad emitter category", "steps:\n  - duration: 1\n    emitter: {enabled: true, category: lava}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScript(t, tt.body))
			assert.True(t, errors.Is(err, ErrInvalidScenario), "got %v", err)
		})
	}
}

func TestRunScenarioStopsOnBadStep(t *testing.T) {
	sc := &Scenario{Steps: []Step{
		{Name: "ok", Duration: 0.1},
		{Name: "broken", Preset: "volcano", Duration: 0.1},
		{Name: "never", Duration: 0.1},
	}}
	results, err := RunScenario(context.Background(), sc, sim.New(sand.New(), nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, results, 1)
}
