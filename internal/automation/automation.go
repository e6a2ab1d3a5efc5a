// Package automation runs scripted scenarios: a sequence of steps that
// change the scene or its tunables and then simulate for a while, all on
// one engine.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
	"github.com/san-kum/sandsim/internal/sim"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Seed        int64   `yaml:"seed"`
	Dt          float64 `yaml:"dt"`
	Steps       []Step  `yaml:"steps"`
}

// Step applies its changes in field order, then runs for Duration.
type Step struct {
	Name     string             `yaml:"name"`
	Preset   string             `yaml:"preset"`
	Clear    bool               `yaml:"clear"`
	Params   map[string]float64 `yaml:"params"`
	Emitter  *EmitterStep       `yaml:"emitter"`
	Burst    *BurstStep         `yaml:"burst"`
	Duration float64            `yaml:"duration"`
}

type EmitterStep struct {
	Enabled  bool   `yaml:"enabled"`
	Category string `yaml:"category"`
	Rate     int    `yaml:"rate"`
}

type BurstStep struct {
	Category string     `yaml:"category"`
	Count    int        `yaml:"count"`
	Position mgl64.Vec3 `yaml:"position"`
	Spread   float64    `yaml:"spread"`
}

type StepResult struct {
	Name   string
	Start  float64
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scenario, nil
}

func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	if sc.Dt < 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidScenario, sc.Dt)
	}
	for i, st := range sc.Steps {
		if !(st.Duration > 0) {
			return fmt.Errorf("%w: step %d: duration must be positive, got %g", ErrInvalidScenario, i+1, st.Duration)
		}
		if st.Emitter != nil && st.Emitter.Category != "" {
			if _, err := sand.ParseCategory(st.Emitter.Category); err != nil {
				return fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i+1, err)
			}
		}
		if st.Burst != nil {
			if _, err := sand.ParseCategory(st.Burst.Category); err != nil {
				return fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i+1, err)
			}
			if st.Burst.Count <= 0 {
				return fmt.Errorf("%w: step %d: burst count must be positive", ErrInvalidScenario, i+1)
			}
		}
	}
	return nil
}

// RunScenario executes all steps on s. em is the emitter the steps
// reconfigure; nil starts from a disabled default.
func RunScenario(ctx context.Context, sc *Scenario, s *sim.Simulator, em *scene.Emitter) ([]StepResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if em == nil {
		def := scene.DefaultEmitter()
		em = &def
	}
	s.SetEmitter(em)

	dt := sc.Dt
	if dt == 0 {
		dt = sim.DefaultConfig().Dt
	}
	rng := rand.New(rand.NewSource(sc.Seed))
	e := s.Engine()

	results := make([]StepResult, 0, len(sc.Steps))
	t := 0.0
	for i, st := range sc.Steps {
		name := st.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		if err := applyStep(e, em, st, rng); err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}

		result, err := s.Run(ctx, sim.Config{Dt: dt, Duration: st.Duration, Seed: sc.Seed, ValidateState: true})
		if result != nil {
			results = append(results, StepResult{Name: name, Start: t, Result: result})
		}
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		if len(result.Errors) > 0 {
			return results, fmt.Errorf("%s: %w", name, result.Errors[0])
		}
		t += float64(result.StepsTaken) * dt
	}
	return results, nil
}

func applyStep(e *sand.Engine, em *scene.Emitter, st Step, rng *rand.Rand) error {
	if st.Preset != "" {
		if err := scene.Apply(e, st.Preset, rng); err != nil {
			return err
		}
	}
	if st.Clear {
		e.ClearParticles()
	}
	for k, v := range st.Params {
		if err := e.SetNamedParam(k, v); err != nil {
			return err
		}
	}
	if st.Emitter != nil {
		em.Enabled = st.Emitter.Enabled
		if st.Emitter.Category != "" {
			cat, err := sand.ParseCategory(st.Emitter.Category)
			if err != nil {
				return err
			}
			em.Category = cat
		}
		if st.Emitter.Rate > 0 {
			em.Rate = st.Emitter.Rate
		}
	}
	if b := st.Burst; b != nil {
		cat, err := sand.ParseCategory(b.Category)
		if err != nil {
			return err
		}
		if err := e.AddParticlesBurst(b.Position, b.Count, b.Spread, cat, mgl64.Vec3{}); err != nil {
			return err
		}
	}
	return nil
}
