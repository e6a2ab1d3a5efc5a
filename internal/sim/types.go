package sim

import (
	"fmt"

	"github.com/san-kum/sandsim/internal/sand"
)

// Metric accumulates a scalar over the frames of a run.
type Metric interface {
	Name() string
	Observe(e *sand.Engine, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(e *sand.Engine, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
	// ValidateState stops the run at the first non-finite particle.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60.0,
		Duration:      10.0,
		Seed:          1,
		ValidateState: true,
	}
}

// Sample is the engine summary at one frame boundary.
type Sample struct {
	Time float64 `json:"t"`
	sand.Stats
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	Errors     []error
	StepsTaken int
	Final      sand.Stats
}

// Times returns the sample times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

// Series extracts one stats column: "count", "mean_speed" or "mean_height".
func (r *Result) Series(name string) ([]float64, error) {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		switch name {
		case "count":
			out[i] = float64(s.Count)
		case "mean_speed":
			out[i] = s.MeanSpeed
		case "mean_height":
			out[i] = s.MeanHeight
		default:
			return nil, fmt.Errorf("unknown series %q", name)
		}
	}
	return out, nil
}

type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Err }
