package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/sandsim/internal/logx"
	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
)

// Simulator drives an engine frame by frame, feeding the emitter before
// each update and recording stats after it.
type Simulator struct {
	engine    *sand.Engine
	emitter   *scene.Emitter
	metrics   []Metric
	observers []Observer
	log       logrus.FieldLogger
}

func New(engine *sand.Engine, log logrus.FieldLogger) *Simulator {
	if log == nil {
		log = logx.Discard()
	}
	return &Simulator{
		engine:    engine,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       log,
	}
}

func (s *Simulator) Engine() *sand.Engine         { return s.engine }
func (s *Simulator) SetEmitter(em *scene.Emitter) { s.emitter = em }
func (s *Simulator) AddMetric(m Metric)           { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)       { s.observers = append(s.observers, o) }

// Run advances the engine for cfg.Duration in frames of cfg.Dt. Metrics
// and observers see the initial state and the state after every frame.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := frames(cfg)
	result := &Result{
		Samples: make([]Sample, 0, steps+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	t := 0.0
	s.record(result, t)
	logEvery := int(math.Max(1, math.Round(1/cfg.Dt)))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		if s.emitter != nil {
			if err := s.emitter.Emit(s.engine); err != nil {
				result.Errors = append(result.Errors, SimError{Time: t, Step: i, Message: "emit", Err: err})
			}
		}

		s.engine.Update(cfg.Dt)
		t += cfg.Dt

		if cfg.ValidateState {
			if err := s.engine.CheckFinite(); err != nil {
				result.Errors = append(result.Errors, SimError{Time: t, Step: i, Message: "invalid state", Err: err})
				s.log.WithError(err).WithField("t", t).Error("simulation diverged")
				break
			}
		}

		result.StepsTaken++
		s.record(result, t)

		if result.StepsTaken%logEvery == 0 {
			last := result.Samples[len(result.Samples)-1]
			s.log.WithFields(logrus.Fields{
				"t":           fmt.Sprintf("%.2f", t),
				"particles":   last.Count,
				"mean_speed":  fmt.Sprintf("%.3f", last.MeanSpeed),
				"mean_height": fmt.Sprintf("%.3f", last.MeanHeight),
			}).Debug("frame")
		}
	}

	s.finish(result)
	s.log.WithFields(logrus.Fields{
		"steps":     result.StepsTaken,
		"particles": result.Final.Count,
		"errors":    len(result.Errors),
	}).Info("run complete")
	return result, nil
}

func (s *Simulator) record(result *Result, t float64) {
	result.Samples = append(result.Samples, Sample{Time: t, Stats: s.engine.Stats()})
	for _, m := range s.metrics {
		m.Observe(s.engine, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(s.engine, t)
	}
}

func (s *Simulator) finish(result *Result) {
	result.Final = s.engine.Stats()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.engine == nil {
		return fmt.Errorf("simulator has no engine")
	}
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func frames(cfg Config) int {
	return int(math.Round(cfg.Duration / cfg.Dt))
}

// RunWithCallback steps like Run without recording. callback sees the
// engine before each frame and stops the run by returning false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(e *sand.Engine, t float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	t := 0.0
	for i := 0; i < frames(cfg); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(s.engine, t) {
			return nil
		}

		if s.emitter != nil {
			if err := s.emitter.Emit(s.engine); err != nil {
				return err
			}
		}
		s.engine.Update(cfg.Dt)
		t += cfg.Dt

		if cfg.ValidateState {
			if err := s.engine.CheckFinite(); err != nil {
				return SimError{Time: t, Step: i, Message: "invalid state", Err: err}
			}
		}
	}

	return nil
}
