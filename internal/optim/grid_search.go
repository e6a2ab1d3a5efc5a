package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/sandsim/internal/sim"
)

var ErrNoTrials = errors.New("optim: no successful trials")

// Axis is one swept parameter. Name is anything Engine.SetNamedParam
// accepts.
type Axis struct {
	Name   string
	Values []float64
}

// ParseAxis reads "name=v1,v2,..." or "name=min:max:n".
func ParseAxis(s string) (Axis, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || raw == "" {
		return Axis{}, fmt.Errorf("axis %q: want name=v1,v2 or name=min:max:n", s)
	}

	if parts := strings.Split(raw, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return Axis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		if n < 1 {
			return Axis{}, fmt.Errorf("axis %q: need at least one point", s)
		}
		return Axis{Name: name, Values: Linspace(lo, hi, n)}, nil
	}

	var values []float64
	for _, f := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q: %w", s, err)
		}
		values = append(values, v)
	}
	return Axis{Name: name, Values: values}, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Builder returns a simulator with params already applied.
type Builder func(params map[string]float64) (*sim.Simulator, error)

// GridSearch runs every combination of its axes and keeps the one with the
// lowest metric value.
type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Size is the number of combinations.
func (g *GridSearch) Size() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search evaluates the grid in axis order. Failed combinations are kept in
// trials with Err set.
func (g *GridSearch) Search(ctx context.Context, build Builder, cfg sim.Config, metricName string) (Trial, []Trial, error) {
	trials := make([]Trial, 0, g.Size())
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, build, cfg, metricName, &trials); err != nil {
		return Trial{}, trials, err
	}

	best := Trial{Value: math.Inf(1)}
	found := false
	for _, t := range trials {
		if t.Err == nil && t.Value < best.Value {
			best = t
			found = true
		}
	}
	if !found {
		return Trial{}, trials, ErrNoTrials
	}
	return best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build Builder,
	cfg sim.Config,
	metricName string,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.axes) {
		*trials = append(*trials, runTrial(ctx, current, build, cfg, metricName))
		return nil
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[axis.Name] = val

		if err := g.searchRecursive(ctx, depth+1, next, build, cfg, metricName, trials); err != nil {
			return err
		}
	}
	return nil
}

func runTrial(ctx context.Context, params map[string]float64, build Builder, cfg sim.Config, metricName string) Trial {
	t := Trial{Params: params}

	s, err := build(params)
	if err != nil {
		t.Err = err
		return t
	}
	result, err := s.Run(ctx, cfg)
	if err != nil {
		t.Err = err
		return t
	}
	if len(result.Errors) > 0 {
		t.Err = result.Errors[0]
		return t
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		t.Err = fmt.Errorf("metric %q not recorded", metricName)
		return t
	}
	t.Value = val
	return t
}

// FormatParams renders params sorted by name, e.g. "friction=0.5 heavy.mass=2".
func FormatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, " ")
}
