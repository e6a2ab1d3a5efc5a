package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/sim"
)

type ExportData struct {
	Preset   string             `json:"preset"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Samples  []sim.Sample       `json:"samples"`
	Metrics  map[string]float64 `json:"metrics"`
	Final    *sand.Snapshot     `json:"final,omitempty"`
}

// ExportJSON writes a run as one indented JSON document. final may be nil
// to leave the particle snapshot out.
func ExportJSON(w io.Writer, preset string, dt, duration float64, result *sim.Result, final *sand.Snapshot) error {
	data := ExportData{
		Preset:   preset,
		Dt:       dt,
		Duration: duration,
		Steps:    result.StepsTaken,
		Samples:  result.Samples,
		Metrics:  result.Metrics,
		Final:    final,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
