package stream

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
)

// Frame is one broadcast update. Snapshot fields are inlined, so the
// payload carries positions, colors and sizes at the top level.
type Frame struct {
	Type   string     `json:"type"`
	T      float64    `json:"t"`
	Paused bool       `json:"paused"`
	Stats  sand.Stats `json:"stats"`
	sand.Snapshot
}

// Hello is sent once per connection before any frame.
type Hello struct {
	Type       string   `json:"type"`
	Presets    []string `json:"presets"`
	Categories []string `json:"categories"`
}

func newHello() Hello {
	h := Hello{Type: "hello", Presets: scene.Names()}
	for _, c := range sand.Categories() {
		h.Categories = append(h.Categories, c.String())
	}
	return h
}

// Command is a client request. Which fields matter depends on Type:
//
//	preset   Name
//	clear
//	burst    Category, Count, Position
//	param    Name, Value
//	emitter  Value (non-zero enables), Category
//	pause, resume
type Command struct {
	Type     string      `json:"type"`
	Name     string      `json:"name,omitempty"`
	Value    float64     `json:"value,omitempty"`
	Category string      `json:"category,omitempty"`
	Count    int         `json:"count,omitempty"`
	Position *mgl64.Vec3 `json:"position,omitempty"`
}

const maxBurst = 1000

func (s *Server) apply(cmd Command) error {
	switch cmd.Type {
	case "preset":
		if err := scene.Apply(s.engine, cmd.Name, s.rng); err != nil {
			return err
		}
		s.t = 0
	case "clear":
		s.engine.ClearParticles()
	case "burst":
		cat, err := sand.ParseCategory(cmd.Category)
		if err != nil {
			return err
		}
		if cmd.Count <= 0 || cmd.Count > maxBurst {
			return fmt.Errorf("burst count must be in [1, %d], got %d", maxBurst, cmd.Count)
		}
		em := s.emitter
		em.Category = cat
		if cmd.Position != nil {
			em.Position = *cmd.Position
		}
		return em.Burst(s.engine, cmd.Count)
	case "param":
		return s.engine.SetParam(cmd.Name, cmd.Value)
	case "emitter":
		if cmd.Category != "" {
			cat, err := sand.ParseCategory(cmd.Category)
			if err != nil {
				return err
			}
			s.emitter.Category = cat
		}
		s.emitter.Enabled = cmd.Value != 0
	case "pause":
		s.paused = true
	case "resume":
		s.paused = false
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}
