package viz

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/sandsim/internal/sand"
	"github.com/san-kum/sandsim/internal/scene"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	orbitStep       = 0.1
)

// tunables are the engine parameters exposed in the panel. The booleans
// have their own keys.
var tunables = []string{"gravity_scale", "friction", "time_step", "sub_steps"}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model owns the engine for the lifetime of the program; every mutation
// happens inside Update.
type Model struct {
	engine        *sand.Engine
	emitter       scene.Emitter
	rng           *rand.Rand
	presets       []string
	preset        int
	canvas        *Canvas
	camera        *Camera
	running       bool
	t             float64
	initial       sand.Settings
	selected      int
	heightHistory []float64
	speedHistory  []float64
	showHelp      bool
	status        string
}

// NewModel wraps an engine that already holds its scene. preset names the
// scene reloaded on reset; with an unknown name reset clears instead.
func NewModel(engine *sand.Engine, emitter scene.Emitter, preset string, seed int64) Model {
	names := scene.Names()
	idx := sort.SearchStrings(names, preset)
	if idx == len(names) || names[idx] != preset {
		idx = -1
	}

	return Model{
		engine:        engine,
		emitter:       emitter,
		rng:           rand.New(rand.NewSource(seed)),
		presets:       names,
		preset:        idx,
		canvas:        NewCanvas(width, height),
		camera:        NewCamera(engine.World()),
		running:       true,
		initial:       engine.Settings(),
		heightHistory: make([]float64, 0, historyCapacity),
		speedHistory:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	var err error
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "r":
		err = m.reset()
	case "p":
		if len(m.presets) > 0 {
			m.preset = (m.preset + 1) % len(m.presets)
			err = m.reload()
		}
	case "e":
		m.emitter.Enabled = !m.emitter.Enabled
	case "m":
		cats := sand.Categories()
		m.emitter.Category = cats[(int(m.emitter.Category)+1)%len(cats)]
	case "b":
		err = m.emitter.Burst(m.engine, 100)
	case "w":
		err = scene.Rain(m.engine, 100, m.emitter.Category, m.rng)
	case "1", "2", "3", "4", "5", "6":
		cat := sand.Categories()[key[0]-'1']
		err = scene.QuickAdd(m.engine, cat)
	case "c":
		err = m.toggle("collisions")
	case "h":
		err = m.toggle("cohesion")
	case "tab":
		m.selected = (m.selected + 1) % len(tunables)
	case "up", "k":
		err = m.adjustParam(1)
	case "down", "j":
		err = m.adjustParam(-1)
	case "x":
		m.camera.Orbit(orbitStep, 0)
	case "X":
		m.camera.Orbit(-orbitStep, 0)
	case "y":
		m.camera.Orbit(0, orbitStep)
	case "Y":
		m.camera.Orbit(0, -orbitStep)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "0":
		m.camera.Reset()
	case "?":
		m.showHelp = !m.showHelp
	}
	m.status = ""
	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

func (m *Model) step() {
	if err := m.emitter.Emit(m.engine); err != nil {
		m.status = err.Error()
	}
	m.engine.Update(0)
	m.t += m.engine.Settings().TimeStep

	st := m.engine.Stats()
	m.heightHistory = push(m.heightHistory, st.MeanHeight)
	m.speedHistory = push(m.speedHistory, st.MeanSpeed)
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) toggle(name string) error {
	return m.engine.SetParam(name, 1-m.engine.GetParams()[name])
}

// adjustParam nudges the selected tunable by 5% per press, or by one for
// sub_steps.
func (m *Model) adjustParam(dir int) error {
	key := tunables[m.selected]
	val := m.engine.GetParams()[key]
	switch {
	case key == "sub_steps":
		val += float64(dir)
	case val == 0 && dir > 0:
		val = 0.05
	case dir > 0:
		val *= 1.05
	default:
		val *= 0.95
	}
	return m.engine.SetParam(key, val)
}

// reset restores the starting settings and reloads the preset.
func (m *Model) reset() error {
	if err := m.engine.SetSettings(m.initial); err != nil {
		return err
	}
	m.engine.ResetMaterials()
	m.camera.Reset()
	return m.reload()
}

func (m *Model) reload() error {
	m.t = 0
	m.heightHistory = m.heightHistory[:0]
	m.speedHistory = m.speedHistory[:0]
	if m.preset < 0 {
		m.engine.ClearParticles()
		return nil
	}
	return scene.Apply(m.engine, m.presets[m.preset], m.rng)
}

func (m Model) presetName() string {
	if m.preset < 0 {
		return "custom"
	}
	return m.presets[m.preset]
}

func (m Model) View() string {
	Draw(m.canvas, m.camera, m.engine)
	canvasView := canvasStyle.Render(m.canvas.Render(palette(m.engine)))

	var s strings.Builder
	s.WriteString(headerStyle.Render("SAND · "+strings.ToUpper(m.presetName())) + "\n")
	if m.running {
		s.WriteString(statusRunning.Render("RUNNING"))
	} else {
		s.WriteString(statusPaused.Render("PAUSED"))
	}
	s.WriteString("\n\n")

	if len(m.heightHistory) > 1 {
		chart := asciigraph.Plot(m.heightHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Mean height"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(labelStyle.Render("Speed") + sparkline(m.speedHistory, 30) + "\n\n")

	st := m.engine.Stats()
	settings := m.engine.Settings()
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.t))
	row("Particles", fmt.Sprintf("%d", st.Count))
	row("Mean speed", fmt.Sprintf("%.3f", st.MeanSpeed))
	row("Mean height", fmt.Sprintf("%.3f", st.MeanHeight))
	row("Collisions", onOff(settings.Collisions))
	row("Cohesion", onOff(settings.Cohesion))
	em, _ := m.engine.Material(m.emitter.Category)
	row("Emitter", fmt.Sprintf("%s %s %s", onOff(m.emitter.Enabled), swatch(em), m.emitter.Category))

	s.WriteString("\nMATERIALS\n")
	for i, c := range sand.Categories() {
		props, _ := m.engine.Material(c)
		s.WriteString(fmt.Sprintf("%d %s %-10s", i+1, swatch(props), c))
		if i%2 == 1 {
			s.WriteString("\n")
		}
	}

	s.WriteString("\nPARAMETERS\n")
	params := m.engine.GetParams()
	for i, k := range tunables {
		line := fmt.Sprintf("%-13s %.4g", k, params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	if m.status != "" {
		s.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset P:Preset Q:Quit\nE:Emitter 1-6:Add ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset settings and scene ║
║  P        - Next preset              ║
║  E / M    - Emitter on/off, material ║
║  B / W    - Burst / Rain             ║
║  1-6      - Quick add material       ║
║  C / H    - Collisions / Cohesion    ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter       ║
║  Down/J   - Decrease parameter       ║
║  X Y      - Orbit camera (0 resets)  ║
║  + / -    - Zoom                     ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`
