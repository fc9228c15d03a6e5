// Package view renders a running world as a live terminal UI: world geometry
// rasterized onto a braille canvas next to a stats pane with energy history
// and step counters.
package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/scene"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

const (
	canvasWidth     = 80
	canvasHeight    = 24
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(40)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model owns the engine being watched plus the UI state around it.
type Model struct {
	eng       *pipeline.Engine
	cfg       pipeline.Config
	sceneName string
	seed      int64
	dt        float64
	gravity   mathx.Vec2

	canvas  *Canvas
	center  mathx.Vec2
	scale   float64
	running bool
	elapsed float64

	energyHistory []float64
	lastResult    *pipeline.Result
	errCount      int
}

// NewModel builds the named scene and wraps it for watching.
func NewModel(sceneName string, seed int64, dt float64, gravity mathx.Vec2, cfg pipeline.Config) (Model, error) {
	w := world.New()
	if err := scene.Build(sceneName, seed, w); err != nil {
		return Model{}, err
	}
	return Model{
		eng:           pipeline.New(w),
		cfg:           cfg,
		sceneName:     sceneName,
		seed:          seed,
		dt:            dt,
		gravity:       gravity,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		center:        mathx.V(0, 4),
		scale:         4.0,
		running:       true,
		energyHistory: make([]float64, 0, historyCapacity),
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "c":
			m.cfg.CCD = !m.cfg.CCD
		case "+", "=":
			m.scale *= 1.25
		case "-", "_":
			m.scale /= 1.25
		case "up", "k":
			m.center = m.center.Add(mathx.V(0, 8/m.scale))
		case "down", "j":
			m.center = m.center.Sub(mathx.V(0, 8/m.scale))
		case "left", "h":
			m.center = m.center.Sub(mathx.V(8/m.scale, 0))
		case "right", "l":
			m.center = m.center.Add(mathx.V(8/m.scale, 0))
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step advances the engine one timestep and folds the result into the UI
// history.
func (m *Model) step() {
	res, err := m.eng.Step(m.dt, m.gravity, m.cfg)
	if err != nil {
		m.running = false
		return
	}
	m.lastResult = res
	m.errCount += len(res.Errors)
	m.elapsed += m.dt

	energy := 0.0
	m.eng.World().Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		if b := *bptr; b.Kind == body.Dynamic {
			energy += b.KineticEnergy()
		}
	})
	m.energyHistory = append(m.energyHistory, energy)
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

// reset rebuilds the scene from its seed.
func (m *Model) reset() {
	w := world.New()
	if err := scene.Build(m.sceneName, m.seed, w); err != nil {
		return
	}
	m.eng = pipeline.New(w)
	m.elapsed = 0
	m.errCount = 0
	m.lastResult = nil
	m.energyHistory = m.energyHistory[:0]
}

// draw rasterizes every collider at its current body transform.
func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.SetWindow(m.center, m.scale)

	w := m.eng.World()
	w.Colliders.ForEach(func(h store.Handle, cptr **body.Collider) {
		c := *cptr
		b, err := w.Body(c.Body)
		if err != nil {
			return
		}
		m.drawShape(c.Shape, b.Xf)
	})
}

func (m *Model) drawShape(s *geom.Shape, xf mathx.Transform) {
	switch s.Kind {
	case geom.KindCircle:
		center := xf.Apply(s.Verts[0])
		m.canvas.DrawCircle(center, s.Radius)
		// Radius spoke makes rotation visible.
		m.canvas.DrawSegment(center, center.Add(xf.Q.XAxis().Mul(s.Radius)))
	case geom.KindPolygon:
		verts := make([]mathx.Vec2, len(s.Verts))
		for i, v := range s.Verts {
			verts[i] = xf.Apply(v)
		}
		m.canvas.DrawPolygon(verts)
	case geom.KindSegment:
		m.canvas.DrawSegment(xf.Apply(s.Verts[0]), xf.Apply(s.Verts[1]))
	case geom.KindCapsule:
		p1 := xf.Apply(s.Verts[0])
		p2 := xf.Apply(s.Verts[1])
		axis := p2.Sub(p1)
		if axis.LenSqr() > 0 {
			offset := mathx.Perp(axis.Normalize()).Mul(s.Radius)
			m.canvas.DrawSegment(p1.Add(offset), p2.Add(offset))
			m.canvas.DrawSegment(p1.Sub(offset), p2.Sub(offset))
		}
		m.canvas.DrawCircle(p1, s.Radius)
		m.canvas.DrawCircle(p2, s.Radius)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.sceneName)) + "\n")
	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(28), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.elapsed)) + "\n")
	awake, total := m.bodyCounts()
	s.WriteString(labelStyle.Render("Bodies") + valueStyle.Render(fmt.Sprintf("%d awake / %d", awake, total)) + "\n")
	if m.lastResult != nil {
		s.WriteString(labelStyle.Render("Islands") + valueStyle.Render(fmt.Sprintf("%d", m.lastResult.Islands)) + "\n")
		s.WriteString(labelStyle.Render("Contacts") + valueStyle.Render(fmt.Sprintf("%d", m.lastResult.Contacts)) + "\n")
	}
	ccdState := "off"
	if m.cfg.CCD {
		ccdState = "on"
	}
	s.WriteString(labelStyle.Render("CCD") + valueStyle.Render(ccdState) + "\n")
	if m.errCount > 0 {
		s.WriteString(labelStyle.Render("Errors") + alertStyle.Render(fmt.Sprintf("%d", m.errCount)) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nC:Toggle CCD  +/-:Zoom\nArrows:Pan"))

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

func (m *Model) bodyCounts() (awake, total int) {
	m.eng.World().Bodies.ForEach(func(h store.Handle, bptr **body.Body) {
		total++
		if (*bptr).Awake {
			awake++
		}
	})
	return
}

// Run starts the live viewer and blocks until it exits.
func Run(sceneName string, seed int64, dt float64, gravity mathx.Vec2, cfg pipeline.Config) error {
	m, err := NewModel(sceneName, seed, dt, gravity, cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
