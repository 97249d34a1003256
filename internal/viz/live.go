package viz

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clusterflow/internal/loop"
	"github.com/san-kum/clusterflow/internal/scene"
	"github.com/san-kum/clusterflow/internal/transition"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 300
	frameRate       = 60
	minSpeed        = 0.25
	maxSpeed        = 8
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// progress is updated by controller events; it is shared by every copy of
// the Model.
type progress struct {
	phase      string
	retargeted int
	log        []string
}

func (p *progress) note(line string) {
	p.log = append(p.log, line)
	if len(p.log) > 5 {
		p.log = p.log[1:]
	}
}

// Model plays a scene in real time. Each tick advances the scene's virtual
// loop by one display frame times the playback speed.
type Model struct {
	scene    *scene.Scene
	done     *loop.Future
	progress *progress
	canvas   *Canvas
	running  bool
	speed    float64
	frame    int

	recording bool
	frames    []*image.Paletted
	gifPath   string
	showHelp  bool
	err       error
}

// NewModel starts the transition of s, which must be built on a virtual
// loop that nothing else drives.
func NewModel(ctx context.Context, s *scene.Scene) (Model, error) {
	if !s.Loop.Virtual() {
		return Model{}, fmt.Errorf("live view needs a virtual loop")
	}
	pr := &progress{}
	s.Controller.OnEvent(func(ev transition.Event) {
		switch ev.Kind {
		case transition.EventSettled:
			pr.note("initial layout settled")
		case transition.EventPhaseStart:
			pr.phase, pr.retargeted = ev.Phase, 0
			pr.note("phase " + ev.Phase + " started")
		case transition.EventRetarget:
			pr.retargeted++
		case transition.EventPhaseRest:
			pr.note("phase " + ev.Phase + " at rest")
		case transition.EventComplete:
			pr.note("transition complete")
		case transition.EventCanceled:
			pr.note("transition canceled")
		}
	})

	done, err := s.Controller.Start(ctx)
	if err != nil {
		return Model{}, err
	}
	return Model{
		scene:    s,
		done:     done,
		progress: pr,
		canvas:   NewCanvas(width, height),
		running:  true,
		speed:    1,
		gifPath:  "clusterflow.gif",
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.scene.Controller.Cancel(context.Canceled)
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, minSpeed)
		case "g":
			if m.recording {
				m.err = m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case TickMsg:
		m.frame++
		if m.running && !m.done.IsResolved() {
			m.advance()
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	d := time.Duration(float64(time.Second/frameRate) * m.speed)
	m.scene.Loop.Advance(d)
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.DrawFrame()
	DrawLayout(m.canvas, m.scene.Viewport.Rect(), m.scene.Sim.Snapshot().Particles, m.scene.Colorized())
}

// Done reports whether the transition has finished.
func (m Model) Done() bool { return m.done.IsResolved() }

func (m Model) status() string {
	th := CurrentTheme
	switch {
	case m.done.IsResolved() && m.done.Err() == nil:
		return statusStyle(th.Success).Render("COMPLETE")
	case m.done.IsResolved():
		return statusStyle(th.Error).Render("CANCELED")
	case !m.running:
		return statusStyle(th.Warning).Render("PAUSED")
	}
	state := m.scene.Controller.State().String()
	return statusStyle(th.Primary).Render(AnimatedSpinner(m.frame) + " " + strings.ToUpper(state))
}

// View renders the TUI interface.
func (m Model) View() string {
	s := m.scene
	canvasView := canvasStyle.Render(m.canvas.Render())

	var b strings.Builder
	b.WriteString(headerStyle().Render("CLUSTERFLOW") + "\n")
	b.WriteString(m.status() + "\n\n")

	trace := s.Trace.Tail(historyCapacity)
	if len(trace) > 1 {
		alpha := make([]float64, len(trace))
		energy := make([]float64, len(trace))
		moving := make([]float64, len(trace))
		for i, p := range trace {
			alpha[i], energy[i], moving[i] = p.Alpha, p.Energy, float64(p.Moving)
		}
		chart := asciigraph.Plot(alpha, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("alpha"))
		b.WriteString(graphStyle.Foreground(CurrentTheme.Accent).Render(chart) + "\n")
		chart = asciigraph.Plot(energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("kinetic energy"))
		b.WriteString(graphStyle.Foreground(CurrentTheme.Secondary).Render(chart) + "\n")
		b.WriteString(labelStyle.Render("Moving") + SparklineChart(moving, 30) + "\n\n")
	}

	phase := m.progress.phase
	if phase == "" {
		phase = "-"
	}
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Phase", phase)
	if total := s.Links.Len(); total > 0 && m.progress.phase != "" {
		pct := float64(m.progress.retargeted) / float64(total)
		b.WriteString(labelStyle.Render("Links") + ProgressBar(pct, 20) + valueStyle.Render(fmt.Sprintf(" %d/%d", m.progress.retargeted, total)) + "\n")
	}
	row("Step", fmt.Sprintf("%d", s.Sim.Steps()))
	row("Alpha", fmt.Sprintf("%.4f", s.Sim.Alpha()))
	row("Time", fmt.Sprintf("%.2fs", s.Elapsed().Seconds()))
	row("Speed", fmt.Sprintf("%gx", m.speed))
	row("Particles", fmt.Sprintf("%d", len(s.Store.Free())))
	if n := s.Sim.Instabilities(); n > 0 {
		b.WriteString(labelStyle.Render("Unstable") + statusStyle(CurrentTheme.Warning).Render(fmt.Sprintf("%d", n)) + "\n")
	}
	if m.recording {
		b.WriteString(statusStyle(CurrentTheme.Error).Render("● REC") + "\n")
	}
	if m.err != nil {
		b.WriteString(statusStyle(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + Separator(40) + "\n")
	for _, line := range m.progress.log {
		b.WriteString(mutedStyle().Render(line) + "\n")
	}
	b.WriteString(helpStyle.Render("SP:Pause +/-:Speed Q:Quit\nT:Theme  G:Record  ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(b.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume playback    ║
║  + / -    - Double / halve speed     ║
║  Q        - Quit                     ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) captureFrame() {
	charW, charH := 8, 16
	imgW, imgH := m.canvas.Width*charW, m.canvas.Height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	for row := 0; row < m.canvas.Height; row++ {
		for col := 0; col < m.canvas.Width; col++ {
			pattern := int(m.canvas.Grid[row][col] - blank)
			if pattern <= 0 {
				continue
			}
			baseX, baseY := col*charW, row*charH
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					for py := 0; py < dotH; py++ {
						for px := 0; px < dotW; px++ {
							img.SetColorIndex(baseX+dx*dotW+px, baseY+dy*dotH+py, 1)
						}
					}
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() error {
	if len(m.frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return fmt.Errorf("save recording: %w", err)
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}

// Run plays m until the user quits.
func Run(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
