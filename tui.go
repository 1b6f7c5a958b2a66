package main

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"handy/hotkey"
	"handy/level"
	"handy/overlay"
)

// TUI message types
type OverlayMsg struct{ Snapshot overlay.Snapshot }
type BackendLineMsg struct{ Text string } // backend address and transport
type BackendLostMsg struct{ Err error }

type tuiModel struct {
	snap          overlay.Snapshot
	width, height int
	backendLine   string
	lostErr       error
	cancel        func()
	cancels       int // cancel requests sent from this UI
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// Pre-computed bar styles, indexed by brightness step.
var (
	barShades = []string{"238", "240", "242", "244", "246", "248", "250", "252", "254", "255"}
	barStyles [10]lipgloss.Style

	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	transStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	standbyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

var barGlyphs = []rune("▁▂▃▄▅▆▇█")

func init() {
	for i, c := range barShades {
		barStyles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
}

func NewTUIProgram(cancel func()) *tea.Program {
	return tea.NewProgram(tuiModel{cancel: cancel}, tea.WithAltScreen())
}

// tuiSend forwards msg to the running TUI, if any.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) recording() bool {
	return m.snap.Visible && m.snap.Mode == overlay.Recording
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc", "x":
			// cancel is only offered while recording
			if m.recording() && m.cancel != nil {
				m.cancel()
				m.cancels++
			}
		}

	case OverlayMsg:
		m.snap = msg.Snapshot

	case BackendLineMsg:
		m.backendLine = msg.Text

	case BackendLostMsg:
		m.lostErr = msg.Err
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	switch {
	case !m.snap.Visible:
		lines = append(lines, standbyStyle.Render("○ STANDBY"))
	case m.snap.Mode == overlay.Recording:
		lines = append(lines,
			recStyle.Render("● REC "+m.snap.ElapsedText),
			renderMeter(m.snap.Levels),
		)
	default:
		lines = append(lines, transStyle.Render("◌ Transcribing..."))
	}

	if m.backendLine != "" {
		lines = append(lines, standbyStyle.Render(m.backendLine))
	}
	if m.lostErr != nil {
		lines = append(lines, errStyle.Render("backend lost: "+m.lostErr.Error()))
	}

	lines = append(lines, "")
	if m.recording() {
		lines = append(lines, boldHelp.Render("esc")+helpStyle.Render(" or ")+
			boldHelp.Render(hotkey.Chord)+helpStyle.Render(" to cancel"))
	}
	lines = append(lines, helpStyle.Render("q to quit · handy "+version))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

// renderMeter draws one block glyph per display bar; taller bars use taller
// glyphs and brighter shades.
func renderMeter(levels level.Display) string {
	var b strings.Builder
	for _, v := range levels {
		g, shade := meterCell(v)
		b.WriteString(barStyles[shade].Render(string(g)))
		b.WriteByte(' ')
	}
	return strings.TrimRight(b.String(), " ")
}

func meterCell(v float64) (rune, int) {
	h := level.BarHeight(v)
	step := int((h - 4) / 16 * float64(len(barGlyphs)-1))
	step = min(max(step, 0), len(barGlyphs)-1)

	op := min(level.BarOpacity(v), 1)
	shade := int((op - 0.2) / 0.8 * float64(len(barShades)-1))
	shade = min(max(shade, 0), len(barShades)-1)
	return barGlyphs[step], shade
}
