package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/sigbits/internal/pipeline"
	"github.com/san-kum/sigbits/internal/viz"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const barWidth = 40

type (
	EventMsg pipeline.Event
	DoneMsg  struct{ Err error }
	tickMsg  time.Time
)

type stageProgress struct {
	stage  pipeline.Stage
	done   int
	total  int
	failed []int
}

// Progress is a bubbletea model fed with pipeline events.
type Progress struct {
	stages   []*stageProgress
	frame    int
	started  time.Time
	elapsed  time.Duration
	finished bool
	aborted  bool
	err      error
}

func NewProgress() Progress {
	return Progress{started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Progress) Init() tea.Cmd { return tick() }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
	case EventMsg:
		m.record(pipeline.Event(msg))
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m *Progress) record(e pipeline.Event) {
	var sp *stageProgress
	for _, s := range m.stages {
		if s.stage == e.Stage {
			sp = s
			break
		}
	}
	if sp == nil {
		sp = &stageProgress{stage: e.Stage}
		m.stages = append(m.stages, sp)
	}
	sp.total = e.Total
	sp.done = max(sp.done, e.Done)
	if e.Err != nil {
		sp.failed = append(sp.failed, e.Index)
		sort.Ints(sp.failed)
	}
}

func (m Progress) Aborted() bool { return m.aborted }

// Failed returns the failed indices reported for stage.
func (m Progress) Failed(stage pipeline.Stage) []int {
	for _, s := range m.stages {
		if s.stage == stage {
			return s.failed
		}
	}
	return nil
}

func (m Progress) View() string {
	var sb strings.Builder

	sb.WriteString(cyan.Render("sigbits"))
	sb.WriteString(dim.Render("  precision animation"))
	sb.WriteString("\n\n")

	for _, s := range m.stages {
		pct := 0.0
		if s.total > 0 {
			pct = float64(s.done) / float64(s.total)
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			white.Render(fmt.Sprintf("%-8s", s.stage)),
			viz.ProgressBar(viz.CurrentTheme, pct, barWidth),
			dim.Render(fmt.Sprintf("%d/%d", s.done, s.total)))
		if len(s.failed) > 0 {
			sb.WriteString(red.Render(fmt.Sprintf("         failed: %s", joinInts(s.failed))))
			sb.WriteString("\n")
		}
	}

	switch {
	case m.finished && m.err != nil:
		sb.WriteString("\n" + red.Render("error: "+m.err.Error()) + "\n")
	case m.finished:
		sb.WriteString("\n" + green.Render(fmt.Sprintf("done in %s", m.elapsed.Round(time.Millisecond))) + "\n")
	case m.aborted:
		sb.WriteString("\n" + yellow.Render("aborting...") + "\n")
	default:
		sb.WriteString("\n" + dim.Render(spinner(m.frame)+" working  [q] abort") + "\n")
	}
	return sb.String()
}

func spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

// Run executes work while showing its progress. Quitting the view cancels
// the context handed to work.
func Run(ctx context.Context, work func(ctx context.Context, progress func(pipeline.Event)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgress(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		err := work(ctx, func(e pipeline.Event) { p.Send(EventMsg(e)) })
		p.Send(DoneMsg{Err: err})
		errc <- err
	}()

	final, runErr := p.Run()
	cancel()
	workErr := <-errc

	if m, ok := final.(Progress); ok && m.Aborted() {
		return errors.Join(context.Canceled, workErr)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return errors.Join(runErr, workErr)
	}
	return workErr
}
