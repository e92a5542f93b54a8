package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/omnicontext/omnicontext/internal/status"
)

// runDashboard runs the bubbletea live status program until ctx is
// cancelled or the user quits, returning the program's error if it fails
// to start (e.g. the output isn't really a full-screen-capable terminal
// despite passing IsTTY); Watch then falls back to the plain renderer.
func runDashboard(ctx context.Context, source StatusSource, latency LatencySource, cfg Config) error {
	model := newDashboardModel(source, latency, cfg)

	var opts []tea.ProgramOption
	if f, ok := cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithAltScreen(), tea.WithContext(ctx))

	program := tea.NewProgram(model, opts...)
	_, err := program.Run()
	return err
}

type snapshotMsg struct {
	snap status.Snapshot
	err  error
}

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// dashboardModel is the bubbletea model for the live status view.
type dashboardModel struct {
	source   StatusSource
	latency  LatencySource
	interval time.Duration
	styles   Styles

	snap     status.Snapshot
	coverage *History
	err      error
	spinner  spinner.Model
	quitting bool
}

func newDashboardModel(source StatusSource, latency LatencySource, cfg Config) *dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	styles := GetStyles(cfg.NoColor)
	s.Style = styles.Healthy

	return &dashboardModel{
		source:   source,
		latency:  latency,
		interval: cfg.Interval,
		styles:   styles,
		coverage: NewHistory(40),
		spinner:  s,
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), tickCmd(m.interval))
}

func (m *dashboardModel) poll() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.source.Report(context.Background())
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(m.poll(), tickCmd(m.interval))

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.coverage.Add(msg.snap.EmbeddingCoveragePercent)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.styles.Header.Render("Index Status"))

	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", m.styles.Danger.Render(m.err.Error()))
		return m.styles.Panel.Render(b.String())
	}

	fmt.Fprintf(&b, "%s %d    %s %d    %s %d\n",
		m.styles.Label.Render("files"), m.snap.FilesIndexed,
		m.styles.Label.Render("chunks"), m.snap.ChunksIndexed,
		m.styles.Label.Render("vectors"), m.snap.VectorsIndexed)

	fmt.Fprintf(&b, "%s %s    %s %s\n",
		m.styles.Label.Render("mode"), renderMode(m.styles, m.snap.SearchMode),
		m.styles.Label.Render("coverage"), m.styles.Value.Render(fmt.Sprintf("%.1f%%", m.snap.EmbeddingCoveragePercent)))

	fmt.Fprintf(&b, "%s %s\n", m.styles.Label.Render("coverage history"), m.styles.Bar.Render(m.coverage.Render()))

	graphLine := fmt.Sprintf("%s %d nodes / %d edges", m.styles.Label.Render("graph"), m.snap.GraphNodes, m.snap.GraphEdges)
	if m.snap.HasCycles {
		graphLine += "  " + m.styles.Warning.Render("cycles detected")
	}
	fmt.Fprintln(&b, graphLine)

	if m.latency != nil {
		p := m.latency.Snapshot()
		fmt.Fprintf(&b, "%s p50=%s p95=%s p99=%s (n=%d)\n",
			m.styles.Label.Render("latency"),
			p.P50.Round(time.Millisecond), p.P95.Round(time.Millisecond), p.P99.Round(time.Millisecond), p.Count)
	}

	fmt.Fprintf(&b, "\n%s\n", m.styles.Dim.Render("q to quit"))

	return m.styles.Panel.Render(b.String())
}
