package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/metrics"
	"github.com/gwillem/exorehab/pkg/monitor"
	"github.com/gwillem/exorehab/pkg/therapy"
)

type SessionCommand struct {
	Level   string `short:"l" long:"level" choice:"beginner" choice:"intermediate" choice:"advanced" description:"Patient level (prompted when omitted)"`
	Count   int    `short:"n" long:"count" default:"1" description:"Number of sessions to run back to back"`
	Plain   bool   `long:"plain" description:"Print each movement instead of the live chart"`
	Report  string `long:"report" description:"Write the session history to this YAML file"`
	Metrics string `long:"metrics" description:"Write Prometheus textfile metrics to this file"`
}

const (
	headerHeight = 3 // title + progress + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors
var jointColors = map[joint.Joint]string{
	joint.Elbow: "226", // yellow
	joint.Wrist: "51",  // cyan
}

var (
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type sessionModel struct {
	runner   *monitor.Runner
	chart    *streamlinechart.Model
	level    therapy.Level
	count    int
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    monitor.State
	session  int // sessions completed
	finished bool
	quitting bool
}

func (m *sessionModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the runner
type stateMsg monitor.State
type logMsg string
type finishedMsg struct{ err error }

func waitForState(r *monitor.Runner) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-r.States())
	}
}

func waitForLog(r *monitor.Runner) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-r.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *sessionModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(40, m.width-borderSize-2)
	height = max(10, m.height-headerHeight-legendHeight-footerHeight-borderSize)
	return width, height
}

func (m *sessionModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialSessionModel(r *monitor.Runner, level therapy.Level, count int) sessionModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(joint.WristLimits().Min(), joint.ElbowLimits().Max()),
	)

	for _, j := range joint.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(j.String(), runes.ThinLineStyle, style)
	}

	return sessionModel{
		runner: r,
		chart:  &chart,
		level:  level,
		count:  count,
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.runner),
		waitForLog(m.runner),
	)
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.state = monitor.State(msg)
		for j, angle := range m.state.Angles {
			m.chart.PushDataSet(j.String(), angle)
		}
		m.chart.DrawAll()
		if m.state.Record != nil {
			m.session++
		}
		return m, waitForState(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.runner)

	case finishedMsg:
		m.finished = true
		if msg.err != nil {
			m.addLog(msg.err.Error())
		}
		return m, nil
	}

	return m, nil
}

func (m sessionModel) View() string {
	if m.quitting {
		return "Session view closed.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(headerStyle.Render("Exoskeleton Therapy"))
	sb.WriteString(fmt.Sprintf(" - %s", m.level))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.progressLine())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.state.Angles))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(20, m.width-4)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to stop")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m sessionModel) progressLine() string {
	if m.finished {
		return successStyle.Render(fmt.Sprintf("%d/%d session(s) complete", m.session, m.count)) +
			statusStyle.Render("  press 'q' to exit")
	}
	current := min(m.session+1, m.count)
	line := fmt.Sprintf("Session %d/%d", current, m.count)
	if m.state.Total > 0 && m.state.Record == nil {
		line += fmt.Sprintf(" · movement %d/%d · %s", m.state.Index, m.state.Total, m.state.Last.Movement)
	}
	return statusStyle.Render(line)
}

func renderLegend(angles map[joint.Joint]float64) string {
	var items []string
	for _, j := range joint.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		item := colorStyle.Render("━━") + fmt.Sprintf(" %s %.0f°", j, angles[j])
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

// printer prints each movement as it completes.
type printer struct{}

func (printer) MovementCompleted(p therapy.Progress) {
	fmt.Printf("[%2d/%d] rep %d ", p.Index, p.Total, p.Repetition)
	printOutcome(p.Outcome)
}

func (printer) SessionCompleted(rec therapy.Record) {
	fmt.Printf("Session %s completed in %.1fs with %d fault(s)\n\n", shortID(rec), rec.DurationSeconds(), rec.Faults())
}

func (c *SessionCommand) Execute(args []string) error {
	level, err := c.selectLevel()
	if err != nil {
		return err
	}
	if c.Count < 1 {
		c.Count = 1
	}

	r, err := openRig(!c.Plain)
	if err != nil {
		return err
	}
	defer r.Close()

	recorder := metrics.NewRecorder()
	runner := monitor.NewRunner(r.ctrl.Angles())
	engineOpts := []therapy.Option{
		therapy.WithLogger(r.logger),
		therapy.WithObserver(recorder),
		therapy.WithObserver(runner),
	}
	if c.Plain {
		engineOpts = append(engineOpts, therapy.WithObserver(printer{}))
	}
	engine := therapy.NewEngine(r.ctrl, engineOpts...)
	runner.Attach(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runAll := func() error {
		for i := 0; i < c.Count; i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := runner.Start(ctx, level); err != nil {
				return err
			}
		}
		return nil
	}

	if c.Plain {
		p, _ := therapy.ProtocolFor(level)
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ %s session ━━━", level)))
		fmt.Printf("Repetitions: %d, Elbow ROM: %.0f°, Wrist ROM: %.0f°, Speed: %.0f°/s\n\n",
			p.Repetitions, p.ElbowRange, p.WristRange, p.Speed)
		if err := runAll(); err != nil {
			return err
		}
	} else {
		p := tea.NewProgram(initialSessionModel(runner, level, c.Count), tea.WithAltScreen())

		done := make(chan error, 1)
		go func() {
			err := runAll()
			p.Send(finishedMsg{err: err})
			done <- err
		}()

		if _, err := p.Run(); err != nil {
			cancel()
			<-done
			return fmt.Errorf("run program: %w", err)
		}
		// Stopping early faults the remaining movements; wait for the record
		cancel()
		if err := stopError(<-done); err != nil {
			return err
		}
	}

	fmt.Println("Returning to neutral...")
	for _, o := range r.ctrl.ResetPosition(context.Background()) {
		printOutcome(o)
	}
	fmt.Println()

	printHistory(runner.History())

	if c.Report != "" {
		if err := writeReport(c.Report, engine.History()); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", c.Report)
	}
	if c.Metrics != "" {
		if err := recorder.WriteTextfile(c.Metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		fmt.Printf("Metrics written to %s\n", c.Metrics)
	}
	return nil
}

func (c *SessionCommand) selectLevel() (therapy.Level, error) {
	if c.Level != "" {
		return therapy.ParseLevel(c.Level)
	}

	var options []huh.Option[therapy.Level]
	for _, l := range therapy.Levels() {
		p, _ := therapy.ProtocolFor(l)
		label := fmt.Sprintf("%-12s %d reps, elbow %.0f°, wrist %.0f°, %.0f°/s", l, p.Repetitions, p.ElbowRange, p.WristRange, p.Speed)
		options = append(options, huh.NewOption(label, l))
	}

	level := therapy.Beginner
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[therapy.Level]().
				Title("Patient level").
				Options(options...).
				Value(&level),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return level, nil
}

// stopError drops the cancellation caused by leaving the live view early.
func stopError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
