package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// rig is an opened exoskeleton: configuration, actuator and controller.
type rig struct {
	cfg    *robot.Config
	logger *zap.Logger
	act    robot.Actuator
	closer io.Closer
	ctrl   *joint.Controller
}

// openRig loads the configuration and connects to the configured backend.
// When quiet is set nothing is logged, for use under the TUI.
func openRig(quiet bool) (*rig, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()
	if !quiet {
		if logger, err = newLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	act, closer, err := robot.NewActuator(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect %s backend: %w", cfg.Backend, err)
	}

	elbow, err := joint.NewLimits(cfg.Limits.Elbow.Min, cfg.Limits.Elbow.Max)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("elbow limits: %w", err)
	}
	wrist, err := joint.NewLimits(cfg.Limits.Wrist.Min, cfg.Limits.Wrist.Max)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("wrist limits: %w", err)
	}

	ctrl, err := joint.NewController(act, elbow, wrist,
		joint.WithLogger(logger),
		joint.WithCalibration(cfg.Calibration),
		joint.WithResetSpeed(cfg.ResetSpeed),
	)
	if err != nil {
		closer.Close()
		return nil, err
	}

	return &rig{
		cfg:    cfg,
		logger: logger,
		act:    act,
		closer: closer,
		ctrl:   ctrl,
	}, nil
}

func (r *rig) Close() error {
	_ = r.logger.Sync()
	return r.closer.Close()
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.DisableStacktrace = true
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

func printOutcome(o joint.Outcome) {
	name := o.Joint.String()
	if o.Movement != 0 {
		name = o.Movement.String()
	}
	switch {
	case o.Accepted && o.Clamped != o.Requested:
		fmt.Printf("  %s %s → %.1f° %s\n", warnStyle.Render("⚠"), name, o.Clamped,
			dimStyle.Render(fmt.Sprintf("(requested %.1f°, clamped to safety limit)", o.Requested)))
	case o.Accepted:
		fmt.Printf("  %s %s → %.1f°\n", successStyle.Render("✓"), name, o.Clamped)
	default:
		fmt.Printf("  %s %s → %.1f° %s\n", failStyle.Render("✗"), name, o.Clamped,
			failStyle.Render(fmt.Sprintf("%s: %s", o.Reason, o.Detail)))
	}
}
