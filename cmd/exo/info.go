package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/exorehab/pkg/robot"
)

type InfoCommand struct{}

func (c *InfoCommand) Execute(args []string) error {
	r, err := openRig(false)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println(headerStyle.Render("Exoskeleton"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Printf("Config:  %s\n", opts.Config)
	fmt.Printf("Backend: %s", r.cfg.Backend)
	if r.cfg.Port != "" {
		fmt.Printf(" on %s", r.cfg.Port)
	}
	fmt.Println()
	fmt.Printf("Reset speed: %.0f°/s\n\n", r.cfg.ResetSpeed)

	fmt.Println(subHeaderStyle.Render("Joints"))
	printAngles(r.ctrl)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rows := make([][]string, 0, len(robot.AllMotors()))
	for _, m := range robot.AllMotors() {
		cal := r.cfg.Calibration.For(m)
		st, err := r.act.MotorStatus(ctx, m)
		if err != nil {
			rows = append(rows, []string{m.String(), m.Role(), fmt.Sprintf("%d", cal.ID), "-", "-", failStyle.Render(err.Error())})
			continue
		}
		state := successStyle.Render("idle")
		if st.Moving {
			state = warnStyle.Render("moving")
		}
		rows = append(rows, []string{
			m.String(),
			m.Role(),
			fmt.Sprintf("%d", cal.ID),
			fmt.Sprintf("%d", st.Position),
			fmt.Sprintf("%.1f°", cal.Degrees(st.Position)),
			state,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Role", "Servo", "Encoder", "Angle", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	return nil
}
