package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/therapy"
)

func shortID(rec therapy.Record) string {
	return rec.ID.String()[:8]
}

func printHistory(history []therapy.Record) {
	if len(history) == 0 {
		fmt.Println(dimStyle.Render("No sessions recorded."))
		return
	}

	rows := make([][]string, 0, len(history))
	faulty := make([]bool, 0, len(history))
	for i, rec := range history {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			shortID(rec),
			rec.Level.String(),
			rec.Start.Format("15:04:05"),
			fmt.Sprintf("%.1fs", rec.DurationSeconds()),
			fmt.Sprintf("%d", len(rec.Movements)),
			fmt.Sprintf("%d", rec.Faults()),
			fmt.Sprintf("%.0f°", rec.FinalAngles[joint.Elbow]),
			fmt.Sprintf("%.0f°", rec.FinalAngles[joint.Wrist]),
		})
		faulty = append(faulty, rec.Faults() > 0)
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableBadStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Session", "Level", "Start", "Duration", "Moves", "Faults", "Elbow", "Wrist").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 6 && row >= 0 && row < len(faulty) {
				if faulty[row] {
					return tableBadStyle
				}
				return tableGoodStyle
			}
			return tableCellStyle
		})

	fmt.Println(subHeaderStyle.Render("Session history"))
	fmt.Println(t.Render())
}

type report struct {
	Sessions []therapy.Record `yaml:"sessions"`
}

func writeReport(path string, history []therapy.Record) error {
	data, err := yaml.Marshal(report{Sessions: history})
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
