package cliapp

import (
	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(target string, result ports.AnalysisResult, trend *history.TrendReport) error {
	p := tea.NewProgram(newModel(target, result, trend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
