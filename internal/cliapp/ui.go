package cliapp

import (
	"fmt"
	"strings"

	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelRanked panelMode = iota
	panelUnits
)

type model struct {
	target       string
	result       ports.AnalysisResult
	keyFunctions map[string]ports.KeyFunction
	rankedList   list.Model
	unitList     list.Model
	mode         panelMode
	showDetails  bool
	trendReport  *history.TrendReport
	showTrend    bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.rankedList.SetSize(width, height)
		m.unitList.SetSize(width, height)
	}

	var cmd tea.Cmd
	if m.mode == panelRanked {
		m.rankedList, cmd = m.rankedList.Update(msg)
	} else {
		m.unitList, cmd = m.unitList.Update(msg)
	}
	return m, cmd
}

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.rankedList.FilterState() == list.Filtering || m.unitList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelRanked {
				m.mode = panelUnits
			} else {
				m.mode = panelRanked
			}
			m.showDetails = false
			return m, nil
		case "t":
			m.showTrend = !m.showTrend
			return m, nil
		case "enter":
			if m.mode == panelRanked {
				m.showDetails = true
				return m, nil
			}
		case "esc", "backspace":
			if m.showDetails {
				m.showDetails = false
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.mode == panelRanked {
		m.rankedList, cmd = m.rankedList.Update(msg)
	} else {
		m.unitList, cmd = m.unitList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	s := m.result.Summary
	status := statusStyle.Render(fmt.Sprintf("%s | %d units | %d functions | %d edges | %d external calls",
		m.target, s.Units, s.Functions, s.Edges, s.ExternalCalls))

	var summary string
	if s.FailedUnits == 0 {
		summary = successStyle.Render("All units parsed")
	} else {
		summary = failedStyle.Render(fmt.Sprintf("%d of %d units failed", s.FailedUnits, s.Units))
	}
	summary += " | " + entryStyle.Render(fmt.Sprintf("%d entry points", s.EntryPoints))

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Python Function Explorer"), status, summary)
	help := renderHelp(m)

	body := m.rankedList.View()
	if m.mode == panelUnits {
		body = m.unitList.View() + "\n\n" + renderUnitSummary(m)
	} else if m.showDetails {
		body += "\n\n" + renderFunctionDetails(m)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.trendReport)
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func newModel(target string, result ports.AnalysisResult, trend *history.TrendReport) model {
	rankedList := list.New(rankedItems(result), list.NewDefaultDelegate(), 0, 0)
	rankedList.Title = "Ranked Functions"
	rankedList.SetShowStatusBar(false)
	rankedList.SetFilteringEnabled(true)

	unitList := list.New(unitItems(result), list.NewDefaultDelegate(), 0, 0)
	unitList.Title = "Units"
	unitList.SetShowStatusBar(false)
	unitList.SetFilteringEnabled(true)

	keyFunctions := make(map[string]ports.KeyFunction, len(result.KeyFunctions))
	for _, kf := range result.KeyFunctions {
		keyFunctions[kf.Unit+"::"+kf.QualifiedName] = kf
	}

	return model{
		target:       target,
		result:       result,
		keyFunctions: keyFunctions,
		rankedList:   rankedList,
		unitList:     unitList,
		mode:         panelRanked,
		trendReport:  trend,
	}
}

func rankedItems(result ports.AnalysisResult) []list.Item {
	items := make([]list.Item, 0, len(result.RankedFunctions))
	for _, r := range result.RankedFunctions {
		flags := make([]string, 0, 2)
		if r.Reasons.IsEntry {
			flags = append(flags, "entry")
		}
		if r.Reasons.HasDoc {
			flags = append(flags, "doc")
		}
		desc := fmt.Sprintf("%s score=%.3f in=%d out=%d ext=%d",
			r.Unit, r.Score, r.Reasons.InDegree, r.Reasons.OutDegree, r.Reasons.ExternalCalls)
		if len(flags) > 0 {
			desc += " [" + strings.Join(flags, ",") + "]"
		}
		items = append(items, item{title: r.QualifiedName, desc: desc})
	}
	return items
}

func unitItems(result ports.AnalysisResult) []list.Item {
	items := make([]list.Item, 0, len(result.Units))
	for _, u := range result.Units {
		desc := fmt.Sprintf("module=%s functions=%d imports=%d", u.Module, len(u.Functions), len(u.Imports))
		if u.Failed() {
			desc = fmt.Sprintf("parse error at %d:%d: %s", u.ErrorLine, u.ErrorColumn, u.ParseError)
		}
		items = append(items, item{title: u.Name, desc: desc})
	}
	return items
}
