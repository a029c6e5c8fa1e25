package cliapp

import (
	"testing"
	"time"

	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uiResult() ports.AnalysisResult {
	return ports.AnalysisResult{
		Status: ports.StatusPartial,
		Units: ports.UnitResults{
			{Name: "main.py", Module: "main", Imports: []string{"helpers"}, Functions: []ports.FunctionResult{
				{QualifiedName: "main", Name: "main", Kind: "function", Docstring: "Entry point.\nMore.", LineSpan: ports.LineSpan{Start: 3, End: 5}, FanOut: 1, IsEntryPoint: true},
			}},
			{Name: "helpers.py", Module: "helpers", Functions: []ports.FunctionResult{
				{QualifiedName: "greet", Name: "greet", Kind: "function", LineSpan: ports.LineSpan{Start: 1, End: 2}, FanIn: 1},
			}},
			{Name: "bad.py", Module: "bad", ParseError: "invalid syntax", ErrorLine: 1, ErrorColumn: 11},
		},
		RankedFunctions: []ports.RankedResult{
			{Unit: "main.py", QualifiedName: "main", Score: 0.55, Reasons: ports.ScoreReasons{OutDegree: 1, HasDoc: true, IsEntry: true}},
			{Unit: "helpers.py", QualifiedName: "greet", Score: 0.45, Reasons: ports.ScoreReasons{InDegree: 1, ExternalCalls: 1}},
		},
		CallEdges: []ports.CallEdgeResult{{CallerUnit: "main.py", Caller: "main", CalleeUnit: "helpers.py", Callee: "greet", Calls: 1}},
		Summary:   ports.Summary{Units: 3, FailedUnits: 1, Functions: 2, Edges: 1, ExternalCalls: 1, EntryPoints: 1},
		KeyFunctions: []ports.KeyFunction{
			{Unit: "helpers.py", QualifiedName: "greet", Name: "greet", Code: "def greet():\n    print(\"hi\")", EntryChain: []string{"main.py::main", "helpers.py::greet"}},
		},
	}
}

func sized(t *testing.T, m model) model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	state, ok := updated.(model)
	require.True(t, ok, "expected model type, got %T", updated)
	return state
}

func press(t *testing.T, m model, msg tea.KeyMsg) model {
	t.Helper()
	updated, _ := m.Update(msg)
	state, ok := updated.(model)
	require.True(t, ok, "expected model type, got %T", updated)
	return state
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Items(t *testing.T) {
	m := newModel("demo", uiResult(), nil)

	require.Len(t, m.rankedList.Items(), 2)
	first := m.rankedList.Items()[0].(item)
	assert.Equal(t, "main", first.title)
	assert.Equal(t, "main.py score=0.550 in=0 out=1 ext=0 [entry,doc]", first.desc)

	require.Len(t, m.unitList.Items(), 3)
	bad := m.unitList.Items()[2].(item)
	assert.Equal(t, "parse error at 1:11: invalid syntax", bad.desc)
}

func TestModel_PanelsAndDetails(t *testing.T) {
	m := sized(t, newModel("demo", uiResult(), nil))

	view := m.View()
	assert.Contains(t, view, "Python Function Explorer")
	assert.Contains(t, view, "1 of 3 units failed")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.showDetails)
	details := renderFunctionDetails(m)
	assert.Contains(t, details, "Function: main")
	assert.Contains(t, details, "Doc: Entry point.")
	assert.Contains(t, details, "Callees: helpers.py::greet")
	assert.Contains(t, details, "Callers: none")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showDetails)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, panelUnits, m.mode)
	assert.Contains(t, renderUnitSummary(m), "Imports (1): helpers")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, panelRanked, m.mode)
}

func TestModel_SecondFunctionShowsKeyFacts(t *testing.T) {
	m := sized(t, newModel("demo", uiResult(), nil))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	details := renderFunctionDetails(m)
	assert.Contains(t, details, "Function: greet")
	assert.Contains(t, details, "Reached via: main.py::main -> helpers.py::greet")
	assert.Contains(t, details, "print(\"hi\")")
}

func TestModel_TrendToggle(t *testing.T) {
	trend := &history.TrendReport{
		Window:    "24h0m0s",
		ScanCount: 2,
		Points: []history.TrendPoint{
			{Timestamp: time.Now(), FunctionCount: 2},
			{Timestamp: time.Now(), FunctionCount: 3, DeltaFunctions: 1, FunctionGrowthPct: 50, TopChanged: true},
		},
	}
	m := sized(t, newModel("demo", uiResult(), trend))

	m = press(t, m, runes("t"))
	assert.True(t, m.showTrend)
	assert.Contains(t, m.View(), "Function growth: +1 (50.00%)")

	m = press(t, m, runes("t"))
	assert.False(t, m.showTrend)
}

func TestRenderTrendOverlay_Empty(t *testing.T) {
	assert.Contains(t, renderTrendOverlay(nil), "Trend overlay unavailable")
}

func TestModel_Quit(t *testing.T) {
	m := newModel("demo", uiResult(), nil)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
