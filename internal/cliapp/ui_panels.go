package cliapp

import (
	"fmt"
	"strings"

	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"
)

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | enter details | esc back | t trend overlay | q quit"
	if m.mode == panelUnits {
		keys = "Keys: tab panel | / filter | t trend overlay | q quit"
	}
	return statusStyle.Render(keys)
}

func selectedRanked(m model) (ports.RankedResult, bool) {
	ranked := m.result.RankedFunctions
	if len(ranked) == 0 {
		return ports.RankedResult{}, false
	}
	selected, ok := m.rankedList.SelectedItem().(item)
	if !ok {
		return ranked[0], true
	}
	idx := m.rankedList.Index()
	if idx >= 0 && idx < len(ranked) && ranked[idx].QualifiedName == selected.title {
		return ranked[idx], true
	}
	// Filtering reorders the visible items.
	for _, r := range ranked {
		if r.QualifiedName == selected.title && strings.HasPrefix(selected.desc, r.Unit+" ") {
			return r, true
		}
	}
	return ports.RankedResult{}, false
}

func renderFunctionDetails(m model) string {
	r, ok := selectedRanked(m)
	if !ok {
		return statusStyle.Render("No function selected.")
	}

	lines := []string{
		fmt.Sprintf("Function: %s", r.QualifiedName),
		fmt.Sprintf("  Unit: %s", r.Unit),
		fmt.Sprintf("  Score: %.3f (in=%d out=%d doc=%t entry=%t external=%d)",
			r.Score, r.Reasons.InDegree, r.Reasons.OutDegree, r.Reasons.HasDoc, r.Reasons.IsEntry, r.Reasons.ExternalCalls),
	}
	if unit, ok := m.result.Unit(r.Unit); ok {
		for _, fn := range unit.Functions {
			if fn.QualifiedName != r.QualifiedName {
				continue
			}
			lines = append(lines, fmt.Sprintf("  Lines: %d-%d | kind=%s async=%t", fn.LineSpan.Start, fn.LineSpan.End, fn.Kind, fn.IsAsync))
			if len(fn.Decorators) > 0 {
				lines = append(lines, "  Decorators: "+strings.Join(fn.Decorators, ", "))
			}
			if fn.Docstring != "" {
				lines = append(lines, "  Doc: "+firstLine(fn.Docstring))
			}
			break
		}
	}
	lines = append(lines, "  Callers: "+joinOrNone(callersOf(m.result, r)))
	lines = append(lines, "  Callees: "+joinOrNone(calleesOf(m.result, r)))

	if kf, ok := m.keyFunctions[r.Unit+"::"+r.QualifiedName]; ok {
		if len(kf.EntryChain) > 1 {
			lines = append(lines, "  Reached via: "+strings.Join(kf.EntryChain, " -> "))
		}
		if kf.Code != "" {
			lines = append(lines, "", kf.Code)
		}
	}
	lines = append(lines, "  Press esc to close details.")
	return strings.Join(lines, "\n")
}

func renderUnitSummary(m model) string {
	if len(m.result.Units) == 0 {
		return statusStyle.Render("No units analyzed.")
	}
	idx := m.unitList.Index()
	if idx < 0 || idx >= len(m.result.Units) {
		idx = 0
	}
	u := m.result.Units[idx]
	if u.Failed() {
		return failedStyle.Render(fmt.Sprintf("%s failed to parse at %d:%d: %s", u.Name, u.ErrorLine, u.ErrorColumn, u.ParseError))
	}
	names := make([]string, 0, len(u.Functions))
	for _, fn := range u.Functions {
		names = append(names, fn.QualifiedName)
	}
	return strings.Join([]string{
		"Selected Unit",
		fmt.Sprintf("  Name: %s", u.Name),
		fmt.Sprintf("  Module: %s", u.Module),
		fmt.Sprintf("  Imports (%d): %s", len(u.Imports), joinOrNone(u.Imports)),
		fmt.Sprintf("  Functions (%d): %s", len(u.Functions), joinOrNone(names)),
	}, "\n")
}

func renderTrendOverlay(report *history.TrendReport) string {
	if report == nil || len(report.Points) == 0 {
		return statusStyle.Render("Trend overlay unavailable (enable -history to capture snapshots).")
	}
	last := report.Points[len(report.Points)-1]
	return strings.Join([]string{
		"Trend Overlay",
		fmt.Sprintf("  Window: %s | Scans: %d", report.Window, report.ScanCount),
		fmt.Sprintf("  Function growth: %+d (%.2f%%)", last.DeltaFunctions, last.FunctionGrowthPct),
		fmt.Sprintf("  Edges delta: %+d | External delta: %+d", last.DeltaEdges, last.DeltaExternal),
		fmt.Sprintf("  Fan-in drift: %+0.2f (avg %.2f)", last.DeltaAvgFanIn, last.AvgFanIn),
		fmt.Sprintf("  Top function changed: %t", last.TopChanged),
	}, "\n")
}

func callersOf(result ports.AnalysisResult, r ports.RankedResult) []string {
	var out []string
	for _, e := range result.CallEdges {
		if e.CalleeUnit == r.Unit && e.Callee == r.QualifiedName {
			out = append(out, e.CallerUnit+"::"+e.Caller)
		}
	}
	return out
}

func calleesOf(result ports.AnalysisResult, r ports.RankedResult) []string {
	var out []string
	for _, e := range result.CallEdges {
		if e.CallerUnit == r.Unit && e.Caller == r.QualifiedName {
			out = append(out, e.CalleeUnit+"::"+e.Callee)
		}
	}
	return out
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
