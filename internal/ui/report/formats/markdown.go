package formats

import (
	"fmt"
	"strings"
	"time"

	"pyinsight/internal/core/ports"
)

type MarkdownReportOptions struct {
	Target              string
	Version             string
	GeneratedAt         time.Time
	TableOfContents     bool
	CollapsibleSections bool
	// MaxRanked caps the ranked table; 0 keeps every row.
	MaxRanked      int
	IncludeMermaid bool
	MermaidDiagram string
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Generate renders the full analysis report.
func (m *MarkdownGenerator) Generate(result ports.AnalysisResult, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Python Structure Report\n")
	b.WriteString("target: " + nonEmpty(opts.Target, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("status: " + string(result.Status) + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Analysis Report\n\n")
	includeDiagram := opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) != ""
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Summary](#summary)\n")
		b.WriteString("- [Ranked Functions](#ranked-functions)\n")
		b.WriteString("- [Entry Points](#entry-points)\n")
		b.WriteString("- [Recursion](#recursion)\n")
		b.WriteString("- [External Calls](#external-calls)\n")
		if len(result.Diagnostics) > 0 {
			b.WriteString("- [Ambiguous Calls](#ambiguous-calls)\n")
		}
		if result.Summary.FailedUnits > 0 {
			b.WriteString("- [Failed Units](#failed-units)\n")
		}
		if includeDiagram {
			b.WriteString("- [Call Graph](#call-graph)\n")
		}
		b.WriteString("\n")
	}

	s := result.Summary
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Units | %d |\n", s.Units))
	b.WriteString(fmt.Sprintf("| Failed Units | %d |\n", s.FailedUnits))
	b.WriteString(fmt.Sprintf("| Functions | %d |\n", s.Functions))
	b.WriteString(fmt.Sprintf("| Call Edges | %d |\n", s.Edges))
	b.WriteString(fmt.Sprintf("| External Calls | %d |\n", s.ExternalCalls))
	b.WriteString(fmt.Sprintf("| Entry Points | %d |\n", s.EntryPoints))
	b.WriteString(fmt.Sprintf("| Recursive Groups | %d |\n\n", s.RecursiveGroups))

	m.writeRanked(&b, result.RankedFunctions, opts)
	m.writeEntryPoints(&b, result.EntryPoints, opts.CollapsibleSections)
	m.writeRecursion(&b, result.RecursiveGroups)
	m.writeExternal(&b, result.ExternalCalls, opts.CollapsibleSections)
	m.writeDiagnostics(&b, result.Diagnostics, opts.CollapsibleSections)
	m.writeFailedUnits(&b, result.Units)

	if includeDiagram {
		b.WriteString("## Call Graph\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(opts.MermaidDiagram))
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

func (m *MarkdownGenerator) writeRanked(b *strings.Builder, ranked []ports.RankedResult, opts MarkdownReportOptions) {
	b.WriteString("## Ranked Functions\n")
	if len(ranked) == 0 {
		b.WriteString("No functions found.\n\n")
		return
	}
	if opts.MaxRanked > 0 && len(ranked) > opts.MaxRanked {
		ranked = ranked[:opts.MaxRanked]
	}
	rows := make([]string, 0, len(ranked))
	for i, r := range ranked {
		entry := ""
		if r.Reasons.IsEntry {
			entry = "yes"
		}
		doc := ""
		if r.Reasons.HasDoc {
			doc = "yes"
		}
		rows = append(rows, fmt.Sprintf(
			"| %d | `%s` | `%s` | %s | %d | %d | %s | %s | %d |\n",
			i+1,
			r.QualifiedName,
			r.Unit,
			formatScore(r.Score),
			r.Reasons.InDegree,
			r.Reasons.OutDegree,
			doc,
			entry,
			r.Reasons.ExternalCalls,
		))
	}
	m.writeTableWithCollapse(
		b,
		"Ranking details",
		opts.CollapsibleSections,
		len(rows) > 20,
		[]string{"| # | Function | Unit | Score | In | Out | Doc | Entry | External |\n", "| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeEntryPoints(b *strings.Builder, entries []ports.EntryPointResult, collapsible bool) {
	b.WriteString("## Entry Points\n")
	if len(entries) == 0 {
		b.WriteString("No entry points detected.\n\n")
		return
	}
	rows := make([]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fmt.Sprintf("| `%s` | `%s` | %s |\n", e.QualifiedName, e.Unit, strings.Join(e.Reasons, ", ")))
	}
	m.writeTableWithCollapse(
		b,
		"Entry point details",
		collapsible,
		len(rows) > 15,
		[]string{"| Function | Unit | Reasons |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeRecursion(b *strings.Builder, groups [][]string) {
	b.WriteString("## Recursion\n")
	if len(groups) == 0 {
		b.WriteString("No recursive functions detected.\n\n")
		return
	}
	for i, group := range groups {
		if len(group) == 1 {
			b.WriteString(fmt.Sprintf("%d. `%s` (self-recursive)\n", i+1, group[0]))
			continue
		}
		b.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, strings.Join(group, "` <-> `")))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeExternal(b *strings.Builder, calls []ports.ExternalCallResult, collapsible bool) {
	b.WriteString("## External Calls\n")
	if len(calls) == 0 {
		b.WriteString("No external calls.\n\n")
		return
	}
	rows := make([]string, 0, len(calls))
	for _, c := range calls {
		rows = append(rows, fmt.Sprintf("| `%s` | %d |\n", escapeCell(c.Name), c.Count))
	}
	m.writeTableWithCollapse(
		b,
		"External call details",
		collapsible,
		len(rows) > 15,
		[]string{"| Call | Count |\n", "| --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeDiagnostics(b *strings.Builder, diags []ports.DiagnosticResult, collapsible bool) {
	if len(diags) == 0 {
		return
	}
	b.WriteString("## Ambiguous Calls\n")
	rows := make([]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, fmt.Sprintf(
			"| `%s` | `%s` | `%s:%d` | %s |\n",
			escapeCell(d.Call),
			d.Caller,
			d.Unit,
			d.Line,
			"`"+strings.Join(d.Candidates, "`, `")+"`",
		))
	}
	m.writeTableWithCollapse(
		b,
		"Ambiguous call details",
		collapsible,
		len(rows) > 15,
		[]string{"| Call | Caller | Location | Candidates |\n", "| --- | --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeFailedUnits(b *strings.Builder, units ports.UnitResults) {
	var rows []string
	for _, u := range units {
		if !u.Failed() {
			continue
		}
		rows = append(rows, fmt.Sprintf("| `%s` | %d:%d | %s |\n", u.Name, u.ErrorLine, u.ErrorColumn, escapeCell(u.ParseError)))
	}
	if len(rows) == 0 {
		return
	}
	b.WriteString("## Failed Units\n")
	m.writeTableWithCollapse(
		b,
		"",
		false,
		false,
		[]string{"| Unit | Position | Error |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}
