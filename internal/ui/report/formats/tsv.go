package formats

import (
	"fmt"
	"strings"

	"pyinsight/internal/core/ports"
)

type TSVGenerator struct {
	result ports.AnalysisResult
}

func NewTSVGenerator(result ports.AnalysisResult) *TSVGenerator {
	return &TSVGenerator{result: result}
}

// Generate writes one row per resolved call edge.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("CallerUnit\tCaller\tCalleeUnit\tCallee\tCalls\n")
	for _, edge := range t.result.CallEdges {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\n",
			edge.CallerUnit, edge.Caller, edge.CalleeUnit, edge.Callee, edge.Calls))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateRanked() (string, error) {
	var buf strings.Builder

	buf.WriteString("Rank\tUnit\tFunction\tScore\tInDegree\tOutDegree\tHasDoc\tIsEntry\tExternalCalls\tLines\n")
	spans := t.lineSpans()
	for i, r := range t.result.RankedFunctions {
		span := spans[functionKey(r.Unit, r.QualifiedName)]
		buf.WriteString(fmt.Sprintf("%d\t%s\t%s\t%s\t%d\t%d\t%t\t%t\t%d\t%s\n",
			i+1,
			r.Unit,
			r.QualifiedName,
			formatScore(r.Score),
			r.Reasons.InDegree,
			r.Reasons.OutDegree,
			r.Reasons.HasDoc,
			r.Reasons.IsEntry,
			r.Reasons.ExternalCalls,
			joinInts([]int{span.Start, span.End}),
		))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateDiagnostics() (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tUnit\tCaller\tCall\tLine\tCandidates\n")
	for _, d := range t.result.Diagnostics {
		buf.WriteString(fmt.Sprintf("ambiguous_call\t%s\t%s\t%s\t%d\t%s\n",
			d.Unit,
			d.Caller,
			escapeTSV(d.Call),
			d.Line,
			strings.Join(d.Candidates, ","),
		))
	}
	for _, u := range t.result.Units {
		if !u.Failed() {
			continue
		}
		buf.WriteString(fmt.Sprintf("parse_error\t%s\t\t%s\t%d\t\n", u.Name, escapeTSV(u.ParseError), u.ErrorLine))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) lineSpans() map[string]ports.LineSpan {
	out := make(map[string]ports.LineSpan)
	for _, u := range t.result.Units {
		for _, fn := range u.Functions {
			out[functionKey(u.Name, fn.QualifiedName)] = fn.LineSpan
		}
	}
	return out
}
