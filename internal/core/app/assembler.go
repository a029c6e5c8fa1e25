package app

import (
	"pyinsight/internal/core/ports"
	"pyinsight/internal/engine/graph"
	"pyinsight/internal/engine/parser"
)

// Assemble converts an Analysis into the wire result. Units keep input
// order; failed units carry their parse error and no functions.
func Assemble(a *Analysis) ports.AnalysisResult {
	cg := a.Graph
	entrySet := graph.EntrySet(a.EntryPoints)

	result := ports.AnalysisResult{
		Status:          a.Status(),
		Units:           make(ports.UnitResults, 0, len(a.Outcomes)),
		EntryPoints:     make([]ports.EntryPointResult, 0, len(a.EntryPoints)),
		RankedFunctions: make([]ports.RankedResult, 0, len(a.Ranked)),
		CallEdges:       make([]ports.CallEdgeResult, 0),
		ExternalCalls:   make([]ports.ExternalCallResult, 0),
		RecursiveGroups: make([][]string, 0, len(a.RecursiveGroups)),
		Diagnostics:     make([]ports.DiagnosticResult, 0, len(a.Diagnostics)),
	}

	for _, o := range a.Outcomes {
		result.Units = append(result.Units, unitResult(o, cg, entrySet))
	}

	for _, e := range a.EntryPoints {
		reasons := make([]string, 0, len(e.Reasons))
		for _, r := range e.Reasons {
			reasons = append(reasons, string(r))
		}
		result.EntryPoints = append(result.EntryPoints, ports.EntryPointResult{
			Unit:          e.Function.Unit().Name,
			QualifiedName: e.Function.QualifiedName,
			Reasons:       reasons,
		})
	}

	for _, r := range a.Ranked {
		result.RankedFunctions = append(result.RankedFunctions, ports.RankedResult{
			Unit:          r.Function.Unit().Name,
			QualifiedName: r.Function.QualifiedName,
			Score:         r.Score,
			Reasons:       scoreReasons(r.Reasons),
		})
	}

	if cg != nil {
		for _, e := range cg.Edges() {
			result.CallEdges = append(result.CallEdges, ports.CallEdgeResult{
				CallerUnit: e.Caller.Unit().Name,
				Caller:     e.Caller.QualifiedName,
				CalleeUnit: e.Callee.Unit().Name,
				Callee:     e.Callee.QualifiedName,
				Calls:      e.Calls,
			})
		}
		for _, ext := range cg.ExternalCalls() {
			result.ExternalCalls = append(result.ExternalCalls, ports.ExternalCallResult{Name: ext.Name, Count: ext.Count})
		}
	}

	for _, group := range a.RecursiveGroups {
		result.RecursiveGroups = append(result.RecursiveGroups, append([]string(nil), group...))
	}

	for _, d := range a.Diagnostics {
		result.Diagnostics = append(result.Diagnostics, ports.DiagnosticResult{
			Unit:       d.Unit,
			Caller:     d.Caller,
			Call:       d.Call,
			Line:       d.Line,
			Candidates: append([]string(nil), d.Candidates...),
		})
	}

	result.Summary = summarize(result, cg)
	return result
}

func unitResult(o UnitOutcome, cg *graph.CallGraph, entrySet map[string]bool) ports.UnitResult {
	if o.Unit == nil {
		ur := ports.UnitResult{
			Name:      o.Source.Name,
			Module:    parser.ModuleName(o.Source.Name),
			Imports:   []string{},
			Functions: []ports.FunctionResult{},
		}
		if o.Err != nil {
			ur.ParseError = o.Err.Reason
			ur.ErrorLine = o.Err.Line
			ur.ErrorColumn = o.Err.Column
		}
		return ur
	}

	functions := o.Unit.Functions()
	ur := ports.UnitResult{
		Name:      o.Unit.Name,
		Module:    o.Unit.Module,
		Imports:   o.Unit.Dependencies(),
		Functions: make([]ports.FunctionResult, 0, len(functions)),
	}
	for _, fn := range functions {
		ur.Functions = append(ur.Functions, functionResult(fn, cg, entrySet))
	}
	return ur
}

func functionResult(fn *parser.Function, cg *graph.CallGraph, entrySet map[string]bool) ports.FunctionResult {
	params := make([]ports.ParamResult, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, ports.ParamResult{
			Name:       p.Name,
			Kind:       string(p.Kind),
			HasDefault: p.HasDefault,
			Annotation: p.Annotation,
		})
	}
	decorators := append([]string{}, fn.Decorators...)

	fr := ports.FunctionResult{
		QualifiedName: fn.QualifiedName,
		Name:          fn.Name,
		Kind:          string(fn.Kind),
		Class:         fn.Class,
		Params:        params,
		Docstring:     fn.Docstring,
		Decorators:    decorators,
		LineSpan:      ports.LineSpan{Start: fn.Span.Start, End: fn.Span.End},
		IsAsync:       fn.IsAsync,
		IsEntryPoint:  entrySet[fn.ID()],
	}
	if cg != nil {
		fr.FanIn = cg.InDegree(fn)
		fr.FanOut = cg.OutDegree(fn)
	}
	return fr
}

func scoreReasons(r graph.Reasons) ports.ScoreReasons {
	return ports.ScoreReasons{
		InDegree:      r.InDegree,
		OutDegree:     r.OutDegree,
		HasDoc:        r.HasDoc,
		IsEntry:       r.IsEntry,
		ExternalCalls: r.ExternalCalls,
	}
}

func summarize(r ports.AnalysisResult, cg *graph.CallGraph) ports.Summary {
	s := ports.Summary{
		Units:           len(r.Units),
		Edges:           len(r.CallEdges),
		EntryPoints:     len(r.EntryPoints),
		RecursiveGroups: len(r.RecursiveGroups),
	}
	for _, u := range r.Units {
		if u.Failed() {
			s.FailedUnits++
		}
		s.Functions += len(u.Functions)
	}
	if cg != nil {
		s.ExternalCalls = cg.ExternalTotal()
	}
	return s
}
