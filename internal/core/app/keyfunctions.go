package app

import (
	"pyinsight/internal/core/ports"
	"pyinsight/internal/engine/graph"
	"pyinsight/internal/engine/parser"
)

// SelectKeyFunctions returns the topN highest-ranked functions with their
// source text. topN <= 0 selects nothing.
func SelectKeyFunctions(a *Analysis, topN int) []ports.KeyFunction {
	if a == nil || topN <= 0 {
		return nil
	}
	n := min(topN, len(a.Ranked))
	out := make([]ports.KeyFunction, 0, n)
	for _, r := range a.Ranked[:n] {
		fn := r.Function
		out = append(out, ports.KeyFunction{
			Unit:          fn.Unit().Name,
			QualifiedName: fn.QualifiedName,
			Name:          fn.Name,
			Score:         r.Score,
			Reasons:       scoreReasons(r.Reasons),
			Docstring:     fn.Docstring,
			Code:          fn.Unit().Snippet(fn.Span),
			LineSpan:      ports.LineSpan{Start: fn.Span.Start, End: fn.Span.End},
			EntryChain:    entryChain(a.Graph, a.EntryPoints, fn),
		})
	}
	return out
}

// entryChain is the shortest call path from any entry point to fn. Entry
// points themselves, and functions no entry reaches, get no chain.
func entryChain(cg *graph.CallGraph, entries []graph.EntryPoint, fn *parser.Function) []string {
	if cg == nil || graph.EntrySet(entries)[fn.ID()] {
		return nil
	}
	var best []string
	for _, e := range entries {
		chain := cg.CallChain(e.Function.ID(), fn.ID())
		if len(chain) == 0 {
			continue
		}
		if best == nil || len(chain) < len(best) {
			best = chain
		}
	}
	return best
}
