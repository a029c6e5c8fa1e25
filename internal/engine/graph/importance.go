package graph

import (
	"sort"

	"pyinsight/internal/engine/parser"
)

// Weights parameterises the importance score. Pass it explicitly to Rank; no
// package state holds weights.
type Weights struct {
	InDegree   float64
	OutDegree  float64
	DocBonus   float64
	EntryBonus float64
}

// DefaultWeights lets call-graph centrality dominate the lexical bonuses.
func DefaultWeights() Weights {
	return Weights{
		InDegree:   0.45,
		OutDegree:  0.35,
		DocBonus:   0.1,
		EntryBonus: 0.1,
	}
}

type Reasons struct {
	InDegree      int
	OutDegree     int
	HasDoc        bool
	IsEntry       bool
	ExternalCalls int
}

type RankedFunction struct {
	Function *parser.Function
	Score    float64
	Reasons  Reasons
}

// CalculateImportanceScore combines normalised degrees with the lexical
// bonuses:
//
//	Score = w.InDegree*in/maxIn + w.OutDegree*out/maxOut + doc + entry
//
// A zero maximum zeroes its term.
func CalculateImportanceScore(r Reasons, maxIn, maxOut int, w Weights) float64 {
	score := 0.0
	if maxIn > 0 {
		score += w.InDegree * float64(r.InDegree) / float64(maxIn)
	}
	if maxOut > 0 {
		score += w.OutDegree * float64(r.OutDegree) / float64(maxOut)
	}
	if r.HasDoc {
		score += w.DocBonus
	}
	if r.IsEntry {
		score += w.EntryBonus
	}
	return score
}

// Rank scores every function of the graph and returns them in a total order:
// score descending, then qualified name, then unit name.
func Rank(cg *CallGraph, entries []EntryPoint, w Weights) []RankedFunction {
	entrySet := EntrySet(entries)
	functions := cg.Functions()

	reasons := make([]Reasons, len(functions))
	maxIn, maxOut := 0, 0
	for i, fn := range functions {
		reasons[i] = Reasons{
			InDegree:      cg.InDegree(fn),
			OutDegree:     cg.OutDegree(fn),
			HasDoc:        fn.HasDoc(),
			IsEntry:       entrySet[fn.ID()],
			ExternalCalls: cg.ExternalCount(fn),
		}
		maxIn = max(maxIn, reasons[i].InDegree)
		maxOut = max(maxOut, reasons[i].OutDegree)
	}

	ranked := make([]RankedFunction, len(functions))
	for i, fn := range functions {
		ranked[i] = RankedFunction{
			Function: fn,
			Score:    CalculateImportanceScore(reasons[i], maxIn, maxOut, w),
			Reasons:  reasons[i],
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Function.QualifiedName != b.Function.QualifiedName {
			return a.Function.QualifiedName < b.Function.QualifiedName
		}
		return a.Function.Unit().Name < b.Function.Unit().Name
	})
	return ranked
}
