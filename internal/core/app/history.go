package app

import (
	"context"
	"time"

	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"
	"pyinsight/internal/engine/parser"
)

const snapshotTopFunctions = 5

// SnapshotFromResult reduces a result to the counts kept in history.
func SnapshotFromResult(target string, r ports.AnalysisResult) history.Snapshot {
	s := history.Snapshot{
		Target:              target,
		Timestamp:           time.Now().UTC(),
		Status:              string(r.Status),
		UnitCount:           r.Summary.Units,
		FailedUnitCount:     r.Summary.FailedUnits,
		FunctionCount:       r.Summary.Functions,
		EdgeCount:           r.Summary.Edges,
		EntryPointCount:     r.Summary.EntryPoints,
		ExternalCallCount:   r.Summary.ExternalCalls,
		RecursiveGroupCount: r.Summary.RecursiveGroups,
		TopFunctions:        make([]string, 0, snapshotTopFunctions),
	}

	var totalIn, totalOut int
	for _, u := range r.Units {
		for _, fn := range u.Functions {
			totalIn += fn.FanIn
			totalOut += fn.FanOut
			s.MaxFanIn = max(s.MaxFanIn, fn.FanIn)
			s.MaxFanOut = max(s.MaxFanOut, fn.FanOut)
		}
	}
	if r.Summary.Functions > 0 {
		s.AvgFanIn = float64(totalIn) / float64(r.Summary.Functions)
		s.AvgFanOut = float64(totalOut) / float64(r.Summary.Functions)
	}

	for i, ranked := range r.RankedFunctions {
		if i == snapshotTopFunctions {
			break
		}
		s.TopFunctions = append(s.TopFunctions, parser.FunctionID(ranked.Unit, ranked.QualifiedName))
	}
	return s
}

// HistoryTrend loads target's snapshots since the given time and builds a
// trend report with moving averages over window.
func HistoryTrend(ctx context.Context, store ports.HistoryStore, target string, since time.Time, window time.Duration) (history.TrendReport, error) {
	snapshots, err := store.LoadSnapshots(ctx, target, since)
	if err != nil {
		return history.TrendReport{}, err
	}
	return history.BuildTrendReport(target, snapshots, window)
}

// TargetFor normalizes a path into the history key used by the service.
func TargetFor(path string) string {
	return target(path)
}
