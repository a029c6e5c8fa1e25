package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"pyinsight/internal/core/config"
	"pyinsight/internal/core/errors"
	"pyinsight/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	srcA = `import b

def main():
    """Entry."""
    b.helper()
    local()

def local():
    return 1

if __name__ == "__main__":
    main()
`
	srcB = `def helper():
    return compute(2)

def compute(x):
    return x * 2
`
	srcBad = "def broken(:\n    pass\n"
)

func mixedBatch() []ports.Source {
	return []ports.Source{
		{Name: "a.py", Text: srcA},
		{Name: "bad.py", Text: srcBad},
		{Name: "b.py", Text: srcB},
	}
}

func testAnalyzer(workers int) *Analyzer {
	cfg := config.DefaultConfig()
	cfg.Analysis.Workers = workers
	return NewAnalyzer(cfg)
}

func TestAnalyzer_MixedBatch(t *testing.T) {
	analysis, err := testAnalyzer(4).Analyze(context.Background(), mixedBatch())
	require.NoError(t, err)

	assert.Equal(t, ports.StatusPartial, analysis.Status())
	assert.Equal(t, 1, analysis.FailedCount())
	require.Len(t, analysis.Outcomes, 3)
	assert.Equal(t, "bad.py", analysis.Outcomes[1].Source.Name)
	require.NotNil(t, analysis.Outcomes[1].Err)
	assert.Equal(t, 1, analysis.Outcomes[1].Err.Line)
	assert.Len(t, analysis.Units(), 2)

	result := Assemble(analysis)
	assert.Equal(t, ports.StatusPartial, result.Status)

	names := make([]string, 0, len(result.Units))
	for _, u := range result.Units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"a.py", "bad.py", "b.py"}, names)

	bad, ok := result.Unit("bad.py")
	require.True(t, ok)
	assert.True(t, bad.Failed())
	assert.Empty(t, bad.Functions)
	assert.Equal(t, "bad", bad.Module)

	assert.Equal(t, []ports.CallEdgeResult{
		{CallerUnit: "a.py", Caller: "main", CalleeUnit: "a.py", Callee: "local", Calls: 1},
		{CallerUnit: "a.py", Caller: "main", CalleeUnit: "b.py", Callee: "helper", Calls: 1},
		{CallerUnit: "b.py", Caller: "helper", CalleeUnit: "b.py", Callee: "compute", Calls: 1},
	}, result.CallEdges)

	assert.Equal(t, []ports.EntryPointResult{
		{Unit: "a.py", QualifiedName: "main", Reasons: []string{"no_callers", "main_guard"}},
	}, result.EntryPoints)

	ranked := make([]string, 0, len(result.RankedFunctions))
	for _, r := range result.RankedFunctions {
		ranked = append(ranked, r.QualifiedName)
	}
	assert.Equal(t, []string{"helper", "main", "compute", "local"}, ranked)
	assert.InDelta(t, 0.625, result.RankedFunctions[0].Score, 1e-9)
	assert.InDelta(t, 0.55, result.RankedFunctions[1].Score, 1e-9)

	a, _ := result.Unit("a.py")
	assert.Equal(t, []string{"b"}, a.Imports)
	require.Len(t, a.Functions, 2)
	assert.Equal(t, "Entry.", a.Functions[0].Docstring)
	assert.True(t, a.Functions[0].IsEntryPoint)
	assert.Equal(t, 2, a.Functions[0].FanOut)
	assert.Equal(t, 1, a.Functions[1].FanIn)

	assert.Equal(t, ports.Summary{
		Units: 3, FailedUnits: 1, Functions: 4, Edges: 3, ExternalCalls: 0, EntryPoints: 1,
	}, result.Summary)
	assert.Empty(t, result.ExternalCalls)
	assert.Empty(t, result.RecursiveGroups)
	assert.Empty(t, result.Diagnostics)
}

func TestAnalyzer_AllFailed(t *testing.T) {
	analysis, err := testAnalyzer(2).Analyze(context.Background(), []ports.Source{
		{Name: "x.py", Text: srcBad},
		{Name: "y.py", Text: "class :\n"},
	})
	require.NoError(t, err)

	result := Assemble(analysis)
	assert.Equal(t, ports.StatusFailed, result.Status)
	assert.Equal(t, 2, result.Summary.FailedUnits)
	assert.Empty(t, result.RankedFunctions)
	assert.Empty(t, result.EntryPoints)
}

func TestAnalyzer_InvalidInput(t *testing.T) {
	a := testAnalyzer(1)
	ctx := context.Background()

	_, err := a.Analyze(ctx, nil)
	assert.True(t, errors.IsCode(err, errors.CodeEmptyInput), "got %v", err)

	_, err = a.Analyze(ctx, []ports.Source{{Name: "a.py"}, {Name: "a.py"}})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)

	_, err = a.Analyze(ctx, []ports.Source{{Name: "", Text: "x = 1"}})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
}

func TestAnalyzer_EmptyUnitIsComplete(t *testing.T) {
	analysis, err := testAnalyzer(1).Analyze(context.Background(), []ports.Source{{Name: "empty.py", Text: ""}})
	require.NoError(t, err)

	result := Assemble(analysis)
	assert.Equal(t, ports.StatusComplete, result.Status)
	assert.Equal(t, 0, result.Summary.Functions)
}

func TestAnalyzer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analysis, err := testAnalyzer(2).Analyze(ctx, mixedBatch())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, analysis)
}

func TestAnalyzer_DeterministicAcrossWorkerCounts(t *testing.T) {
	var outputs []string
	for _, workers := range []int{1, 2, 8} {
		analysis, err := testAnalyzer(workers).Analyze(context.Background(), mixedBatch())
		require.NoError(t, err)
		data, err := json.Marshal(Assemble(analysis))
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestAnalyzer_Progress(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
		last  int
	)
	a := testAnalyzer(3).WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		last = max(last, done)
		assert.Equal(t, 3, total)
	})

	_, err := a.Analyze(context.Background(), mixedBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, last)
}

func TestAnalyzer_CustomWeights(t *testing.T) {
	cfg := config.DefaultConfig()
	zero := 0.0
	one := 1.0
	cfg.Ranking.InDegreeWeight = &zero
	cfg.Ranking.OutDegreeWeight = &one
	cfg.Ranking.DocBonus = &zero
	cfg.Ranking.EntryBonus = &zero

	analysis, err := NewAnalyzer(cfg).Analyze(context.Background(), mixedBatch())
	require.NoError(t, err)
	require.NotEmpty(t, analysis.Ranked)
	assert.Equal(t, "main", analysis.Ranked[0].Function.QualifiedName)
	assert.InDelta(t, 1.0, analysis.Ranked[0].Score, 1e-9)
}

func TestAnalyzer_RecursionAndExternal(t *testing.T) {
	analysis, err := testAnalyzer(1).Analyze(context.Background(), []ports.Source{{Name: "r.py", Text: `
import os

def ping(n):
    print(n)
    return pong(n - 1)

def pong(n):
    os.path.join("a", "b")
    return ping(n)
`}})
	require.NoError(t, err)

	result := Assemble(analysis)
	assert.Equal(t, [][]string{{"r.py::ping", "r.py::pong"}}, result.RecursiveGroups)
	assert.Equal(t, []ports.ExternalCallResult{{Name: "os.path.join", Count: 1}, {Name: "print", Count: 1}}, result.ExternalCalls)
	assert.Equal(t, 2, result.Summary.ExternalCalls)
	assert.Empty(t, result.EntryPoints, "mutual recursion leaves no function without callers")
}
