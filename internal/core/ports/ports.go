package ports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pyinsight/internal/data/history"
)

// Source is one unit of Python text handed to the analyzer. Names must be
// unique within a request.
type Source struct {
	Name string
	Text string
}

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

type LineSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type ParamResult struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	HasDefault bool   `json:"has_default"`
	Annotation string `json:"annotation,omitempty"`
}

type FunctionResult struct {
	QualifiedName string        `json:"qualified_name"`
	Name          string        `json:"name"`
	Kind          string        `json:"kind"`
	Class         string        `json:"class,omitempty"`
	Params        []ParamResult `json:"params"`
	Docstring     string        `json:"docstring"`
	Decorators    []string      `json:"decorators"`
	LineSpan      LineSpan      `json:"line_span"`
	IsAsync       bool          `json:"is_async"`
	FanIn         int           `json:"fan_in"`
	FanOut        int           `json:"fan_out"`
	IsEntryPoint  bool          `json:"is_entry_point"`
}

// UnitResult is the per-unit section of a result. A unit that failed to
// parse carries ParseError and no functions.
type UnitResult struct {
	Name        string           `json:"-"`
	Module      string           `json:"module"`
	Imports     []string         `json:"imports"`
	Functions   []FunctionResult `json:"functions"`
	ParseError  string           `json:"parse_error,omitempty"`
	ErrorLine   int              `json:"error_line,omitempty"`
	ErrorColumn int              `json:"error_column,omitempty"`
}

func (u UnitResult) Failed() bool {
	return u.ParseError != ""
}

// UnitResults encodes as a JSON object keyed by unit name that keeps slice
// order.
type UnitResults []UnitResult

func (u UnitResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, unit := range u {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(unit.Name)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(unit)
		if err != nil {
			return nil, fmt.Errorf("encode unit %s: %w", unit.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (u *UnitResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*u = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("units: expected object, got %v", tok)
	}

	out := make(UnitResults, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var unit UnitResult
		if err := dec.Decode(&unit); err != nil {
			return fmt.Errorf("decode unit %s: %w", name, err)
		}
		unit.Name = name
		out = append(out, unit)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*u = out
	return nil
}

type EntryPointResult struct {
	Unit          string   `json:"unit"`
	QualifiedName string   `json:"qualified_name"`
	Reasons       []string `json:"reasons"`
}

type ScoreReasons struct {
	InDegree      int  `json:"in_degree"`
	OutDegree     int  `json:"out_degree"`
	HasDoc        bool `json:"has_doc"`
	IsEntry       bool `json:"is_entry"`
	ExternalCalls int  `json:"external_calls"`
}

type RankedResult struct {
	Unit          string       `json:"unit"`
	QualifiedName string       `json:"qualified_name"`
	Score         float64      `json:"score"`
	Reasons       ScoreReasons `json:"reasons"`
}

type CallEdgeResult struct {
	CallerUnit string `json:"caller_unit"`
	Caller     string `json:"caller"`
	CalleeUnit string `json:"callee_unit"`
	Callee     string `json:"callee"`
	Calls      int    `json:"calls"`
}

type ExternalCallResult struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DiagnosticResult reports a call that matched several functions and was
// left without an edge.
type DiagnosticResult struct {
	Unit       string   `json:"unit"`
	Caller     string   `json:"caller"`
	Call       string   `json:"call"`
	Line       int      `json:"line"`
	Candidates []string `json:"candidates"`
}

type Summary struct {
	Units           int `json:"units"`
	FailedUnits     int `json:"failed_units"`
	Functions       int `json:"functions"`
	Edges           int `json:"edges"`
	ExternalCalls   int `json:"external_calls"`
	EntryPoints     int `json:"entry_points"`
	RecursiveGroups int `json:"recursive_groups"`
}

// KeyFunction is the facts packet for one top-ranked function: what an
// explanation layer receives alongside a user question.
type KeyFunction struct {
	Unit          string       `json:"unit"`
	QualifiedName string       `json:"qualified_name"`
	Name          string       `json:"name"`
	Score         float64      `json:"score"`
	Reasons       ScoreReasons `json:"reasons"`
	Docstring     string       `json:"docstring"`
	Code          string       `json:"code"`
	LineSpan      LineSpan     `json:"line_span"`
	EntryChain    []string     `json:"entry_chain,omitempty"`
}

type AnalysisResult struct {
	Status          Status               `json:"status"`
	Units           UnitResults          `json:"units"`
	EntryPoints     []EntryPointResult   `json:"entry_points"`
	RankedFunctions []RankedResult       `json:"ranked_functions"`
	CallEdges       []CallEdgeResult     `json:"call_edges"`
	ExternalCalls   []ExternalCallResult `json:"external_calls"`
	RecursiveGroups [][]string           `json:"recursive_groups"`
	Diagnostics     []DiagnosticResult   `json:"diagnostics"`
	Summary         Summary              `json:"summary"`
	KeyFunctions    []KeyFunction        `json:"key_functions,omitempty"`
}

// Unit looks up a unit section by name.
func (r AnalysisResult) Unit(name string) (UnitResult, bool) {
	for _, u := range r.Units {
		if u.Name == name {
			return u, true
		}
	}
	return UnitResult{}, false
}

// AnalyzeOptions tunes one analysis request. TopN > 0 attaches key functions.
type AnalyzeOptions struct {
	TopN int
}

// AnalysisService is the driving port shared by the CLI and the HTTP API.
type AnalysisService interface {
	Analyze(ctx context.Context, sources []Source, opts AnalyzeOptions) (AnalysisResult, error)
	AnalyzeFile(ctx context.Context, path string, opts AnalyzeOptions) (AnalysisResult, error)
	AnalyzeDirectory(ctx context.Context, path string, opts AnalyzeOptions) (AnalysisResult, error)
	AnalyzeUpload(ctx context.Context, filename string, content []byte, opts AnalyzeOptions) (AnalysisResult, error)
	AnalyzePath(ctx context.Context, path string, opts AnalyzeOptions) (AnalysisResult, error)
}

// HistoryStore abstracts snapshot persistence for trend reporting.
type HistoryStore interface {
	SaveSnapshot(ctx context.Context, snapshot history.Snapshot) error
	LoadSnapshots(ctx context.Context, target string, since time.Time) ([]history.Snapshot, error)
}
