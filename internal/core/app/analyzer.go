package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pyinsight/internal/core/config"
	"pyinsight/internal/core/errors"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/engine/graph"
	"pyinsight/internal/engine/parser"
	"pyinsight/internal/engine/resolver"
	"pyinsight/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called once per parsed unit. It may be called from several
// goroutines at once.
type ProgressFunc func(done, total int)

// Analyzer runs the extraction pipeline: parse every unit concurrently,
// resolve calls, detect entry points, rank.
type Analyzer struct {
	parser   *parser.Parser
	workers  int
	weights  graph.Weights
	progress ProgressFunc
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{
		parser:  parser.NewParser(),
		workers: max(cfg.Analysis.Workers, 1),
		weights: WeightsFromConfig(cfg.Ranking),
	}
}

// WeightsFromConfig maps the [ranking] section onto ranker weights.
func WeightsFromConfig(r config.Ranking) graph.Weights {
	return graph.Weights{
		InDegree:   config.Weight(r.InDegreeWeight),
		OutDegree:  config.Weight(r.OutDegreeWeight),
		DocBonus:   config.Weight(r.DocBonus),
		EntryBonus: config.Weight(r.EntryBonus),
	}
}

// WithProgress returns a copy of the analyzer reporting parse progress to fn.
func (a *Analyzer) WithProgress(fn ProgressFunc) *Analyzer {
	cp := *a
	cp.progress = fn
	return &cp
}

// UnitOutcome is the parse result of one source: either Unit or Err is set.
type UnitOutcome struct {
	Source ports.Source
	Unit   *parser.Unit
	Err    *errors.ParseError
}

// Analysis holds everything one run produced. Outcomes follow input order.
type Analysis struct {
	Outcomes        []UnitOutcome
	Graph           *graph.CallGraph
	Diagnostics     []resolver.Diagnostic
	EntryPoints     []graph.EntryPoint
	Ranked          []graph.RankedFunction
	RecursiveGroups [][]string
}

// Units returns the successfully parsed units in input order.
func (a *Analysis) Units() []*parser.Unit {
	units := make([]*parser.Unit, 0, len(a.Outcomes))
	for _, o := range a.Outcomes {
		if o.Unit != nil {
			units = append(units, o.Unit)
		}
	}
	return units
}

func (a *Analysis) FailedCount() int {
	n := 0
	for _, o := range a.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func (a *Analysis) Status() ports.Status {
	failed := a.FailedCount()
	switch {
	case failed == 0:
		return ports.StatusComplete
	case failed == len(a.Outcomes):
		return ports.StatusFailed
	default:
		return ports.StatusPartial
	}
}

// Analyze runs the pipeline over sources. A unit with invalid syntax becomes
// a failed outcome; cancellation discards everything and returns ctx.Err().
func (a *Analyzer) Analyze(ctx context.Context, sources []ports.Source) (*Analysis, error) {
	ctx, span := observability.Tracer.Start(ctx, "Analyzer.Analyze",
		trace.WithAttributes(attribute.Int("units", len(sources))))
	defer span.End()

	if err := validateSources(sources); err != nil {
		return nil, err
	}

	start := time.Now()
	outcomes, err := a.parseAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	observability.AnalysisDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds())

	analysis := &Analysis{Outcomes: outcomes}
	units := analysis.Units()

	start = time.Now()
	res, err := resolver.NewResolver(units).Resolve(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve calls")
	}
	observability.AnalysisDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds())

	start = time.Now()
	cg := res.Graph
	entries := graph.DetectEntryPoints(cg)
	ranked := graph.Rank(cg, entries, a.weights)
	groups, err := cg.RecursiveGroups()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "detect recursion")
	}
	observability.AnalysisDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis.Graph = cg
	analysis.Diagnostics = res.Diagnostics
	analysis.EntryPoints = entries
	analysis.Ranked = ranked
	analysis.RecursiveGroups = groups

	edges := cg.Size()
	observability.GraphFunctions.Set(float64(len(cg.Functions())))
	observability.GraphEdges.Set(float64(edges))
	observability.ExternalCallsTotal.Add(float64(cg.ExternalTotal()))
	observability.AmbiguousCallsTotal.Add(float64(len(res.Diagnostics)))
	observability.AnalysesTotal.WithLabelValues(string(analysis.Status())).Inc()

	span.SetAttributes(
		attribute.Int("units.failed", analysis.FailedCount()),
		attribute.Int("functions", len(cg.Functions())),
		attribute.Int("edges", edges),
		attribute.Int("entry_points", len(entries)),
	)
	slog.Debug("analysis finished",
		"units", len(sources),
		"failed", analysis.FailedCount(),
		"functions", len(cg.Functions()),
		"edges", edges,
	)
	return analysis, nil
}

func (a *Analyzer) parseAll(ctx context.Context, sources []ports.Source) ([]UnitOutcome, error) {
	outcomes := make([]UnitOutcome, len(sources))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			unit, err := a.parser.ParseUnit(gctx, src.Name, []byte(src.Text))
			observability.ParsingDuration.Observe(time.Since(start).Seconds())

			switch pe, isParse := errors.AsParseError(err); {
			case err == nil:
				outcomes[i] = UnitOutcome{Source: src, Unit: unit}
				observability.UnitsParsedTotal.WithLabelValues("ok").Inc()
			case isParse:
				outcomes[i] = UnitOutcome{Source: src, Err: pe}
				observability.UnitsParsedTotal.WithLabelValues("failed").Inc()
				slog.Debug("unit failed to parse", "unit", src.Name, "line", pe.Line, "column", pe.Column, "reason", pe.Reason)
			default:
				return err
			}

			if a.progress != nil {
				a.progress(int(done.Add(1)), len(sources))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func validateSources(sources []ports.Source) error {
	if len(sources) == 0 {
		return errors.EmptyInput("no source units supplied")
	}
	seen := make(map[string]bool, len(sources))
	for i, src := range sources {
		if src.Name == "" {
			return errors.New(errors.CodeValidationError, fmt.Sprintf("source %d has no name", i))
		}
		if seen[src.Name] {
			return errors.AddContext(errors.New(errors.CodeValidationError, "duplicate unit name"), errors.CtxUnit, src.Name)
		}
		seen[src.Name] = true
	}
	return nil
}
