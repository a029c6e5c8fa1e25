package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyinsight_parsing_seconds",
		Help:    "Time spent parsing one Python unit.",
		Buckets: prometheus.DefBuckets,
	})

	UnitsParsedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyinsight_units_parsed_total",
		Help: "Units processed by the parser, by outcome.",
	}, []string{"status"})

	ParsersInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyinsight_parsers_in_use",
		Help: "Tree-sitter parsers currently leased from the pool.",
	})

	ParsersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyinsight_parsers_created_total",
		Help: "Tree-sitter parsers allocated because the pool was empty.",
	})

	GraphFunctions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyinsight_graph_functions",
		Help: "Functions in the most recent call graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyinsight_graph_edges",
		Help: "Call edges in the most recent call graph.",
	})

	ExternalCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyinsight_external_calls_total",
		Help: "Call sites that resolved to no analyzed function.",
	})

	AmbiguousCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyinsight_ambiguous_calls_total",
		Help: "Call sites dropped because several functions matched.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyinsight_analysis_seconds",
		Help:    "Time spent in each analysis stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyinsight_analyses_total",
		Help: "Completed analyses by result status.",
	}, []string{"status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyinsight_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyinsight_http_rate_limited_total",
		Help: "HTTP requests rejected by the per-client rate limiter.",
	})
)
