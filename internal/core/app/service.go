package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"pyinsight/internal/core/errors"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

func (s *analysisService) Analyze(ctx context.Context, sources []ports.Source, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	return s.run(ctx, "sources", sources, opts)
}

func (s *analysisService) AnalyzeFile(ctx context.Context, path string, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	sources, err := s.app.loader.LoadFile(path)
	if err != nil {
		return ports.AnalysisResult{}, errors.AddContext(err, errors.CtxOperation, "load_file")
	}
	return s.run(ctx, target(path), sources, opts)
}

func (s *analysisService) AnalyzeDirectory(ctx context.Context, path string, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	sources, err := s.app.loader.LoadDirectory(ctx, path)
	if err != nil {
		return ports.AnalysisResult{}, errors.AddContext(err, errors.CtxOperation, "load_directory")
	}
	return s.run(ctx, target(path), sources, opts)
}

func (s *analysisService) AnalyzeUpload(ctx context.Context, filename string, content []byte, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	sources, err := s.app.loader.FromUpload(filename, content)
	if err != nil {
		return ports.AnalysisResult{}, errors.AddContext(err, errors.CtxOperation, "load_upload")
	}
	return s.run(ctx, "upload:"+sources[0].Name, sources, opts)
}

func (s *analysisService) AnalyzePath(ctx context.Context, path string, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	sources, err := s.app.loader.LoadPath(ctx, path)
	if err != nil {
		return ports.AnalysisResult{}, errors.AddContext(err, errors.CtxOperation, "load_path")
	}
	return s.run(ctx, target(path), sources, opts)
}

func (s *analysisService) run(ctx context.Context, name string, sources []ports.Source, opts ports.AnalyzeOptions) (ports.AnalysisResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.Analyze",
		trace.WithAttributes(attribute.String("target", name), attribute.Int("top_n", opts.TopN)))
	defer span.End()

	if s.app == nil {
		return ports.AnalysisResult{}, fmt.Errorf("app is required")
	}
	analysis, err := s.app.analyzer.Analyze(ctx, sources)
	if err != nil {
		return ports.AnalysisResult{}, err
	}

	result := Assemble(analysis)
	if opts.TopN > 0 {
		result.KeyFunctions = SelectKeyFunctions(analysis, opts.TopN)
	}
	span.SetAttributes(attribute.String("status", string(result.Status)))

	if s.app.history != nil {
		snapshot := SnapshotFromResult(name, result)
		if err := s.app.history.SaveSnapshot(ctx, snapshot); err != nil {
			slog.Warn("failed to save history snapshot", "target", name, "error", err)
		}
	}
	return result, nil
}

func target(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(path)
}
