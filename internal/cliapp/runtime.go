package cliapp

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pyinsight/internal/api"
	coreapp "pyinsight/internal/core/app"
	"pyinsight/internal/core/config"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/data/history"
	"pyinsight/internal/shared/observability"
	"pyinsight/internal/shared/util"
	"pyinsight/internal/ui/report"
)

const (
	defaultConfigPath = config.DefaultPath
	trendLookback     = 30 * 24 * time.Hour
	trendWindow       = 24 * time.Hour
)

func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "pyinsight v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(stderr, opts.ui, opts.verbose)
	defer cleanupLogs()

	if err := execute(ctx, opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

var errAllUnitsFailed = stderrors.New("every unit failed to parse")

func execute(ctx context.Context, opts cliOptions, stdout, stderr io.Writer) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	format, err := applyOverrides(&opts, cfg)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	application, err := coreapp.New(cfg)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled || opts.trend {
		store, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			if history.IsCorruptError(err) {
				return fmt.Errorf("history database %s is corrupt, remove it to start fresh: %w", cfg.History.Path, err)
			}
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if cfg.History.Enabled {
			application.WithHistory(store)
		}
	}

	if opts.serve {
		return serve(ctx, cfg, application)
	}

	if len(opts.args) == 0 {
		return fmt.Errorf("a Python file or directory argument is required")
	}
	path := opts.args[0]

	if opts.trend {
		return printTrend(ctx, store, path, format, stdout)
	}

	if opts.progress && !opts.ui {
		application.WithProgress(newProgressReporter(stderr).Report)
	}

	result, err := application.AnalysisService().AnalyzePath(ctx, path, ports.AnalyzeOptions{TopN: cfg.Analysis.TopN})
	if err != nil {
		return err
	}

	if opts.ui {
		var trend *history.TrendReport
		if store != nil {
			if t, err := coreapp.HistoryTrend(ctx, store, coreapp.TargetFor(path), time.Now().Add(-trendLookback), trendWindow); err == nil {
				trend = &t
			}
		}
		return runUI(path, result, trend)
	}

	body, err := report.Render(result, format, report.Options{
		Target:  displayTarget(path),
		Version: versionString,
	})
	if err != nil {
		return err
	}
	if err := writeOutput(stdout, cfg.Output.Path, body); err != nil {
		return err
	}

	if result.Status == ports.StatusFailed {
		return errAllUnitsFailed
	}
	if result.Status == ports.StatusPartial {
		slog.Warn("some units failed to parse", "failed", result.Summary.FailedUnits, "units", result.Summary.Units)
	}
	return nil
}

// applyOverrides folds explicitly given flags into cfg and resolves the
// output format.
func applyOverrides(opts *cliOptions, cfg *config.Config) (report.Format, error) {
	if opts.serve && opts.ui {
		return "", fmt.Errorf("-serve and -ui cannot be used together")
	}
	if opts.serve && opts.trend {
		return "", fmt.Errorf("-serve and -trend cannot be used together")
	}

	if opts.set["format"] {
		cfg.Output.Format = opts.format
	}
	if opts.set["out"] {
		cfg.Output.Path = opts.outPath
	}
	if opts.set["top"] {
		if opts.top < 0 {
			return "", fmt.Errorf("-top must not be negative")
		}
		cfg.Analysis.TopN = opts.top
	}
	if opts.set["workers"] {
		if opts.workers <= 0 {
			return "", fmt.Errorf("-workers must be positive")
		}
		cfg.Analysis.Workers = opts.workers
	}
	if opts.set["include-tests"] {
		cfg.Analysis.IncludeTests = opts.includeTests
	}
	if opts.history {
		cfg.History.Enabled = true
	}

	return report.ParseFormat(cfg.Output.Format)
}

func serve(ctx context.Context, cfg *config.Config, application *coreapp.App) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		obs := api.NewObservabilityServer(addr)
		if err := obs.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	srv, err := api.NewServer(ctx, cfg, application.AnalysisService())
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func printTrend(ctx context.Context, store *history.Store, path string, format report.Format, stdout io.Writer) error {
	trend, err := coreapp.HistoryTrend(ctx, store, coreapp.TargetFor(path), time.Now().Add(-trendLookback), trendWindow)
	if err != nil {
		return err
	}
	var out []byte
	if format == report.FormatJSON {
		out, err = report.RenderTrendJSON(trend)
	} else {
		out, err = report.RenderTrendTSV(trend)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func writeOutput(stdout io.Writer, path string, body []byte) error {
	if path == "" {
		_, err := stdout.Write(body)
		return err
	}
	if err := util.WriteFileWithDirs(path, body, 0o644); err != nil {
		return fmt.Errorf("write output %q: %w", path, err)
	}
	slog.Info("wrote output", "path", path, "bytes", len(body))
	return nil
}

func displayTarget(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Base(path)
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func configureLogging(stderr io.Writer, uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	var closeFn func() = func() {}
	if uiMode {
		// Keep log lines out of the alternate screen.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyinsight", "pyinsight.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pyinsight", "pyinsight.log")
	}

	return "pyinsight.log"
}
