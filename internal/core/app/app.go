package app

import (
	"pyinsight/internal/core/config"
	"pyinsight/internal/core/ports"
)

// App wires the loader, the analysis pipeline and the optional history store
// behind the AnalysisService port.
type App struct {
	Config   *config.Config
	loader   *Loader
	analyzer *Analyzer
	history  ports.HistoryStore
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loader, err := NewLoader(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		loader:   loader,
		analyzer: NewAnalyzer(cfg),
	}, nil
}

// WithHistory records a snapshot of every successful analysis in store.
func (a *App) WithHistory(store ports.HistoryStore) *App {
	a.history = store
	return a
}

// WithProgress reports per-unit parse progress to fn.
func (a *App) WithProgress(fn ProgressFunc) *App {
	a.analyzer = a.analyzer.WithProgress(fn)
	return a
}

func (a *App) Loader() *Loader {
	return a.loader
}

func (a *App) Analyzer() *Analyzer {
	return a.analyzer
}

func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}
