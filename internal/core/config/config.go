package config

import (
	"runtime"
	"strings"
)

type Config struct {
	Version       int           `toml:"version"`
	Analysis      Analysis      `toml:"analysis"`
	Ranking       Ranking       `toml:"ranking"`
	Exclude       Exclude       `toml:"exclude"`
	Server        Server        `toml:"server"`
	Observability Observability `toml:"observability"`
	History       History       `toml:"history"`
	Output        Output        `toml:"output"`
}

type Analysis struct {
	Workers      int   `toml:"workers"`
	TopN         int   `toml:"top_n"`
	IncludeTests bool  `toml:"include_tests"`
	MaxFileBytes int64 `toml:"max_file_bytes"`
}

// Ranking holds the importance weights. Pointers distinguish an explicit zero
// from an omitted key.
type Ranking struct {
	InDegreeWeight  *float64 `toml:"in_degree_weight"`
	OutDegreeWeight *float64 `toml:"out_degree_weight"`
	DocBonus        *float64 `toml:"doc_bonus"`
	EntryBonus      *float64 `toml:"entry_bonus"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Server struct {
	Address        string    `toml:"address"`
	MaxUploadBytes int64     `toml:"max_upload_bytes"`
	RateLimit      RateLimit `toml:"rate_limit"`
}

type RateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

const (
	DefaultInDegreeWeight  = 0.45
	DefaultOutDegreeWeight = 0.35
	DefaultDocBonus        = 0.1
	DefaultEntryBonus      = 0.1
)

var defaultExcludeDirs = []string{".git", ".hg", "__pycache__", ".venv", "venv", ".tox", "node_modules", "build", "dist"}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = runtime.NumCPU()
	}
	if cfg.Analysis.TopN <= 0 {
		cfg.Analysis.TopN = 10
	}
	if cfg.Analysis.MaxFileBytes <= 0 {
		cfg.Analysis.MaxFileBytes = 2 << 20
	}

	cfg.Ranking.InDegreeWeight = withDefault(cfg.Ranking.InDegreeWeight, DefaultInDegreeWeight)
	cfg.Ranking.OutDegreeWeight = withDefault(cfg.Ranking.OutDegreeWeight, DefaultOutDegreeWeight)
	cfg.Ranking.DocBonus = withDefault(cfg.Ranking.DocBonus, DefaultDocBonus)
	cfg.Ranking.EntryBonus = withDefault(cfg.Ranking.EntryBonus, DefaultEntryBonus)

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8000"
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		cfg.Server.RateLimit.RequestsPerMinute = 60
	}
	if cfg.Server.RateLimit.Burst <= 0 {
		cfg.Server.RateLimit.Burst = 10
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "pyinsight"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/history.db"
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "markdown"
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
}

func withDefault(v *float64, def float64) *float64 {
	if v != nil {
		return v
	}
	return &def
}

// Weight returns the value behind a ranking pointer, treating nil as zero.
func Weight(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
