package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateAnalysis,
		validateRanking,
		validateExclude,
		validateServer,
		validateHistory,
		validateOutput,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Workers > 256 {
		return fmt.Errorf("analysis.workers must be <= 256, got %d", cfg.Analysis.Workers)
	}
	return nil
}

func validateRanking(cfg *Config) error {
	for _, w := range []struct {
		key   string
		value *float64
	}{
		{"ranking.in_degree_weight", cfg.Ranking.InDegreeWeight},
		{"ranking.out_degree_weight", cfg.Ranking.OutDegreeWeight},
		{"ranking.doc_bonus", cfg.Ranking.DocBonus},
		{"ranking.entry_bonus", cfg.Ranking.EntryBonus},
	} {
		v := Weight(w.value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number, got %g", w.key, v)
		}
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", w.key, v)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, group := range []struct {
		key      string
		patterns []string
	}{
		{"exclude.dirs", cfg.Exclude.Dirs},
		{"exclude.files", cfg.Exclude.Files},
	} {
		for i, pattern := range group.patterns {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s[%d] must not be empty", group.key, i)
			}
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s[%d] %q is not a valid glob: %w", group.key, i, pattern, err)
			}
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "markdown", "docs", "json", "mermaid", "tsv":
		return nil
	default:
		return fmt.Errorf("output.format must be one of: markdown, docs, json, mermaid, tsv; got %q", cfg.Output.Format)
	}
}
