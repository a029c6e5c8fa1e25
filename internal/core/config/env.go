package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYINSIGHT_[SECTION]_[KEY] (e.g., PYINSIGHT_ANALYSIS_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Analysis
	setEnvInt(&cfg.Analysis.Workers, "PYINSIGHT_ANALYSIS_WORKERS")
	setEnvInt(&cfg.Analysis.TopN, "PYINSIGHT_ANALYSIS_TOP_N")
	setEnvBool(&cfg.Analysis.IncludeTests, "PYINSIGHT_ANALYSIS_INCLUDE_TESTS")
	setEnvInt64(&cfg.Analysis.MaxFileBytes, "PYINSIGHT_ANALYSIS_MAX_FILE_BYTES")

	// Ranking
	setEnvWeight(&cfg.Ranking.InDegreeWeight, "PYINSIGHT_RANKING_IN_DEGREE_WEIGHT")
	setEnvWeight(&cfg.Ranking.OutDegreeWeight, "PYINSIGHT_RANKING_OUT_DEGREE_WEIGHT")
	setEnvWeight(&cfg.Ranking.DocBonus, "PYINSIGHT_RANKING_DOC_BONUS")
	setEnvWeight(&cfg.Ranking.EntryBonus, "PYINSIGHT_RANKING_ENTRY_BONUS")

	// Server
	setEnvString(&cfg.Server.Address, "PYINSIGHT_SERVER_ADDRESS")
	setEnvInt64(&cfg.Server.MaxUploadBytes, "PYINSIGHT_SERVER_MAX_UPLOAD_BYTES")
	setEnvBool(&cfg.Server.RateLimit.Enabled, "PYINSIGHT_SERVER_RATE_LIMIT_ENABLED")
	setEnvInt(&cfg.Server.RateLimit.RequestsPerMinute, "PYINSIGHT_SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "PYINSIGHT_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PYINSIGHT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "PYINSIGHT_OBSERVABILITY_SERVICE_NAME")

	// History
	setEnvBool(&cfg.History.Enabled, "PYINSIGHT_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "PYINSIGHT_HISTORY_PATH")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvWeight(target **float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &f
		}
	}
}
