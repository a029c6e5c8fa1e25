package history

import "time"

const SchemaVersion = 1

// Snapshot is the persisted summary of one analysis run. Only counts and the
// names of the top-ranked functions are stored, never source text.
type Snapshot struct {
	ID                  string    `json:"id"`
	SchemaVersion       int       `json:"schema_version"`
	Target              string    `json:"target"`
	Timestamp           time.Time `json:"timestamp"`
	Status              string    `json:"status"`
	UnitCount           int       `json:"unit_count"`
	FailedUnitCount     int       `json:"failed_unit_count"`
	FunctionCount       int       `json:"function_count"`
	EdgeCount           int       `json:"edge_count"`
	EntryPointCount     int       `json:"entry_point_count"`
	ExternalCallCount   int       `json:"external_call_count"`
	RecursiveGroupCount int       `json:"recursive_group_count"`
	AvgFanIn            float64   `json:"avg_fan_in"`
	AvgFanOut           float64   `json:"avg_fan_out"`
	MaxFanIn            int       `json:"max_fan_in"`
	MaxFanOut           int       `json:"max_fan_out"`
	TopFunctions        []string  `json:"top_functions"`
}

type TrendPoint struct {
	Timestamp         time.Time `json:"timestamp"`
	Status            string    `json:"status"`
	UnitCount         int       `json:"unit_count"`
	FailedUnitCount   int       `json:"failed_unit_count"`
	FunctionCount     int       `json:"function_count"`
	EdgeCount         int       `json:"edge_count"`
	ExternalCallCount int       `json:"external_call_count"`
	AvgFanIn          float64   `json:"avg_fan_in"`
	AvgFanOut         float64   `json:"avg_fan_out"`
	DeltaUnits        int       `json:"delta_units"`
	DeltaFunctions    int       `json:"delta_functions"`
	DeltaEdges        int       `json:"delta_edges"`
	DeltaExternal     int       `json:"delta_external"`
	DeltaAvgFanIn     float64   `json:"delta_avg_fan_in"`
	FunctionGrowthPct float64   `json:"function_growth_pct"`
	AvgExternal       float64   `json:"avg_external"`
	AvgFailedUnits    float64   `json:"avg_failed_units"`
	WindowHours       float64   `json:"window_hours"`
	// TopChanged reports whether the leading ranked function differs from the
	// previous snapshot.
	TopChanged bool `json:"top_changed"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Target        string       `json:"target"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	ScanCount     int          `json:"scan_count"`
	Points        []TrendPoint `json:"points"`
}
