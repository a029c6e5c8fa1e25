package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"pyinsight/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tStatus\tUnits\tFailedUnits\tFunctions\tEdges\tExternalCalls\tAvgFanIn\tAvgFanOut\tDeltaUnits\tDeltaFunctions\tDeltaEdges\tDeltaExternal\tDeltaAvgFanIn\tFunctionGrowthPct\tAvgExternal\tAvgFailedUnits\tTopChanged\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%t\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.Status,
			point.UnitCount,
			point.FailedUnitCount,
			point.FunctionCount,
			point.EdgeCount,
			point.ExternalCallCount,
			point.AvgFanIn,
			point.AvgFanOut,
			point.DeltaUnits,
			point.DeltaFunctions,
			point.DeltaEdges,
			point.DeltaExternal,
			point.DeltaAvgFanIn,
			point.FunctionGrowthPct,
			point.AvgExternal,
			point.AvgFailedUnits,
			point.TopChanged,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
