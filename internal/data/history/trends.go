package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport turns snapshots (oldest first) into deltas against the
// previous run plus moving averages over window.
func BuildTrendReport(target string, snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("no snapshots available")
	}

	points := make([]TrendPoint, 0, len(snapshots))
	for i, current := range snapshots {
		point := TrendPoint{
			Timestamp:         current.Timestamp,
			Status:            current.Status,
			UnitCount:         current.UnitCount,
			FailedUnitCount:   current.FailedUnitCount,
			FunctionCount:     current.FunctionCount,
			EdgeCount:         current.EdgeCount,
			ExternalCallCount: current.ExternalCallCount,
			AvgFanIn:          current.AvgFanIn,
			AvgFanOut:         current.AvgFanOut,
		}

		if i > 0 {
			prev := snapshots[i-1]
			point.DeltaUnits = current.UnitCount - prev.UnitCount
			point.DeltaFunctions = current.FunctionCount - prev.FunctionCount
			point.DeltaEdges = current.EdgeCount - prev.EdgeCount
			point.DeltaExternal = current.ExternalCallCount - prev.ExternalCallCount
			point.DeltaAvgFanIn = round2(current.AvgFanIn - prev.AvgFanIn)
			if prev.FunctionCount > 0 {
				point.FunctionGrowthPct = round2(float64(point.DeltaFunctions) / float64(prev.FunctionCount) * 100)
			}
			point.TopChanged = leading(current.TopFunctions) != leading(prev.TopFunctions)
		}

		avgExternal, avgFailed := movingAverages(snapshots, i, window)
		point.AvgExternal = round2(avgExternal)
		point.AvgFailedUnits = round2(avgFailed)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Target:        normalizeTarget(target),
		Since:         snapshots[0].Timestamp,
		Until:         snapshots[len(snapshots)-1].Timestamp,
		Window:        window.String(),
		ScanCount:     len(points),
		Points:        points,
	}, nil
}

func movingAverages(snapshots []Snapshot, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(snapshots[index].ExternalCallCount), float64(snapshots[index].FailedUnitCount)
	}

	cutoff := snapshots[index].Timestamp.Add(-window)
	var externalTotal, failedTotal, count int
	for i := index; i >= 0; i-- {
		if snapshots[i].Timestamp.Before(cutoff) {
			break
		}
		externalTotal += snapshots[i].ExternalCallCount
		failedTotal += snapshots[i].FailedUnitCount
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(externalTotal) / float64(count), float64(failedTotal) / float64(count)
}

func leading(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
