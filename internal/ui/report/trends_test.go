package report

import (
	"strings"
	"testing"
	"time"

	"pyinsight/internal/data/history"
)

func TestRenderTrendTSV(t *testing.T) {
	report := history.TrendReport{
		SchemaVersion: 1,
		Target:        "/src/app",
		Since:         time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Until:         time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		Window:        "24h0m0s",
		ScanCount:     1,
		Points: []history.TrendPoint{
			{
				Timestamp:         time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
				Status:            "complete",
				UnitCount:         10,
				FunctionCount:     42,
				EdgeCount:         57,
				ExternalCallCount: 9,
				AvgFanIn:          1.2,
				AvgFanOut:         1.7,
				DeltaFunctions:    3,
				WindowHours:       24,
				TopChanged:        true,
			},
		},
	}

	out, err := RenderTrendTSV(report)
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}

	body := string(out)
	if !strings.Contains(body, "Timestamp\tStatus\tUnits") {
		t.Fatalf("missing header in output: %s", body)
	}
	if !strings.Contains(body, "2026-02-13T00:00:00Z\tcomplete\t10\t0\t42\t57\t9\t1.20\t1.70\t0\t3\t") {
		t.Fatalf("missing row values in output: %s", body)
	}
	if !strings.Contains(body, "\ttrue\t24.00\n") {
		t.Fatalf("missing trailing columns in output: %s", body)
	}
}

func TestRenderTrendJSON(t *testing.T) {
	report := history.TrendReport{
		SchemaVersion: 1,
		ScanCount:     2,
	}

	out, err := RenderTrendJSON(report)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if !strings.Contains(string(out), "\"scan_count\": 2") {
		t.Fatalf("missing scan_count in json: %s", string(out))
	}
}
