package cliapp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyinsight/internal/core/config"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/ui/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliMainSrc = `import helpers

def main():
    """Entry point."""
    helpers.greet()

if __name__ == "__main__":
    main()
`

const cliHelpersSrc = `def greet():
    print("hi")
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(cliMainSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"), []byte(cliHelpersSrc), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-format", "json", "-top", "3", "-include-tests", "src"})
	require.NoError(t, err)

	assert.Equal(t, "json", opts.format)
	assert.Equal(t, 3, opts.top)
	assert.True(t, opts.includeTests)
	assert.Equal(t, []string{"src"}, opts.args)
	assert.True(t, opts.set["format"])
	assert.False(t, opts.set["workers"])
	assert.Equal(t, defaultConfigPath, opts.configPath)
}

func TestParseOptions_UnknownFlag(t *testing.T) {
	_, err := parseOptions([]string{"-nope"})
	require.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	t.Run("explicit flags win", func(t *testing.T) {
		opts, err := parseOptions([]string{"-format", "tsv", "-top", "0", "-workers", "3", "-history", "x.py"})
		require.NoError(t, err)
		cfg := config.DefaultConfig()

		format, err := applyOverrides(&opts, cfg)
		require.NoError(t, err)
		assert.Equal(t, report.FormatTSV, format)
		assert.Equal(t, 0, cfg.Analysis.TopN)
		assert.Equal(t, 3, cfg.Analysis.Workers)
		assert.True(t, cfg.History.Enabled)
	})

	t.Run("config kept without flags", func(t *testing.T) {
		opts, err := parseOptions([]string{"x.py"})
		require.NoError(t, err)
		cfg := config.DefaultConfig()
		cfg.Analysis.TopN = 4

		format, err := applyOverrides(&opts, cfg)
		require.NoError(t, err)
		assert.Equal(t, report.FormatMarkdown, format)
		assert.Equal(t, 4, cfg.Analysis.TopN)
	})

	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "serve and ui", args: []string{"-serve", "-ui"}, msg: "cannot be used together"},
		{name: "serve and trend", args: []string{"-serve", "-trend"}, msg: "cannot be used together"},
		{name: "negative top", args: []string{"-top", "-1"}, msg: "-top"},
		{name: "zero workers", args: []string{"-workers", "0"}, msg: "-workers"},
		{name: "bad format", args: []string{"-format", "sarif"}, msg: "unknown output format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseOptions(tc.args)
			require.NoError(t, err)
			_, err = applyOverrides(&opts, config.DefaultConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "pyinsight v"+versionString+"\n", stdout)
}

func TestRun_BadFlag(t *testing.T) {
	code, _, _ := runCLI(t, "-nope")
	assert.Equal(t, 2, code)
}

func TestRun_JSONToStdout(t *testing.T) {
	dir := writeProject(t)
	code, stdout, stderr := runCLI(t, "-format", "json", "-top", "1", dir)
	require.Equal(t, 0, code, stderr)

	var result ports.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, ports.StatusComplete, result.Status)
	require.Len(t, result.Units, 2)
	assert.Equal(t, "helpers.py", result.Units[0].Name)
	require.Len(t, result.KeyFunctions, 1)
}

func TestRun_MarkdownToFile(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(t.TempDir(), "reports", "report.md")

	code, stdout, stderr := runCLI(t, "-format", "markdown", "-out", out, filepath.Join(dir, "main.py"))
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "# Analysis Report")
	assert.Contains(t, body, "# 📄 Documentation for `main.py`")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.py"), []byte("def broken(:\n"), 0o644))

	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "no path", args: []string{}, msg: "argument is required"},
		{name: "missing", args: []string{filepath.Join(dir, "missing.py")}, msg: "path does not exist"},
		{name: "not python", args: []string{filepath.Join(dir, "notes.txt")}, msg: "only .py files"},
		{name: "missing config", args: []string{"-config", filepath.Join(dir, "none.toml"), dir}, msg: "load config"},
		{name: "all failed", args: []string{"-format", "json", filepath.Join(dir, "broken.py")}, msg: "every unit failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tc.args...)
			assert.Equal(t, 1, code)
			assert.True(t, strings.HasPrefix(stderr, "error: ") || strings.Contains(stderr, "\nerror: "), stderr)
			assert.Contains(t, stderr, tc.msg)
		})
	}
}

func TestRun_HistoryAndTrend(t *testing.T) {
	dir := writeProject(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfgPath := filepath.Join(t.TempDir(), "pyinsight.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[history]\npath = \""+filepath.ToSlash(dbPath)+"\"\n"), 0o644))

	code, _, stderr := runCLI(t, "-config", cfgPath, "-history", "-format", "json", dir)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "-trend", "-format", "json", dir)
	require.Equal(t, 0, code, stderr)

	var trend struct {
		ScanCount int `json:"scan_count"`
		Points    []struct {
			FunctionCount int `json:"function_count"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &trend))
	assert.Equal(t, 1, trend.ScanCount)
	require.Len(t, trend.Points, 1)
	assert.Equal(t, 2, trend.Points[0].FunctionCount)
}

func TestWriteOutput_Stdout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "", []byte("hello")))
	assert.Equal(t, "hello", buf.String())
}

func TestDisplayTarget(t *testing.T) {
	dir := writeProject(t)
	assert.Equal(t, "main.py", displayTarget(filepath.Join(dir, "main.py")))
	assert.Equal(t, filepath.ToSlash(dir), displayTarget(dir))
}
