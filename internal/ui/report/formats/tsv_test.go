package formats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSVGenerator_Edges(t *testing.T) {
	out, err := NewTSVGenerator(sampleResult()).Generate()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CallerUnit\tCaller\tCalleeUnit\tCallee\tCalls", lines[0])
	assert.Equal(t, "app.py\tmain\tutil.py\thelper\t2", lines[2])
}

func TestTSVGenerator_Ranked(t *testing.T) {
	out, err := NewTSVGenerator(sampleResult()).GenerateRanked()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1\tapp.py\tmain\t0.550\t0\t2\tfalse\ttrue\t1\t1,4", lines[1])
	assert.Equal(t, "2\tutil.py\thelper\t0.400\t1\t0\ttrue\tfalse\t0\t1,3", lines[2])
}

func TestTSVGenerator_Diagnostics(t *testing.T) {
	out, err := NewTSVGenerator(sampleResult()).GenerateDiagnostics()
	require.NoError(t, err)

	assert.Contains(t, out, "ambiguous_call\tapp.py\tmain\trun\t3\ta.py::run,b.py::run\n")
	assert.Contains(t, out, "parse_error\tbad.py\t\tinvalid syntax\t2\t\n")
}
