package ports

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitResults_KeepsOrder(t *testing.T) {
	units := UnitResults{
		{Name: "zeta.py", Module: "zeta", Imports: []string{}, Functions: []FunctionResult{}},
		{Name: "alpha.py", Module: "alpha", Imports: []string{"os"}, Functions: []FunctionResult{},
			ParseError: "invalid syntax", ErrorLine: 3, ErrorColumn: 5},
	}

	data, err := json.Marshal(units)
	require.NoError(t, err)
	assert.Equal(t,
		`{"zeta.py":{"module":"zeta","imports":[],"functions":[]},`+
			`"alpha.py":{"module":"alpha","imports":["os"],"functions":[],"parse_error":"invalid syntax","error_line":3,"error_column":5}}`,
		string(data))

	var decoded UnitResults
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, units, decoded)
}

func TestUnitResults_Empty(t *testing.T) {
	data, err := json.Marshal(AnalysisResult{Status: StatusFailed})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"units":{}`)
	assert.NotContains(t, string(data), "key_functions")

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Units)
}

func TestUnitResults_RejectsArray(t *testing.T) {
	var decoded UnitResults
	assert.Error(t, json.Unmarshal([]byte(`[]`), &decoded))
}

func TestAnalysisResult_Unit(t *testing.T) {
	r := AnalysisResult{Units: UnitResults{{Name: "a.py"}, {Name: "b.py", ParseError: "boom"}}}

	u, ok := r.Unit("b.py")
	require.True(t, ok)
	assert.True(t, u.Failed())

	_, ok = r.Unit("c.py")
	assert.False(t, ok)
}
