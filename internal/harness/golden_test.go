package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_PrioritySections(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/priority_sections.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_SearchDebounce(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/search_debounce.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_Stable(t *testing.T) {
	r := sampleResult()

	first, err := MarshalSnapshot("sample", r)
	require.NoError(t, err)
	second, err := MarshalSnapshot("sample", r)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, byte('\n'), first[len(first)-1])
	assert.Contains(t, string(first), `"scenario_name": "sample"`)
	assert.NotContains(t, string(first), `"error"`, "empty errors are omitted")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/priority_sections.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
