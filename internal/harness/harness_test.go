package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksScenario(flow []Step, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Schema: SchemaDef{
			Collection: "tasks",
			Fields:     map[string]string{"title": "string", "priority": "string"},
		},
		View: ViewDef{
			SectionKey: "priority",
			Sort:       []SortDef{{Key: "priority"}, {Key: "title"}},
		},
		Setup: []Step{
			{Put: &PutStep{ID: "t1", Attrs: map[string]interface{}{"title": "Alpha", "priority": "high"}}},
		},
		Flow:       flow,
		Assertions: assertions,
	}
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Flow)+1)
		})
	}
}

func TestRun_StartTrace(t *testing.T) {
	result, err := Run(tasksScenario(
		[]Step{{Reload: true}},
		Assertion{Type: AssertState, State: "ready"},
	))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	start := result.Trace[0]
	assert.Equal(t, "start", start.Step)
	assert.Equal(t, []string{"reload"}, start.Events)
	assert.Equal(t, []SectionState{{Key: "high", Items: []string{"t1"}}}, start.Sections)

	reload := result.Trace[1]
	assert.Equal(t, "flow[0]", reload.Step)
	assert.Equal(t, "reload", reload.Op)
	assert.Equal(t, []string{"reload"}, reload.Events)
}

func TestRun_GeneratedIDs(t *testing.T) {
	s := tasksScenario(
		[]Step{
			{Put: &PutStep{Attrs: map[string]interface{}{"title": "Beta", "priority": "high"}}},
			{Put: &PutStep{Attrs: map[string]interface{}{"title": "Gamma", "priority": "low"}}},
		},
		Assertion{Type: AssertItems, Section: "high", IDs: []string{"t1", "task-001"}},
		Assertion{Type: AssertItems, Section: "low", IDs: []string{"task-002"}},
	)
	s.IDPrefix = "task"

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "put task-001", result.Trace[1].Op)
	assert.Equal(t, "put task-002", result.Trace[2].Op)
}

func TestRun_ExpectMismatch(t *testing.T) {
	result, err := Run(tasksScenario(
		[]Step{{
			Put:    &PutStep{ID: "t2", Attrs: map[string]interface{}{"title": "Beta", "priority": "high"}},
			Expect: &ExpectClause{Events: []string{"reload"}, Sections: []string{"low"}},
		}},
		Assertion{Type: AssertState, State: "ready"},
	))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected events [reload], got [row_change]")
	assert.Contains(t, result.Errors[1], "expected sections [low], got [high]")
}

func TestRun_ExpectedError(t *testing.T) {
	result, err := Run(tasksScenario(
		[]Step{{
			Delete: "missing",
			Expect: &ExpectClause{Error: "no record"},
		}},
		Assertion{Type: AssertSections, Sections: []string{"high"}},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, `no record "missing"`, result.Trace[1].Error)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	result, err := Run(tasksScenario(
		[]Step{{
			Reload: true,
			Expect: &ExpectClause{Error: "boom"},
		}},
		Assertion{Type: AssertState, State: "ready"},
	))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error containing "boom", step succeeded`)
}

func TestRun_UnexpectedStepErrorIsFatal(t *testing.T) {
	_, err := Run(tasksScenario(
		[]Step{{Delete: "missing"}},
		Assertion{Type: AssertState, State: "ready"},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow step 0 (delete missing)")
}

func TestRun_SchemaMismatchInSetup(t *testing.T) {
	s := tasksScenario(
		[]Step{{Reload: true}},
		Assertion{Type: AssertState, State: "ready"},
	)
	s.Setup = append(s.Setup, Step{Put: &PutStep{ID: "bad", Attrs: map[string]interface{}{"priority": true}}})

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 1")
}

func TestRun_UnknownFieldKind(t *testing.T) {
	s := tasksScenario(
		[]Step{{Reload: true}},
		Assertion{Type: AssertState, State: "ready"},
	)
	s.Schema.Fields["priority"] = "decimal"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `schema field "priority"`)
}

func TestRun_FailingAssertion(t *testing.T) {
	result, err := Run(tasksScenario(
		[]Step{{Reload: true}},
		Assertion{Type: AssertSections, Sections: []string{"low"}},
	))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "Expected: [low]")
}
