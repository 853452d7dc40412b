package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.AddTrace(TraceEvent{Step: "start", Op: "start", Events: []string{"reload"}})
	r.AddTrace(TraceEvent{Step: "flow[0]", Op: "put t2", Events: []string{
		"section_change inserted=[1] deleted=[]",
		"row_change inserted=[(0,1)] deleted=[] updated=[]",
	}})
	r.AddTrace(TraceEvent{Step: "flow[1]", Op: "change where=a=1", Events: []string{"reload"}})
	r.State = FinalState{
		State: "ready",
		Sections: []SectionState{
			{Key: "high", Title: "H", Items: []string{"t1", "t2"}},
			{Key: "low", Title: "L", Items: []string{"t3"}},
		},
		Titles: []string{"H", "L"},
	}
	return r
}

func TestResult_EventKinds(t *testing.T) {
	assert.Equal(t,
		[]string{"reload", "section_change", "row_change", "reload"},
		sampleResult().EventKinds())
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	failures := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertSections, Sections: []string{"high", "low"}},
		{Type: AssertItems, Section: "high", IDs: []string{"t1", "t2"}},
		{Type: AssertTitles, Titles: []string{"H", "L"}},
		{Type: AssertEventCount, Kind: "reload", Count: 2},
		{Type: AssertEventCount, Kind: "section_change", Count: 1},
		{Type: AssertEventCount, Kind: "moved", Count: 0},
		{Type: AssertEventOrder, Kinds: []string{"reload", "row_change", "reload"}},
		{Type: AssertState, State: "ready"},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "sections",
			assertion: Assertion{Type: AssertSections, Sections: []string{"low", "high"}},
			want:      "Actual: [high low]",
		},
		{
			name:      "items",
			assertion: Assertion{Type: AssertItems, Section: "high", IDs: []string{"t2", "t1"}},
			want:      "section high items [t1 t2]",
		},
		{
			name:      "items in missing section",
			assertion: Assertion{Type: AssertItems, Section: "medium", IDs: []string{"t1"}},
			want:      "Expected: section medium",
		},
		{
			name:      "titles",
			assertion: Assertion{Type: AssertTitles, Titles: []string{"L", "H"}},
			want:      "Expected: [L H]",
		},
		{
			name:      "event count",
			assertion: Assertion{Type: AssertEventCount, Kind: "reload", Count: 1},
			want:      "Expected: 1 reload event(s)",
		},
		{
			name:      "event order",
			assertion: Assertion{Type: AssertEventOrder, Kinds: []string{"row_change", "section_change"}},
			want:      "missing section_change",
		},
		{
			name:      "state",
			assertion: Assertion{Type: AssertState, State: "closed"},
			want:      "Actual: ready",
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "bogus"},
			want:      `unknown assertion type "bogus"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], "assertions[0]: ")
			assert.Contains(t, failures[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertSections,
		Expected: "[a]",
		Actual:   "[b]",
		Trace:    sampleResult().Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: sections")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "[flow[1]] change where=a=1 -> [reload]")
}

func TestCheckExpect(t *testing.T) {
	ev := TraceEvent{
		Op:       "put t2",
		Events:   []string{"row_change inserted=[(0,1)] deleted=[] updated=[]"},
		Sections: []SectionState{{Key: "high"}},
	}

	assert.Empty(t, checkExpect(0, &ExpectClause{Events: []string{"row_change"}, Sections: []string{"high"}}, ev))
	assert.Empty(t, checkExpect(0, &ExpectClause{}, ev), "unset fields are not checked")

	failures := checkExpect(3, &ExpectClause{Events: []string{}}, ev)
	require.Len(t, failures, 1)
	assert.Equal(t, "flow[3] (put t2): expected events [], got [row_change]", failures[0])

	ev.Error = "boom: disk full"
	assert.Empty(t, checkExpect(0, &ExpectClause{Error: "disk full"}, ev))
	failures = checkExpect(0, &ExpectClause{Error: "timeout"}, ev)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `expected error containing "timeout", got "boom: disk full"`)
}
