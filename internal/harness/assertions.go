package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%s] %s -> %v\n", step.Step, step.Op, step.Events)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against a result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertSections:
		return assertSections(result, a)
	case AssertItems:
		return assertItems(result, a)
	case AssertTitles:
		return assertTitles(result, a)
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertEventOrder:
		return assertEventOrder(result, a)
	case AssertState:
		if result.State.State != a.State {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: result.State.State}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertSections compares the final section keys.
func assertSections(result *Result, a Assertion) error {
	got := sectionKeys(result.State.Sections)
	if !slices.Equal(got, a.Sections) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", a.Sections),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertItems compares the item ids of one final section.
func assertItems(result *Result, a Assertion) error {
	for _, s := range result.State.Sections {
		if s.Key != a.Section {
			continue
		}
		if !slices.Equal(s.Items, a.IDs) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("section %s items %v", a.Section, a.IDs),
				Actual:   fmt.Sprintf("section %s items %v", a.Section, s.Items),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("section %s", a.Section),
		Actual:   fmt.Sprintf("sections %v", sectionKeys(result.State.Sections)),
		Trace:    result.Trace,
	}
}

// assertTitles compares the final index titles.
func assertTitles(result *Result, a Assertion) error {
	got := result.State.Titles
	if !slices.Equal(got, a.Titles) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", a.Titles),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertEventCount checks how many events of a kind the run produced,
// including the initial reload.
func assertEventCount(result *Result, a Assertion) error {
	count := 0
	for _, kind := range result.EventKinds() {
		if kind == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s event(s)", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventOrder checks that kinds appear in order. Other events may
// come in between.
func assertEventOrder(result *Result, a Assertion) error {
	kinds := result.EventKinds()
	next := 0
	for _, kind := range kinds {
		if next < len(a.Kinds) && kind == a.Kinds[next] {
			next++
		}
	}
	if next < len(a.Kinds) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("events in order: %v", a.Kinds),
			Actual:   fmt.Sprintf("%v (missing %s)", kinds, a.Kinds[next]),
			Trace:    result.Trace,
		}
	}
	return nil
}

// checkExpect compares one traced step with its expect clause.
func checkExpect(index int, expect *ExpectClause, ev TraceEvent) []string {
	var failures []string
	prefix := fmt.Sprintf("flow[%d] (%s)", index, ev.Op)

	if expect.Events != nil {
		got := make([]string, len(ev.Events))
		for i, e := range ev.Events {
			got[i] = eventKind(e)
		}
		if !slices.Equal(got, expect.Events) {
			failures = append(failures, fmt.Sprintf("%s: expected events %v, got %v", prefix, expect.Events, got))
		}
	}

	if expect.Sections != nil {
		got := sectionKeys(ev.Sections)
		if !slices.Equal(got, expect.Sections) {
			failures = append(failures, fmt.Sprintf("%s: expected sections %v, got %v", prefix, expect.Sections, got))
		}
	}

	switch {
	case expect.Error != "" && ev.Error == "":
		failures = append(failures, fmt.Sprintf("%s: expected error containing %q, step succeeded", prefix, expect.Error))
	case expect.Error != "" && !strings.Contains(ev.Error, expect.Error):
		failures = append(failures, fmt.Sprintf("%s: expected error containing %q, got %q", prefix, expect.Error, ev.Error))
	}

	return failures
}

func sectionKeys(sections []SectionState) []string {
	keys := make([]string, len(sections))
	for i, s := range sections {
		keys[i] = s.Key
	}
	return keys
}
