// Package harness provides conformance testing for sectioned views.
//
// The harness declares a collection, starts a view over it, applies a flow
// of writes and reconfigurations, and records the change events each step
// produced along with the sections it left.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema:
//	  collection: tasks
//	  fields: { title: string, priority: string }
//	view:
//	  section_key: priority
//	  sort: [{ key: priority }, { key: title }]
//	  titles: initial
//	setup:
//	  - put: { id: t1, attrs: { title: Write docs, priority: high } }
//	flow:
//	  - put: { id: t2, attrs: { title: Ship, priority: low } }
//	    expect:
//	      events: [section_change]
//	      sections: [high, low]
//	  - search: { title: Ship }
//	  - advance: 400ms
//	  - delete: t2
//	assertions:
//	  - type: sections
//	    sections: [high]
//	  - type: event_count
//	    kind: reload
//	    count: 1
//
// # Assertion Types
//
//   - sections: the final section keys, in order
//   - items: the item ids of one final section
//   - titles: the final index titles
//   - event_count: how many events of a kind the run produced
//   - event_order: event kinds appear in the given order
//   - state: the final controller state
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory database. The search
// debounce runs on a testutil.ManualClock that only moves on advance steps,
// records without an id get testutil.SequentialIDs, and every step waits
// on store.Barrier, so traces are identical across runs and can be
// compared with golden files.
package harness
