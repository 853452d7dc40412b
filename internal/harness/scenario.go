package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios drive a live view through a sequence of writes and
// reconfigurations and assert on the change events and the final sections.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema declares the observed collection.
	Schema SchemaDef `yaml:"schema"`

	// View is the sectioned view under test.
	View ViewDef `yaml:"view"`

	// Setup contains writes applied before the view starts.
	// They establish the initial result and produce no trace of their own.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow. Each step is traced with the events
	// it produced and the sections it left.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final sections.
	// Supported types: sections, items, titles, event_count, event_order, state
	Assertions []Assertion `yaml:"assertions"`

	// IDPrefix prefixes the ids generated for puts without an id.
	// Defaults to "rec".
	IDPrefix string `yaml:"id_prefix,omitempty"`
}

// SchemaDef declares a collection and the kinds of its attributes.
type SchemaDef struct {
	Collection string            `yaml:"collection"`
	Fields     map[string]string `yaml:"fields"`
}

// ViewDef describes the view under test. Its collection is the schema's.
type ViewDef struct {
	SectionKey string                 `yaml:"section_key"`
	Kind       string                 `yaml:"kind,omitempty"`
	Sort       []SortDef              `yaml:"sort,omitempty"`
	Where      map[string]interface{} `yaml:"where,omitempty"`
	Titles     string                 `yaml:"titles,omitempty"`
	TitleOrder string                 `yaml:"title_order,omitempty"`
	Locale     string                 `yaml:"locale,omitempty"`
	KeyPolicy  string                 `yaml:"key_policy,omitempty"`
	Moves      bool                   `yaml:"moves,omitempty"`
}

// SortDef is one sort term. Terms sort ascending unless descending is set.
type SortDef struct {
	Key        string `yaml:"key"`
	Descending bool   `yaml:"descending,omitempty"`
}

// Step is one scenario operation. Exactly one operation field is set.
type Step struct {
	// Put inserts or replaces one record.
	Put *PutStep `yaml:"put,omitempty"`

	// Batch writes several records in one transaction.
	Batch []PutStep `yaml:"batch,omitempty"`

	// Delete removes the record with this id.
	Delete string `yaml:"delete,omitempty"`

	// Search sets the debounced search filter; an empty map clears it.
	Search map[string]interface{} `yaml:"search,omitempty"`

	// Advance moves the debounce clock forward.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Change reconfigures the view.
	Change *ChangeStep `yaml:"change,omitempty"`

	// Reload resubscribes with the current configuration.
	Reload bool `yaml:"reload,omitempty"`

	// Expect checks what the step produced.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// PutStep is one record write.
type PutStep struct {
	ID    string                 `yaml:"id,omitempty"`
	Attrs map[string]interface{} `yaml:"attrs"`
}

// ChangeStep reconfigures the view. Unset fields keep their value.
type ChangeStep struct {
	Where      map[string]interface{} `yaml:"where,omitempty"`
	Sort       []SortDef              `yaml:"sort,omitempty"`
	SectionKey string                 `yaml:"section_key,omitempty"`
}

// ExpectClause specifies what a step must produce.
type ExpectClause struct {
	// Events lists the expected event kinds in order. An empty list expects
	// no event; leaving it out skips the check.
	Events []string `yaml:"events"`

	// Sections lists the expected section keys after the step.
	Sections []string `yaml:"sections,omitempty"`

	// Error expects the step to fail with a message containing this text.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final view.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sections": the final section keys, in order
	// - "items": the item ids of one final section, in order
	// - "titles": the final index titles
	// - "event_count": how many events of a kind the flow produced
	// - "event_order": event kinds appear in this order (not necessarily adjacent)
	// - "state": the final controller state
	Type string `yaml:"type"`

	// Sections are the expected section keys (sections).
	Sections []string `yaml:"sections,omitempty"`

	// Section is the section key (items).
	Section string `yaml:"section,omitempty"`

	// IDs are the expected item ids (items).
	IDs []string `yaml:"ids,omitempty"`

	// Titles are the expected index titles (titles).
	Titles []string `yaml:"titles,omitempty"`

	// Kind is the event kind (event_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected event order (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// State is the expected controller state (state).
	State string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertSections   = "sections"
	AssertItems      = "items"
	AssertTitles     = "titles"
	AssertEventCount = "event_count"
	AssertEventOrder = "event_order"
	AssertState      = "state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema.Collection == "" {
		return fmt.Errorf("schema.collection is required")
	}

	if s.View.SectionKey == "" {
		return fmt.Errorf("view.section_key is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Put == nil && len(step.Batch) == 0 && step.Delete == "" {
			return fmt.Errorf("setup[%d]: only put, batch and delete are allowed", i)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if n := step.operations(); n != 1 {
			return fmt.Errorf("flow[%d]: exactly one operation is required, got %d", i, n)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// operations counts the operation fields set on a step.
func (s Step) operations() int {
	n := 0
	for _, set := range []bool{
		s.Put != nil,
		len(s.Batch) > 0,
		s.Delete != "",
		s.Search != nil,
		s.Advance > 0,
		s.Change != nil,
		s.Reload,
	} {
		if set {
			n++
		}
	}
	return n
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSections, AssertTitles:
		// An empty list asserts an empty view.
	case AssertItems:
		if a.Section == "" {
			return fmt.Errorf("assertions[%d]: section is required for items", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	case AssertState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
