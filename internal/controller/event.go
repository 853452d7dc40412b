package controller

import (
	"fmt"

	"github.com/roach88/liveresults/internal/diff"
	"github.com/roach88/liveresults/internal/ir"
)

// EventKind distinguishes change events.
type EventKind int

const (
	// EventReload means the whole view must be re-read.
	EventReload EventKind = iota + 1
	// EventSectionChange carries section insertions and deletions.
	EventSectionChange
	// EventRowChange carries item insertions, deletions and updates.
	EventRowChange
)

var eventKindNames = map[EventKind]string{
	EventReload:        "reload",
	EventSectionChange: "section_change",
	EventRowChange:     "row_change",
}

// String returns the snake_case name of the kind.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Event describes one change of the sectioned view.
//
// Deletions index the view before the change; insertions, updates and move
// targets index the view after it. Apply deletions before insertions.
// Moves are only reported when the controller was built WithMoves(true).
type Event struct {
	Kind EventKind `json:"kind"`

	// Generation identifies the configuration the event belongs to.
	Generation uint64 `json:"generation"`

	InsertedSections []int       `json:"inserted_sections,omitempty"`
	DeletedSections  []int       `json:"deleted_sections,omitempty"`
	MovedSections    []diff.Move `json:"moved_sections,omitempty"`

	InsertedItems []ir.IndexPath  `json:"inserted_items,omitempty"`
	DeletedItems  []ir.IndexPath  `json:"deleted_items,omitempty"`
	UpdatedItems  []ir.IndexPath  `json:"updated_items,omitempty"`
	MovedItems    []diff.PathMove `json:"moved_items,omitempty"`
}

// eventsFor splits a nested script into zero, one or two events.
func eventsFor(script diff.Script, generation uint64) []Event {
	var events []Event
	if script.HasSectionChanges() {
		events = append(events, Event{
			Kind:             EventSectionChange,
			Generation:       generation,
			InsertedSections: script.SectionInserts,
			DeletedSections:  script.SectionDeletes,
			MovedSections:    script.SectionMoves,
		})
	}
	if script.HasItemChanges() {
		events = append(events, Event{
			Kind:          EventRowChange,
			Generation:    generation,
			InsertedItems: script.ItemInserts,
			DeletedItems:  script.ItemDeletes,
			UpdatedItems:  script.ItemUpdates,
			MovedItems:    script.ItemMoves,
		})
	}
	return events
}

// String renders the event for logs and text output.
func (e Event) String() string {
	switch e.Kind {
	case EventReload:
		return "reload"
	case EventSectionChange:
		s := fmt.Sprintf("section_change inserted=%v deleted=%v", e.InsertedSections, e.DeletedSections)
		if len(e.MovedSections) > 0 {
			s += fmt.Sprintf(" moved=%v", e.MovedSections)
		}
		return s
	case EventRowChange:
		s := fmt.Sprintf("row_change inserted=%s deleted=%s updated=%s",
			formatPaths(e.InsertedItems), formatPaths(e.DeletedItems), formatPaths(e.UpdatedItems))
		if len(e.MovedItems) > 0 {
			s += " moved=["
			for i, m := range e.MovedItems {
				if i > 0 {
					s += " "
				}
				s += m.From.String() + "->" + m.To.String()
			}
			s += "]"
		}
		return s
	default:
		return e.Kind.String()
	}
}

func formatPaths(paths []ir.IndexPath) string {
	s := "["
	for i, p := range paths {
		if i > 0 {
			s += " "
		}
		s += p.String()
	}
	return s + "]"
}
