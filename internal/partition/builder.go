package partition

import (
	"fmt"
	"log/slog"

	"github.com/roach88/liveresults/internal/ir"
)

// KeyFunc extracts the section key of a record. It returns false when the
// record has no usable key.
type KeyFunc[R any] func(R) (ir.Value, bool)

// KeyPolicy decides what happens to records without a usable section key.
type KeyPolicy int

const (
	// SkipInvalid leaves such records out of the partition and counts them.
	SkipInvalid KeyPolicy = iota
	// RejectInvalid fails the build with a *KeyError.
	RejectInvalid
)

// String returns the policy name used in configuration.
func (k KeyPolicy) String() string {
	if k == RejectInvalid {
		return "reject"
	}
	return "skip"
}

// ParseKeyPolicy resolves "skip" or "reject".
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch s {
	case "", "skip":
		return SkipInvalid, nil
	case "reject":
		return RejectInvalid, nil
	default:
		return SkipInvalid, fmt.Errorf("unknown key policy %q", s)
	}
}

// KeyError reports a record whose section key is missing or of the wrong
// kind under RejectInvalid.
type KeyError struct {
	Position int
	Want     ir.Kind
	Got      ir.Value // nil when the key was absent
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("record %d: section key absent", e.Position)
	}
	if ir.KindOf(e.Got) == e.Want {
		return fmt.Sprintf("record %d: section key %s is not usable", e.Position, ir.Format(e.Got))
	}
	return fmt.Sprintf("record %d: section key %s is %s, want %s",
		e.Position, ir.Format(e.Got), ir.KindOf(e.Got), e.Want)
}

// Builder turns an ordered record sequence into a Partition plus titles.
//
// The sequence must already be sorted with the section key as its primary
// term; records with equal keys are then contiguous and one scan suffices.
type Builder[R any, ID comparable] struct {
	// Kind is the declared section key kind. Keys of any other kind are
	// treated as unusable.
	Kind ir.Kind

	// Key extracts the section key. Required.
	Key KeyFunc[R]

	// Identity extracts the stable record identity. Required.
	Identity func(R) ID

	// FormatTitle, when set, produces one index title per section.
	FormatTitle TitleFormatter

	// SortTitles, when set, reorders the titles after formatting.
	SortTitles TitleSorter

	// Policy selects skip or reject for unusable keys.
	Policy KeyPolicy

	// Logger receives build diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result is the output of one build.
type Result[ID comparable] struct {
	Partition *Partition[ID]

	// Titles is nil when no formatter is configured, and empty (non-nil)
	// when a formatter is configured but there are no sections.
	Titles []string

	// TitlePairs carries the section key of every title, in title order.
	TitlePairs []SectionTitle

	// Skipped counts records left out for lack of a usable key.
	Skipped int

	// Fragments counts keys that reappeared after a run of another key.
	// Non-zero means the input was not sorted by the section key.
	Fragments int
}

// Build scans records once and groups them by section key.
func (b Builder[R, ID]) Build(records []R) (Result[ID], error) {
	if b.Key == nil || b.Identity == nil {
		return Result[ID]{}, fmt.Errorf("builder requires Key and Identity accessors")
	}

	p := New[ID]()
	var (
		skipped   int
		fragments int
		last      ir.Value
	)

	for pos, rec := range records {
		key, ok := b.Key(rec)
		if !ok || !ir.IsKey(key) || ir.KindOf(key) != b.Kind {
			if b.Policy == RejectInvalid {
				if !ok || ir.IsNull(key) {
					key = nil
				}
				return Result[ID]{}, &KeyError{Position: pos, Want: b.Kind, Got: key}
			}
			skipped++
			continue
		}

		created := p.Insert(key, Member[ID]{ID: b.Identity(rec), Position: pos})
		if !created && last != nil && key != last {
			fragments++
		}
		last = key
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if fragments > 0 {
		logger.Warn("section key runs are not contiguous; input is not sorted by section key",
			"fragments", fragments,
			"sections", p.Len(),
		)
	}
	if skipped > 0 {
		logger.Debug("skipped records without a usable section key",
			"skipped", skipped,
			"kind", b.Kind.String(),
		)
	}

	titles, pairs := b.titles(p)
	return Result[ID]{
		Partition:  p,
		Titles:     titles,
		TitlePairs: pairs,
		Skipped:    skipped,
		Fragments:  fragments,
	}, nil
}

// titles formats and sorts section index titles.
func (b Builder[R, ID]) titles(p *Partition[ID]) ([]string, []SectionTitle) {
	if b.FormatTitle == nil {
		return nil, nil
	}

	pairs := make([]SectionTitle, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		key, _ := p.KeyAt(i)
		title, ok := b.FormatTitle(key)
		if !ok {
			continue
		}
		pairs = append(pairs, SectionTitle{Key: key, Title: title})
	}
	if b.SortTitles != nil {
		b.SortTitles(pairs)
	}

	titles := make([]string, len(pairs))
	for i, pair := range pairs {
		titles[i] = pair.Title
	}
	return titles, pairs
}
