package partition

import (
	"slices"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/liveresults/internal/ir"
)

// SectionTitle pairs an index title with the key of the section it names.
type SectionTitle struct {
	Key   ir.Value
	Title string
}

// TitleFormatter produces the index title of a section key. Returning false
// leaves the section without a title.
type TitleFormatter func(key ir.Value) (string, bool)

// TitleSorter reorders titles in place. It reorders titles only; sections
// keep their order, and each pair keeps its key so callers can still resolve
// a title to its section.
type TitleSorter func(titles []SectionTitle)

// KeyTitles formats every key with ir.Format.
func KeyTitles() TitleFormatter {
	return func(key ir.Value) (string, bool) {
		return ir.Format(key), true
	}
}

// InitialTitles titles string keys by their first letter, upper-cased for
// the given language. Empty and non-string keys get no title.
func InitialTitles(tag language.Tag) TitleFormatter {
	upper := cases.Upper(tag)
	return func(key ir.Value) (string, bool) {
		s, ok := key.(ir.String)
		if !ok || s == "" {
			return "", false
		}
		r, size := utf8.DecodeRuneInString(string(s))
		if r == utf8.RuneError {
			return "", false
		}
		return upper.String(string(s)[:size]), true
	}
}

// AlphabeticalTitles sorts titles with the collation rules of a language.
// The sort is stable, so equal titles keep section order.
func AlphabeticalTitles(tag language.Tag) TitleSorter {
	return func(titles []SectionTitle) {
		// Collators keep internal buffers and are not safe for concurrent use.
		c := collate.New(tag)
		slices.SortStableFunc(titles, func(a, b SectionTitle) int {
			return c.CompareString(a.Title, b.Title)
		})
	}
}
