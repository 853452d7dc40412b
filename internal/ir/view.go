package ir

// ViewSpec is a compiled view definition: which collection to observe and
// how to section, sort, filter and title it.
type ViewSpec struct {
	Name       string     `json:"name"`
	Collection string     `json:"collection"`
	SectionKey string     `json:"section_key"`
	Kind       Kind       `json:"kind"`
	Sort       []SortSpec `json:"sort"`

	// Where holds equality filters, one per attribute, combined with And.
	Where Object `json:"where,omitempty"`

	// Titles is "none", "key" or "initial".
	Titles string `json:"titles"`

	// TitleOrder is "none" or "alphabetical".
	TitleOrder string `json:"title_order"`

	// Locale is the BCP 47 tag used for initial titles and collation.
	Locale string `json:"locale"`

	// KeyPolicy is "skip" or "reject".
	KeyPolicy string `json:"key_policy"`

	Moves bool `json:"moves"`
}

// SortSpec is one sort term of a view.
type SortSpec struct {
	Key       string `json:"key"`
	Ascending bool   `json:"ascending"`
}
