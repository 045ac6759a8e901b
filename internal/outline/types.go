// Package outline resolves free-text entity names to members of an Essbase
// outline. It picks one canonical candidate per queried name from the raw
// hits returned by an outline search.
package outline

import "context"

// Candidate is a single outline-search hit. DimensionName is nil when the
// hit has no dimensionName field; an empty name is kept as is.
type Candidate struct {
	Name          string  `json:"name"`
	UniqueName    string  `json:"uniqueName"`
	DimensionName *string `json:"dimensionName,omitempty"`
}

// Member is a resolved outline member.
type Member struct {
	Dimension  string `json:"dimension" jsonschema:"Dimension the member belongs to"`
	Name       string `json:"name" jsonschema:"Member display name"`
	UniqueName string `json:"unique_name" jsonschema:"Fully qualified member name, used verbatim in MDX"`
}

// Resolution pairs a queried entity name with the member it resolved to.
// Member is nil when nothing usable matched or the lookup failed.
type Resolution struct {
	Name   string  `json:"name"`
	Member *Member `json:"member"`
}

// LookupFunc returns the outline-search hits for one entity name.
type LookupFunc func(ctx context.Context, name string) ([]Candidate, error)

// Member converts the candidate into a Member. The dimension falls back to
// the member name only when the hit has no dimensionName field. It reports
// false when the candidate has no unique name.
func (c Candidate) Member() (Member, bool) {
	if c.UniqueName == "" {
		return Member{}, false
	}
	dimension := c.Name
	if c.DimensionName != nil {
		dimension = *c.DimensionName
	}
	return Member{
		Dimension:  dimension,
		Name:       c.Name,
		UniqueName: c.UniqueName,
	}, true
}
