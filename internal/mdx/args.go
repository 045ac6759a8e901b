package mdx

import (
	"fmt"

	"github.com/olgasafonova/essbase-mcp-server/internal/outline"
)

// EndpointSpec is the wire form of a range endpoint. Exactly one of Name or
// Member must be set.
type EndpointSpec struct {
	Name   string          `json:"name,omitempty" jsonschema:"Bare member name used as is"`
	Member *outline.Member `json:"member,omitempty" jsonschema:"Resolved member; its unique_name is used"`
}

// RangeSpec is the wire form of a member range.
type RangeSpec struct {
	Start EndpointSpec `json:"start" jsonschema:"First member of the range"`
	End   EndpointSpec `json:"end" jsonschema:"Last member of the range"`
}

// FunctionSpec names a set function.
type FunctionSpec struct {
	FunctionName string `json:"function_name" jsonschema:"Set function name, e.g. Children"`
}

// SetSpec is the wire form of a member set. Exactly one field must be set.
type SetSpec struct {
	Members  *[]string     `json:"members,omitempty" jsonschema:"Explicit list of member names"`
	Range    *RangeSpec    `json:"range,omitempty" jsonschema:"Contiguous member range"`
	Function *FunctionSpec `json:"function,omitempty" jsonschema:"Set function reference"`
}

// RangeExpressionArgs contains parameters for rendering a range expression
type RangeExpressionArgs struct {
	Range RangeSpec `json:"range" jsonschema:"Member range to render"`
}

// SetExpressionArgs contains parameters for rendering a set expression
type SetExpressionArgs struct {
	Set SetSpec `json:"set" jsonschema:"Member set to render; set exactly one of members, range or function"`
}

// ExpressionResult is a rendered MDX expression
type ExpressionResult struct {
	Expression string `json:"expression"`
}

// Endpoint converts e into an Endpoint.
func (e EndpointSpec) Endpoint() (Endpoint, error) {
	switch {
	case e.Member != nil && e.Name != "":
		return Endpoint{}, fmt.Errorf("range endpoint must set name or member, not both")
	case e.Member != nil:
		return MemberEndpoint(*e.Member), nil
	case e.Name != "":
		return NameEndpoint(e.Name), nil
	default:
		return Endpoint{}, fmt.Errorf("range endpoint must set name or member")
	}
}

// MemberRange converts r into a MemberRange.
func (r RangeSpec) MemberRange() (MemberRange, error) {
	start, err := r.Start.Endpoint()
	if err != nil {
		return MemberRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := r.End.Endpoint()
	if err != nil {
		return MemberRange{}, fmt.Errorf("end: %w", err)
	}
	return MemberRange{Start: start, End: end}, nil
}

// MemberSet converts s into a MemberSet. It fails with ErrInvalidSet
// unless exactly one variant is populated.
func (s SetSpec) MemberSet() (MemberSet, error) {
	populated := 0
	if s.Members != nil {
		populated++
	}
	if s.Range != nil {
		populated++
	}
	if s.Function != nil {
		populated++
	}
	if populated != 1 {
		return MemberSet{}, ErrInvalidSet
	}

	switch {
	case s.Members != nil:
		return ListSet(*s.Members...), nil
	case s.Range != nil:
		r, err := s.Range.MemberRange()
		if err != nil {
			return MemberSet{}, fmt.Errorf("%w: %v", ErrInvalidSet, err)
		}
		return RangeSet(r), nil
	default:
		if s.Function.FunctionName == "" {
			return MemberSet{}, fmt.Errorf("%w: function_name is required", ErrInvalidSet)
		}
		return FunctionSet(s.Function.FunctionName), nil
	}
}
