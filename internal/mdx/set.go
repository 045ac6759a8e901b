// Package mdx renders Essbase MDX set and range expressions.
//
// Names are substituted into the templates verbatim. Nothing is escaped or
// quoted, so callers must pass names that are already valid MDX (for example
// bracketed unique names when they contain commas or parentheses).
package mdx

import (
	"errors"
	"strings"

	"github.com/olgasafonova/essbase-mcp-server/internal/outline"
)

// ErrInvalidSet is returned when a member set does not carry exactly one
// of a member list, a range or a function.
var ErrInvalidSet = errors.New("invalid member set: exactly one of members, range or function must be set")

// Endpoint is one end of a member range: either a resolved member or a
// bare member name.
type Endpoint struct {
	member *outline.Member
	name   string
}

// NameEndpoint returns an endpoint rendered as the given name.
func NameEndpoint(name string) Endpoint {
	return Endpoint{name: name}
}

// MemberEndpoint returns an endpoint rendered as the member's unique name.
func MemberEndpoint(m outline.Member) Endpoint {
	return Endpoint{member: &m}
}

// String returns the text substituted into a range expression.
func (e Endpoint) String() string {
	if e.member != nil {
		return e.member.UniqueName
	}
	return e.name
}

// MemberRange is a contiguous range of outline members.
type MemberRange struct {
	Start Endpoint
	End   Endpoint
}

type setKind int

const (
	kindInvalid setKind = iota
	kindList
	kindRange
	kindFunction
)

// MemberSet holds exactly one of a member list, a member range or a set
// function. Build it with ListSet, RangeSet or FunctionSet; the zero value
// is invalid.
type MemberSet struct {
	kind     setKind
	members  []string
	rng      MemberRange
	function string
}

// ListSet returns a set of explicitly listed member names.
func ListSet(names ...string) MemberSet {
	return MemberSet{kind: kindList, members: append([]string(nil), names...)}
}

// RangeSet returns a set covering a member range.
func RangeSet(r MemberRange) MemberSet {
	return MemberSet{kind: kindRange, rng: r}
}

// FunctionSet returns a set produced by a named set function such as
// Children. The function is always called without arguments.
func FunctionSet(name string) MemberSet {
	return MemberSet{kind: kindFunction, function: name}
}

// RenderRange renders r as MemberRange(<start>, <end>).
func RenderRange(r MemberRange) string {
	return "MemberRange(" + r.Start.String() + ", " + r.End.String() + ")"
}

// Render renders s as an MDX set expression.
func Render(s MemberSet) (string, error) {
	switch s.kind {
	case kindList:
		return "{" + strings.Join(s.members, ", ") + "}", nil
	case kindRange:
		return RenderRange(s.rng), nil
	case kindFunction:
		return s.function + "()", nil
	default:
		return "", ErrInvalidSet
	}
}
