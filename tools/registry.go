// Package tools provides a metadata-driven registry for MCP tool definitions.
// Every tool is declared once in AllTools and registered explicitly at
// startup through type-safe handlers.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a client method with matching Args/Result types.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "essbase_search_members")
	Name string

	// Method is the handler method name (e.g., "SearchMembers")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (connection, catalog, members, mdx)
	Category string

	// ReadOnly indicates the tool doesn't modify server state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// ToolsByCategory returns the specs in AllTools with the given category.
func ToolsByCategory(category string) []ToolSpec {
	var out []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			out = append(out, spec)
		}
	}
	return out
}

// ToolByName returns the spec with the given tool name.
func ToolByName(name string) (ToolSpec, bool) {
	for _, spec := range AllTools {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
