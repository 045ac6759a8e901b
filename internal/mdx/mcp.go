package mdx

import (
	"context"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

// MCP Tool wrapper functions

// RangeExpressionMCP renders a MemberRange expression
func RangeExpressionMCP(_ context.Context, args RangeExpressionArgs) (ExpressionResult, error) {
	r, err := args.Range.MemberRange()
	if err != nil {
		return ExpressionResult{}, apierrors.NewValidationError("range", "", err.Error())
	}
	return ExpressionResult{Expression: RenderRange(r)}, nil
}

// SetExpressionMCP renders a set expression
func SetExpressionMCP(_ context.Context, args SetExpressionArgs) (ExpressionResult, error) {
	set, err := args.Set.MemberSet()
	if err != nil {
		return ExpressionResult{}, err
	}
	expr, err := Render(set)
	if err != nil {
		return ExpressionResult{}, err
	}
	return ExpressionResult{Expression: expr}, nil
}
