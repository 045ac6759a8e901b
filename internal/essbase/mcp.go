package essbase

import (
	"context"
)

// MCP Tool wrapper methods
// These methods wrap the client methods with Args/Result types for MCP integration.

// ConnectMCP is the MCP wrapper for Connect
func (c *Client) ConnectMCP(ctx context.Context, args ConnectArgs) (ConnectResult, error) {
	profile, err := c.Connect(ctx, args.Profile)
	if err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{Profile: profile, Connected: true}, nil
}

// ListApplicationsMCP is the MCP wrapper for ListApplications
func (c *Client) ListApplicationsMCP(ctx context.Context, args ListApplicationsArgs) (ListApplicationsResult, error) {
	apps, err := c.ListApplications(ctx, args.Profile)
	if err != nil {
		return ListApplicationsResult{}, err
	}
	return ListApplicationsResult{Applications: nonNil(apps), Count: len(apps)}, nil
}

// ListDatabasesMCP is the MCP wrapper for ListDatabases
func (c *Client) ListDatabasesMCP(ctx context.Context, args ListDatabasesArgs) (ListDatabasesResult, error) {
	dbs, err := c.ListDatabases(ctx, args.Application)
	if err != nil {
		return ListDatabasesResult{}, err
	}
	return ListDatabasesResult{
		Application: args.Application.App,
		Databases:   nonNil(dbs),
		Count:       len(dbs),
	}, nil
}

// ListDimensionsMCP is the MCP wrapper for ListDimensions
func (c *Client) ListDimensionsMCP(ctx context.Context, args ListDimensionsArgs) (ListDimensionsResult, error) {
	dims, err := c.ListDimensions(ctx, args.Database)
	if err != nil {
		return ListDimensionsResult{}, err
	}
	return ListDimensionsResult{
		Application: args.Database.App,
		Database:    args.Database.DB,
		Dimensions:  nonNil(dims),
		Count:       len(dims),
	}, nil
}

// SearchMembersMCP is the MCP wrapper for SearchMembers
func (c *Client) SearchMembersMCP(ctx context.Context, args SearchMembersArgs) (SearchMembersResult, error) {
	if err := ValidateEntityNames(args.EntityNames); err != nil {
		return SearchMembersResult{}, err
	}

	results, err := c.SearchMembers(ctx, args.Database, args.EntityNames)
	if err != nil {
		return SearchMembersResult{}, err
	}

	out := SearchMembersResult{Results: results}
	for _, r := range results {
		if r.Member != nil {
			out.Resolved++
		} else {
			out.Unresolved++
		}
	}
	return out, nil
}

// nonNil keeps empty lists as [] rather than null in JSON output
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
