package planning

import "context"

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
	if apps == nil {
		apps = []string{}
	}
	return ListApplicationsResult{Applications: apps, Count: len(apps)}, nil
}
