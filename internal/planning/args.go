package planning

// ConnectArgs contains parameters for verifying a Planning connection
type ConnectArgs struct {
	Profile Profile `json:"profile" jsonschema:"Planning connection profile"`
}

// ConnectResult is the result of a successful connection check
type ConnectResult struct {
	Profile   Profile `json:"profile"`
	Connected bool    `json:"connected"`
}

// ListApplicationsArgs contains parameters for listing Planning applications
type ListApplicationsArgs struct {
	Profile Profile `json:"profile" jsonschema:"Connected Planning profile"`
}

// ListApplicationsResult lists the Planning applications assigned to the user
type ListApplicationsResult struct {
	Applications []string `json:"applications"`
	Count        int      `json:"count"`
}
