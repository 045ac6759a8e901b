package essbase

import "github.com/olgasafonova/essbase-mcp-server/internal/outline"

// ConnectArgs contains parameters for verifying a connection
type ConnectArgs struct {
	Profile Profile `json:"profile" jsonschema:"Essbase connection profile"`
}

// ConnectResult is the result of a successful connection check
type ConnectResult struct {
	Profile   Profile `json:"profile"`
	Connected bool    `json:"connected"`
}

// ListApplicationsArgs contains parameters for listing applications
type ListApplicationsArgs struct {
	Profile Profile `json:"profile" jsonschema:"Connected Essbase profile"`
}

// ListApplicationsResult lists the applications visible to the user
type ListApplicationsResult struct {
	Applications []string `json:"applications"`
	Count        int      `json:"count"`
}

// ListDatabasesArgs contains parameters for listing databases
type ListDatabasesArgs struct {
	Application Application `json:"app_profile" jsonschema:"Essbase connection plus application name"`
}

// ListDatabasesResult lists the databases of an application
type ListDatabasesResult struct {
	Application string   `json:"application"`
	Databases   []string `json:"databases"`
	Count       int      `json:"count"`
}

// ListDimensionsArgs contains parameters for listing dimensions
type ListDimensionsArgs struct {
	Database Database `json:"db_profile" jsonschema:"Essbase connection plus application and database name"`
}

// ListDimensionsResult lists the dimensions of a database
type ListDimensionsResult struct {
	Application string   `json:"application"`
	Database    string   `json:"database"`
	Dimensions  []string `json:"dimensions"`
	Count       int      `json:"count"`
}

// SearchMembersArgs contains parameters for resolving member names
type SearchMembersArgs struct {
	Database    Database `json:"db_profile" jsonschema:"Essbase connection plus application and database name"`
	EntityNames []string `json:"entity_names" jsonschema:"Member names or aliases to look up, in order"`
}

// SearchMembersResult pairs every requested name with its resolved member.
// Results follow the order of entity_names; a null member means no match.
type SearchMembersResult struct {
	Results    []outline.Resolution `json:"results"`
	Resolved   int                  `json:"resolved"`
	Unresolved int                  `json:"unresolved"`
}
