// Package essbase provides a client for the Oracle Essbase REST API.
// It lists applications, databases and dimensions, and resolves member
// names against a database outline.
package essbase

import "github.com/olgasafonova/essbase-mcp-server/internal/outline"

// Profile carries the connection details sent with every call. There is
// no server-side session; credentials travel with each request.
type Profile struct {
	URL      string `json:"url" jsonschema:"Essbase server URL, e.g. https://essbase.example.com"`
	User     string `json:"user" jsonschema:"Essbase user name"`
	Password string `json:"pwd" jsonschema:"Essbase user password"`
}

// Application is a Profile scoped to one application.
type Application struct {
	URL      string `json:"url" jsonschema:"Essbase server URL"`
	User     string `json:"user" jsonschema:"Essbase user name"`
	Password string `json:"pwd" jsonschema:"Essbase user password"`
	App      string `json:"app" jsonschema:"Application name"`
}

// Database is a Profile scoped to one database of an application.
type Database struct {
	URL      string `json:"url" jsonschema:"Essbase server URL"`
	User     string `json:"user" jsonschema:"Essbase user name"`
	Password string `json:"pwd" jsonschema:"Essbase user password"`
	App      string `json:"app" jsonschema:"Application name"`
	DB       string `json:"db" jsonschema:"Database (cube) name"`
}

// Profile returns the connection part of the application scope.
func (a Application) Profile() Profile {
	return Profile{URL: a.URL, User: a.User, Password: a.Password}
}

// Profile returns the connection part of the database scope.
func (d Database) Profile() Profile {
	return Profile{URL: d.URL, User: d.User, Password: d.Password}
}

// Application returns the application part of the database scope.
func (d Database) Application() Application {
	return Application{URL: d.URL, User: d.User, Password: d.Password, App: d.App}
}

// namedItem is the element type of Essbase collection responses
type namedItem struct {
	Name string `json:"name"`
}

// itemsResponse is the envelope of Essbase collection responses
type itemsResponse struct {
	Items []namedItem `json:"items"`
}

// outlineSearchResponse is the response of the outline search endpoint
type outlineSearchResponse struct {
	Items []outline.Candidate `json:"items"`
}

func (r itemsResponse) names() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		names = append(names, item.Name)
	}
	return names
}
