// Package planning provides a client for the Oracle EPM Planning REST API.
// It verifies connection profiles and lists Planning applications.
package planning

// Profile carries the Planning connection details sent with every call.
type Profile struct {
	URL      string `json:"url" jsonschema:"EPM Planning server URL, e.g. https://epm.example.com:9000"`
	User     string `json:"user" jsonschema:"Planning user name"`
	Password string `json:"pwd" jsonschema:"Planning user password"`
}

// application is one element of the /applications collection
type application struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// applicationsResponse is the envelope of the /applications collection
type applicationsResponse struct {
	Items []application `json:"items"`
}

func (r applicationsResponse) names() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		names = append(names, item.Name)
	}
	return names
}
