package planning

import (
	"errors"
	"testing"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

func TestRESTBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://epm.example.com:9000", "https://epm.example.com:9000/HyperionPlanning/rest/v3", false},
		{"https://epm.example.com/workspace/index.jsp", "https://epm.example.com/HyperionPlanning/rest/v3", false},
		{"http://user:pw@10.0.0.5:19000/HyperionPlanning/rest/v3/applications?q=1", "http://10.0.0.5:19000/HyperionPlanning/rest/v3", false},
		{"http://[::1]:9000", "http://[::1]:9000/HyperionPlanning/rest/v3", false},
		{"ftp://epm.example.com", "", true},
		{"epm.example.com", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := RESTBaseURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RESTBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		field   string
	}{
		{"valid", Profile{URL: "https://epm.example.com", User: "u", Password: "p"}, ""},
		{"missing url", Profile{User: "u", Password: "p"}, "url"},
		{"bad url", Profile{URL: "mailto:x", User: "u", Password: "p"}, "url"},
		{"missing user", Profile{URL: "https://epm.example.com", Password: "p"}, "user"},
		{"missing password", Profile{URL: "https://epm.example.com", User: "u"}, "pwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.profile)
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var verr *apierrors.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("err = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}
