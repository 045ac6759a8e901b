package planning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

func newTestClient() *Client {
	return NewClient(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func testProfile(serverURL string) Profile {
	return Profile{URL: serverURL, User: "planner", Password: "secret"}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RESTPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, pwd, ok := r.BasicAuth()
		if !ok || user != "planner" || pwd != "secret" {
			t.Errorf("basic auth = %q/%q (ok=%v)", user, pwd, ok)
		}
		writeJSON(w, map[string]any{"items": []any{}})
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	profile, err := client.Connect(context.Background(), testProfile(server.URL+"/workspace/index.jsp?x=1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.URL != server.URL+RESTPath {
		t.Errorf("URL = %q, want %q", profile.URL, server.URL+RESTPath)
	}
	if profile.User != "planner" || profile.Password != "secret" {
		t.Errorf("credentials not carried over: %+v", profile)
	}
}

func TestConnect_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	_, err := client.Connect(context.Background(), testProfile(server.URL))
	if err == nil || !strings.Contains(err.Error(), "unexpected Content-Type") {
		t.Errorf("err = %v, want Content-Type error", err)
	}
}

func TestConnect_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	_, err := client.Connect(context.Background(), testProfile(server.URL))
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Body != "bad credentials" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestListApplications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RESTPath+"/applications" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, map[string]any{"items": []map[string]string{
			{"name": "Vision", "type": "EPBCS"},
			{"name": "PlanFin"},
		}})
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	apps, err := client.ListApplications(context.Background(), testProfile(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(apps, ",") != "Vision,PlanFin" {
		t.Errorf("apps = %v", apps)
	}
}

func TestListApplications_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal", http.StatusInternalServerError)
			},
			check: apierrors.IsAPIError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"items": "nope"}`))
			},
			check: func(err error) bool { return strings.Contains(err.Error(), "failed to parse") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient()
			defer client.Close()

			_, err := client.ListApplications(context.Background(), testProfile(server.URL))
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestListApplications_InvalidProfile(t *testing.T) {
	client := newTestClient()
	defer client.Close()

	_, err := client.ListApplications(context.Background(), Profile{URL: "https://epm.example.com"})
	if !apierrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
