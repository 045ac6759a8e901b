package planning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/olgasafonova/essbase-mcp-server/internal/errors"
)

func TestConnectMCP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"links": []any{}})
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	result, err := client.ConnectMCP(context.Background(), ConnectArgs{Profile: testProfile(server.URL)})
	require.NoError(t, err)
	assert.True(t, result.Connected)
	assert.Equal(t, server.URL+RESTPath, result.Profile.URL)
}

func TestConnectMCP_InvalidProfile(t *testing.T) {
	client := newTestClient()
	defer client.Close()

	_, err := client.ConnectMCP(context.Background(), ConnectArgs{Profile: Profile{User: "u", Password: "p"}})
	assert.True(t, apierrors.IsValidation(err))
}

func TestListApplicationsMCP_EmptyListEncodesAsArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{}})
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	result, err := client.ListApplicationsMCP(context.Background(), ListApplicationsArgs{Profile: testProfile(server.URL)})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"applications":[]`)
}

func TestListApplicationsMCP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]string{{"name": "Vision"}}})
	}))
	defer server.Close()

	client := newTestClient()
	defer client.Close()

	result, err := client.ListApplicationsMCP(context.Background(), ListApplicationsArgs{Profile: testProfile(server.URL)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vision"}, result.Applications)
	assert.Equal(t, 1, result.Count)
}
