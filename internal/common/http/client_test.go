package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_NewJSONRequest(t *testing.T) {
	var gotAuth, gotContentType, gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "tkn", 5*time.Second)
	req, err := client.NewJSONRequest(context.Background(), http.MethodPost, "/onepanelio/execute_workflow/7", map[string]string{"a": "b"})
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	body, err := ReadBody(resp)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tkn", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/onepanelio/execute_workflow/7", gotPath)
	assert.Equal(t, "b", gotBody["a"])
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClient_NewJSONRequest_NoTokenNoBody(t *testing.T) {
	client := NewClient("http://example.test", "", time.Second)
	req, err := client.NewJSONRequest(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Equal(t, "http://example.test/x", req.URL.String())
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(200))
	assert.True(t, IsSuccess(302))
	assert.False(t, IsSuccess(400))
	assert.False(t, IsSuccess(503))
	assert.False(t, IsSuccess(100))
}
