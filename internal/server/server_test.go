// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"workflow-submit/internal/catalog"
	apperrors "workflow-submit/internal/common/errors"
	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/orchestrator"
	"workflow-submit/internal/parameter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type stubCatalog struct {
	mu          sync.Mutex
	count       catalog.PreflightCount
	dispatchErr error
	payloads    []catalog.DispatchPayload
}

func (c *stubCatalog) ListTemplates(ctx context.Context) ([]catalog.Template, error) {
	return []catalog.Template{{UID: "t1", Name: "T1", Version: "0"}}, nil
}

func (c *stubCatalog) GetSchema(ctx context.Context, uid, version string) ([]parameter.Parameter, error) {
	return []parameter.Parameter{
		{Name: "lr", Type: parameter.TypeInputText, Value: "0.01", Visibility: parameter.VisibilityPublic},
		{
			Name:       "model",
			Type:       parameter.TypeSelect,
			Value:      "frcnn",
			Options:    []parameter.Option{{Value: "frcnn", Label: "Faster RCNN"}, {Value: "ssd", Label: "SSD"}},
			Visibility: parameter.VisibilityPublic,
		},
		{Name: "secret", Type: parameter.TypeInputText, Value: "x"},
	}, nil
}

func (c *stubCatalog) GetPreflightCount(ctx context.Context, taskID string) (catalog.PreflightCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

func (c *stubCatalog) Dispatch(ctx context.Context, taskID string, payload catalog.DispatchPayload) (catalog.DispatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	if c.dispatchErr != nil {
		return catalog.DispatchResult{}, c.dispatchErr
	}
	return catalog.DispatchResult{URL: "http://onepanel/workflows/run-1"}, nil
}

type testResponse struct {
	Dialog struct {
		State         string `json:"state"`
		SubmitEnabled bool   `json:"submitEnabled"`
		CancelEnabled bool   `json:"cancelEnabled"`
		Templates     []struct {
			UID string `json:"uid"`
		} `json:"templates"`
		Fields []struct {
			Parameter struct {
				Name string `json:"name"`
			} `json:"parameter"`
			Value string `json:"value"`
		} `json:"fields"`
		Prompt *struct {
			Reason string `json:"reason"`
		} `json:"prompt"`
	} `json:"dialog"`
	Notices []struct {
		Level     string `json:"level"`
		Title     string `json:"title"`
		Message   string `json:"message"`
		DetailURL string `json:"detailUrl"`
	} `json:"notices"`
	Code string `json:"code"`
}

// ==========================
// Test Helper Functions
// ==========================

func createTestServer(t *testing.T, cat orchestrator.Catalog) *httptest.Server {
	t.Helper()
	s := New(&orchestrator.Config{SmallDatasetThreshold: 100}, cat, nil, logger.NewTestLogger(t))
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method, path, body string) (int, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out testResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// ==========================
// Tests
// ==========================

func TestServer_SubmitWithPrompt(t *testing.T) {
	cat := &stubCatalog{count: catalog.PreflightCount{AnnotatedShapeCount: 5}}
	server := createTestServer(t, cat)

	status, resp := call(t, server, http.MethodPost, "/tasks/42/dialog", `{"name":"street-signs"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", resp.Dialog.State)
	require.Len(t, resp.Dialog.Templates, 1)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":"t1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready_to_submit", resp.Dialog.State)
	require.Len(t, resp.Dialog.Fields, 2)
	assert.True(t, resp.Dialog.SubmitEnabled)

	status, _ = call(t, server, http.MethodPost, "/tasks/42/dialog/parameters", `{"name":"lr","value":"0.05"}`)
	require.Equal(t, http.StatusOK, status)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/submit", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirming_submit", resp.Dialog.State)
	require.NotNil(t, resp.Dialog.Prompt)
	assert.Equal(t, "small_dataset", resp.Dialog.Prompt.Reason)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/prompt/confirm", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "closed", resp.Dialog.State)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, "success", resp.Notices[0].Level)
	assert.Equal(t, "http://onepanel/workflows/run-1", resp.Notices[0].DetailURL)

	require.Len(t, cat.payloads, 1)
	assert.Equal(t, map[string]string{"lr": "0.05", "model": "frcnn", "secret": "x"}, cat.payloads[0].Parameters.Payload())

	status, resp = call(t, server, http.MethodGet, "/tasks/42/dialog", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DIALOG_NOT_FOUND", resp.Code)
}

func TestServer_NoticesHandedOutOnce(t *testing.T) {
	cat := &stubCatalog{
		count:       catalog.PreflightCount{TrackedObjectCount: 1},
		dispatchErr: apperrors.NewDispatchRejectedError(400, "quota exceeded"),
	}
	server := createTestServer(t, cat)

	call(t, server, http.MethodPost, "/tasks/7/dialog", "")
	call(t, server, http.MethodPost, "/tasks/7/dialog/template", `{"uid":"t1"}`)
	_, resp := call(t, server, http.MethodPost, "/tasks/7/dialog/submit", "")
	require.Len(t, resp.Notices, 1)

	status, resp := call(t, server, http.MethodGet, "/tasks/7/dialog", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.Notices)
}

func TestServer_ClosedDialogsAreEvicted(t *testing.T) {
	s := New(&orchestrator.Config{SmallDatasetThreshold: 100},
		&stubCatalog{count: catalog.PreflightCount{AnnotatedShapeCount: 500}}, nil, logger.NewTestLogger(t))
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)

	call(t, server, http.MethodPost, "/tasks/1/dialog", "")
	call(t, server, http.MethodPost, "/tasks/2/dialog", "")
	require.Equal(t, 2, s.dialogCount())

	status, resp := call(t, server, http.MethodDelete, "/tasks/1/dialog", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "closed", resp.Dialog.State)
	assert.Equal(t, 1, s.dialogCount())

	call(t, server, http.MethodPost, "/tasks/2/dialog/template", `{"uid":"t1"}`)
	status, resp = call(t, server, http.MethodPost, "/tasks/2/dialog/submit", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "closed", resp.Dialog.State)
	assert.Equal(t, 0, s.dialogCount())

	status, _ = call(t, server, http.MethodPost, "/tasks/1/dialog", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, s.dialogCount())
}

func TestServer_RejectedTransitionIsConflict(t *testing.T) {
	server := createTestServer(t, &stubCatalog{})

	call(t, server, http.MethodPost, "/tasks/42/dialog", "")

	status, resp := call(t, server, http.MethodPost, "/tasks/42/dialog/submit", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TRANSITION_REJECTED", resp.Code)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/prompt/cancel", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TRANSITION_REJECTED", resp.Code)
}

func TestServer_ValidationErrors(t *testing.T) {
	server := createTestServer(t, &stubCatalog{})

	call(t, server, http.MethodPost, "/tasks/42/dialog", "")

	status, resp := call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":"ghost"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "UNKNOWN_TEMPLATE", resp.Code)

	call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":"t1"}`)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/parameters", `{"name":"model","value":"yolo"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "NOT_AN_OPTION", resp.Code)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/parameters", `{"name":"secret","value":"y"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "UNKNOWN_PARAMETER", resp.Code)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BODY", resp.Code)
}

func TestServer_DispatchFailureStaysOpen(t *testing.T) {
	cat := &stubCatalog{
		count:       catalog.PreflightCount{TrackedObjectCount: 1},
		dispatchErr: apperrors.NewDispatchRejectedError(400, "quota exceeded"),
	}
	server := createTestServer(t, cat)

	call(t, server, http.MethodPost, "/tasks/7/dialog", "")
	call(t, server, http.MethodPost, "/tasks/7/dialog/template", `{"uid":"t1"}`)

	status, resp := call(t, server, http.MethodPost, "/tasks/7/dialog/submit", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready_to_submit", resp.Dialog.State)
	assert.True(t, resp.Dialog.SubmitEnabled)
	assert.True(t, resp.Dialog.CancelEnabled)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, "error", resp.Notices[0].Level)
	assert.Equal(t, "quota exceeded", resp.Notices[0].Message)
}

func TestServer_CancelAndReopen(t *testing.T) {
	server := createTestServer(t, &stubCatalog{})

	call(t, server, http.MethodPost, "/tasks/42/dialog", "")
	call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":"t1"}`)
	call(t, server, http.MethodPost, "/tasks/42/dialog/parameters", `{"name":"lr","value":"0.7"}`)

	status, resp := call(t, server, http.MethodDelete, "/tasks/42/dialog", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "closed", resp.Dialog.State)

	status, resp = call(t, server, http.MethodPost, "/tasks/42/dialog", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", resp.Dialog.State)
	assert.Empty(t, resp.Dialog.Fields)

	_, resp = call(t, server, http.MethodPost, "/tasks/42/dialog/template", `{"uid":"t1"}`)
	assert.Equal(t, "0.01", resp.Dialog.Fields[0].Value)
}

func TestServer_UnknownDialog(t *testing.T) {
	server := createTestServer(t, &stubCatalog{})

	status, resp := call(t, server, http.MethodGet, "/tasks/99/dialog", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DIALOG_NOT_FOUND", resp.Code)
}

func TestServer_MetricsAndHealth(t *testing.T) {
	server := createTestServer(t, &stubCatalog{})

	resp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "submission_open_dialogs")

	resp, err = server.Client().Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
