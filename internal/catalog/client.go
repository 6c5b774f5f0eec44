// internal/catalog/client.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "workflow-submit/internal/common/errors"
	commonhttp "workflow-submit/internal/common/http"
	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/metrics"
	"workflow-submit/internal/parameter"
	"workflow-submit/pkg/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "workflow-submit/catalog"

// Client talks to the workflow catalog backend. Every failure it returns is
// an *errors.StandardError from the closed taxonomy. Nothing is retried.
type Client struct {
	config   *Config
	http     *commonhttp.Client
	registry *registry.OperationRegistry
	tracer   trace.Tracer
	logger   logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	reg := config.Registry
	if reg == nil {
		reg = registry.Default()
	}
	return &Client{
		config:   config,
		http:     commonhttp.NewClient(config.BaseURL, config.Token, config.Timeout),
		registry: reg,
		tracer:   otel.Tracer(tracerName),
		logger: log.WithFields(map[string]interface{}{
			"component": "catalog",
		}),
	}
}

// ListTemplates returns the well-formed templates. Entries without a uid or
// a name are dropped.
func (c *Client) ListTemplates(ctx context.Context) (templates []Template, err error) {
	ctx, op, end := c.begin(ctx, registry.OpListTemplates)
	defer func() { end(err) }()

	status, body, err := c.send(ctx, op, nil, nil)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if !commonhttp.IsSuccess(status) {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, statusError(status, body))
	}

	var resp listResponse
	if err := c.decode(op, body, &resp); err != nil {
		return nil, err
	}

	entries := make([]json.RawMessage, 0, len(resp.Templates)+len(resp.WorkflowTemplates))
	entries = append(entries, resp.Templates...)
	entries = append(entries, resp.WorkflowTemplates...)

	// The first entry of a uid wins, "templates" before "workflow_templates".
	templates = make([]Template, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	dropped, duplicates := 0, 0
	for _, entry := range entries {
		tpl, ok := parseTemplate(entry)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[tpl.UID]; dup {
			duplicates++
			continue
		}
		seen[tpl.UID] = struct{}{}
		templates = append(templates, tpl)
	}
	if dropped > 0 || duplicates > 0 {
		c.logger.Warn("dropped template entries", map[string]interface{}{
			"malformed":  dropped,
			"duplicates": duplicates,
			"kept":       len(templates),
		})
	}
	return templates, nil
}

// ListVersions returns the published versions of a template.
func (c *Client) ListVersions(ctx context.Context, uid string) (versions []Version, err error) {
	ctx, op, end := c.begin(ctx, registry.OpListVersions, attribute.String("template.uid", uid))
	defer func() { end(err) }()

	if strings.TrimSpace(uid) == "" {
		return nil, apperrors.NewTemplateNotFoundError(uid, "")
	}

	status, body, err := c.send(ctx, op, map[string]string{"uid": uid}, nil)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NewTemplateNotFoundError(uid, "")
	}
	if !commonhttp.IsSuccess(status) {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, statusError(status, body))
	}

	var resp versionsResponse
	if err := c.decode(op, body, &resp); err != nil {
		return nil, err
	}

	versions = make([]Version, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		versions = append(versions, Version{
			Version:  NormalizeVersion(rawVersion(v.Version)),
			IsLatest: v.IsLatest != nil && *v.IsLatest,
		})
	}
	return versions, nil
}

// GetSchema fetches the ordered parameter schema of (uid, version). An empty
// version means "0". The call has no side effects on the backend.
func (c *Client) GetSchema(ctx context.Context, uid, version string) (params []parameter.Parameter, err error) {
	version = NormalizeVersion(version)
	ctx, op, end := c.begin(ctx, registry.OpGetSchema,
		attribute.String("template.uid", uid),
		attribute.String("template.version", version),
	)
	defer func() { end(err) }()

	if strings.TrimSpace(uid) == "" {
		return nil, apperrors.NewTemplateNotFoundError(uid, version)
	}

	status, body, err := c.send(ctx, op, map[string]string{"uid": uid, "version": version}, nil)
	if err != nil {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NewTemplateNotFoundError(uid, version)
	}
	if !commonhttp.IsSuccess(status) {
		return nil, apperrors.NewCatalogUnavailableError(op.ID, statusError(status, body))
	}

	var resp schemaResponse
	if err := c.decode(op, body, &resp); err != nil {
		return nil, err
	}
	if resp.Parameters == nil {
		resp.Parameters = []parameter.Parameter{}
	}
	return resp.Parameters, nil
}

// GetPreflightCount returns how many shapes and tracks the task already has.
func (c *Client) GetPreflightCount(ctx context.Context, taskID string) (count PreflightCount, err error) {
	ctx, op, end := c.begin(ctx, registry.OpPreflightCount, attribute.String("task.id", taskID))
	defer func() { end(err) }()

	status, body, err := c.send(ctx, op, map[string]string{"taskId": taskID}, nil)
	if err != nil {
		return PreflightCount{}, apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if !commonhttp.IsSuccess(status) {
		return PreflightCount{}, apperrors.NewCatalogUnavailableError(op.ID, statusError(status, body))
	}

	var resp countsResponse
	if err := c.decode(op, body, &resp); err != nil {
		return PreflightCount{}, err
	}
	return PreflightCount{
		AnnotatedShapeCount: len(resp.Shapes),
		TrackedObjectCount:  len(resp.Tracks),
	}, nil
}

// Dispatch sends one execution request. A 4xx is DispatchRejected carrying
// the server message; a 5xx or a transport failure is DispatchUnavailable.
func (c *Client) Dispatch(ctx context.Context, taskID string, payload DispatchPayload) (result DispatchResult, err error) {
	ctx, op, end := c.begin(ctx, registry.OpDispatch,
		attribute.String("task.id", taskID),
		attribute.String("template.uid", payload.WorkflowTemplate),
	)
	defer func() { end(err) }()

	status, body, err := c.send(ctx, op, map[string]string{"taskId": taskID}, payload)
	if err != nil {
		return DispatchResult{}, apperrors.NewDispatchUnavailableError(status, "", err)
	}

	switch {
	case status >= 400 && status < 500:
		return DispatchResult{}, apperrors.NewDispatchRejectedError(status, dispatchReason(body))
	case !commonhttp.IsSuccess(status):
		return DispatchResult{}, apperrors.NewDispatchUnavailableError(status, dispatchReason(body), nil)
	}

	// The execution has started at this point; a body outside the contract
	// must not make the caller submit again.
	if violations, verr := op.Validate(body); verr != nil || len(violations) > 0 {
		c.logger.Warn("execution response does not match contract", map[string]interface{}{
			"taskId":     taskID,
			"violations": violations,
			"error":      fmt.Sprint(verr),
		})
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("failed to decode execution response", map[string]interface{}{
			"taskId": taskID,
			"error":  err.Error(),
		})
		return DispatchResult{}, nil
	}
	return result, nil
}

// GetNodePool returns the node pool choices offered by the backend.
func (c *Client) GetNodePool(ctx context.Context) (pool NodePool, err error) {
	ctx, op, end := c.begin(ctx, registry.OpNodePool)
	defer func() { end(err) }()

	status, body, err := c.send(ctx, op, nil, nil)
	if err != nil {
		return NodePool{}, apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if !commonhttp.IsSuccess(status) {
		return NodePool{}, apperrors.NewCatalogUnavailableError(op.ID, statusError(status, body))
	}

	var resp nodePoolResponse
	if err := c.decode(op, body, &resp); err != nil {
		return NodePool{}, err
	}
	return NodePool{
		Label:       deref(resp.NodePool.Label),
		Options:     resp.NodePool.Options,
		Hint:        parameter.SanitizeHint(deref(resp.NodePool.Hint)),
		DisplayName: deref(resp.NodePool.DisplayName),
	}, nil
}

// begin opens a span for the operation and returns a func that closes it and
// records metrics for the final error.
func (c *Client) begin(ctx context.Context, id string, attrs ...attribute.KeyValue) (context.Context, registry.Operation, func(error)) {
	op, ok := c.registry.Get(id)
	if !ok {
		op = registry.Operation{ID: id}
	}

	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "catalog."+id, trace.WithAttributes(attrs...))

	return ctx, op, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = strings.ToLower(string(apperrors.CodeOf(err)))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()

		metrics.CatalogRequests.WithLabelValues(id, outcome).Inc()
		metrics.CatalogRequestDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())

		c.logger.Debug("catalog request finished", map[string]interface{}{
			"operation":  id,
			"outcome":    outcome,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}

// send performs the request. Only transport failures are returned as errors;
// the status is left to the caller.
func (c *Client) send(ctx context.Context, op registry.Operation, params map[string]string, payload interface{}) (int, []byte, error) {
	if op.Path == "" {
		return 0, nil, fmt.Errorf("operation %s is not registered", op.ID)
	}
	path, err := op.Expand(params)
	if err != nil {
		return 0, nil, err
	}

	method := op.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := c.http.NewJSONRequest(ctx, method, path, payload)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}

	body, err := commonhttp.ReadBody(resp)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// decode validates body against the operation contract, then unmarshals it.
func (c *Client) decode(op registry.Operation, body []byte, into interface{}) error {
	violations, err := op.Validate(body)
	if err != nil {
		return apperrors.NewCatalogUnavailableError(op.ID, err)
	}
	if len(violations) > 0 {
		c.logger.Warn("catalog response does not match contract", map[string]interface{}{
			"operation":  op.ID,
			"violations": violations,
		})
		return apperrors.NewMalformedResponseError(op.ID, violations)
	}
	if err := json.Unmarshal(body, into); err != nil {
		return apperrors.NewCatalogUnavailableError(op.ID, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusError(status int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if snippet == "" {
		return fmt.Errorf("unexpected status %d", status)
	}
	return fmt.Errorf("unexpected status %d: %s", status, snippet)
}

// dispatchReason extracts the server-supplied message from an error body.
func dispatchReason(body []byte) string {
	var eb dispatchErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Message)
}
