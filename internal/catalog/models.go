// internal/catalog/models.go
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"workflow-submit/internal/parameter"
)

// DefaultVersion is used when a template or request carries no version.
const DefaultVersion = "0"

// Template is a named, versioned workflow template.
type Template struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Version is one published version of a template.
type Version struct {
	Version  string `json:"version"`
	IsLatest bool   `json:"is_latest"`
}

// PreflightCount holds the number of annotated objects already on a task.
type PreflightCount struct {
	AnnotatedShapeCount int `json:"annotatedShapeCount"`
	TrackedObjectCount  int `json:"trackedObjectCount"`
}

// DispatchPayload is the body of an execution request.
type DispatchPayload struct {
	WorkflowTemplate string           `json:"workflow_template"`
	Parameters       parameter.Values `json:"parameters"`
}

// DispatchResult is the answer to a successful execution request.
type DispatchResult struct {
	URL string `json:"url"`
}

// NodePool lists the machine pools a select.nodepool parameter offers.
type NodePool struct {
	Label       string             `json:"label"`
	Options     []parameter.Option `json:"options"`
	Hint        string             `json:"hint,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
}

// NormalizeVersion maps "none", empty and absent versions to "0".
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "none") {
		return DefaultVersion
	}
	return v
}

// Wire shapes.

type listResponse struct {
	Count             *int              `json:"count"`
	Templates         []json.RawMessage `json:"templates"`
	WorkflowTemplates []json.RawMessage `json:"workflow_templates"`
}

type wireTemplate struct {
	UID     *string         `json:"uid"`
	Name    *string         `json:"name"`
	Version json.RawMessage `json:"version"`
}

// parseTemplate decodes one listing entry. It reports false for entries that
// are not objects, carry mistyped fields or lack a uid or a name.
func parseTemplate(raw json.RawMessage) (Template, bool) {
	var w wireTemplate
	if err := json.Unmarshal(raw, &w); err != nil {
		return Template{}, false
	}
	return w.toTemplate()
}

// toTemplate reports false for entries lacking a uid or a name.
func (w wireTemplate) toTemplate() (Template, bool) {
	if w.UID == nil || w.Name == nil {
		return Template{}, false
	}
	uid := strings.TrimSpace(*w.UID)
	name := strings.TrimSpace(*w.Name)
	if uid == "" || name == "" {
		return Template{}, false
	}
	return Template{UID: uid, Name: name, Version: NormalizeVersion(rawVersion(w.Version))}, true
}

type versionsResponse struct {
	Versions []struct {
		Version  json.RawMessage `json:"version"`
		IsLatest *bool           `json:"is_latest"`
	} `json:"versions"`
}

type schemaResponse struct {
	Parameters []parameter.Parameter `json:"parameters"`
}

type countsResponse struct {
	Shapes []json.RawMessage `json:"shapes"`
	Tracks []json.RawMessage `json:"tracks"`
}

type dispatchErrorBody struct {
	Status     json.RawMessage `json:"status"`
	StatusText string          `json:"statusText"`
	Message    string          `json:"message"`
}

type nodePoolResponse struct {
	NodePool struct {
		Label       *string            `json:"label"`
		Options     []parameter.Option `json:"options"`
		Hint        *string            `json:"hint"`
		DisplayName *string            `json:"display_name"`
	} `json:"node_pool"`
}

func rawVersion(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
