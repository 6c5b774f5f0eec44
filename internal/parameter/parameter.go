// Package parameter holds the typed model of a workflow template parameter
// and the value store that backs the submission form.
package parameter

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// VisibilityPublic marks a parameter the user can see and edit. Every other
// visibility is payload-only.
const VisibilityPublic = "public"

// Option is one choice of a select parameter. On the wire it is
// {"name": <label>, "value": <value>}.
type Option struct {
	Value string `json:"value"`
	Label string `json:"name"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name  json.RawMessage `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var err error
	if o.Value, err = rawScalar(wire.Value); err != nil {
		return err
	}
	if o.Label, err = rawScalar(wire.Name); err != nil {
		return err
	}
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// Parameter is one configurable field of a template.
type Parameter struct {
	Name        string   `json:"name"`
	Type        Type     `json:"type"`
	Value       string   `json:"value"`
	Required    *bool    `json:"required"`
	Options     []Option `json:"options,omitempty"`
	Hint        string   `json:"hint,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Visibility  string   `json:"visibility"`
}

// UnmarshalJSON normalizes a schema entry at ingestion: the type is parsed,
// the default is coerced to a string and the hint is sanitized.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name        string          `json:"name"`
		Type        *string         `json:"type"`
		Value       json.RawMessage `json:"value"`
		Required    *bool           `json:"required"`
		Options     []Option        `json:"options"`
		Hint        *string         `json:"hint"`
		DisplayName *string         `json:"display_name"`
		Visibility  string          `json:"visibility"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	value, err := rawScalar(wire.Value)
	if err != nil {
		return err
	}

	*p = Parameter{
		Name:       wire.Name,
		Type:       TypeInputText,
		Value:      value,
		Required:   wire.Required,
		Options:    wire.Options,
		Visibility: wire.Visibility,
	}
	if wire.Type != nil {
		p.Type = ParseType(*wire.Type)
	}
	if wire.Hint != nil {
		p.Hint = SanitizeHint(*wire.Hint)
	}
	if wire.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*wire.DisplayName)
	}
	return nil
}

// Label is the display name, falling back to the parameter name.
func (p Parameter) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

func (p Parameter) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}

// IsRequired treats an unset flag as optional.
func (p Parameter) IsRequired() bool {
	return p.Required != nil && *p.Required
}

var (
	hintPolicyOnce sync.Once
	hintPolicy     *bluemonday.Policy
)

// SanitizeHint strips hint markup down to user-generated-content HTML.
func SanitizeHint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	hintPolicyOnce.Do(func() {
		hintPolicy = bluemonday.UGCPolicy()
		hintPolicy.RequireNoFollowOnLinks(true)
		hintPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return strings.TrimSpace(hintPolicy.Sanitize(trimmed))
}

func rawScalar(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	return scalarString(data)
}
