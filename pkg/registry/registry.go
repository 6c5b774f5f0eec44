// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Default returns the built-in catalog registry.
func Default() *OperationRegistry {
	return &OperationRegistry{
		Version:    "1.0.0",
		Operations: defaultOperations(),
	}
}

// LoadRegistry reads a registry file. Operations it does not mention keep
// their built-in definition.
func LoadRegistry(path string) (*OperationRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg OperationRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}

	merged := Default()
	merged.Version = reg.Version
	merged.LastUpdated = reg.LastUpdated
	for _, op := range reg.Operations {
		merged.put(op)
	}
	return merged, nil
}

func (r *OperationRegistry) put(op Operation) {
	for i := range r.Operations {
		if r.Operations[i].ID == op.ID {
			r.Operations[i] = op
			return
		}
	}
	r.Operations = append(r.Operations, op)
}

// Get looks an operation up by ID.
func (r *OperationRegistry) Get(id string) (Operation, bool) {
	for _, op := range r.Operations {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// Expand fills the {name} placeholders of the operation path. Values are
// path-escaped.
func (op Operation) Expand(params map[string]string) (string, error) {
	path := op.Path
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if strings.ContainsAny(path, "{}") {
		return "", fmt.Errorf("operation %s: unresolved placeholder in %q", op.ID, path)
	}
	return path, nil
}

// Validate checks body against the operation response schema and returns
// the violations. An empty schema accepts everything.
func (op Operation) Validate(body []byte) ([]string, error) {
	if len(op.ResponseSchema) == 0 {
		return nil, nil
	}

	schemaLoader := gojsonschema.NewGoLoader(op.ResponseSchema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs, nil
}

// Save writes the registry as indented JSON.
func Save(reg *OperationRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Check reports the first structural problem in the registry: a missing or
// duplicate ID, a bad method or path, an uncompilable schema, or a missing
// operation the client relies on.
func (r *OperationRegistry) Check() error {
	if len(r.Operations) == 0 {
		return fmt.Errorf("registry contains no operations")
	}

	seen := make(map[string]bool)
	for _, op := range r.Operations {
		if op.ID == "" {
			return fmt.Errorf("operation missing required field: id")
		}
		if seen[op.ID] {
			return fmt.Errorf("duplicate operation ID: %s", op.ID)
		}
		seen[op.ID] = true

		switch op.Method {
		case "GET", "POST", "PUT", "PATCH", "DELETE":
		default:
			return fmt.Errorf("operation %s: unsupported method %q", op.ID, op.Method)
		}
		if !strings.HasPrefix(op.Path, "/") {
			return fmt.Errorf("operation %s: path must start with /", op.ID)
		}
		if len(op.ResponseSchema) > 0 {
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(op.ResponseSchema)); err != nil {
				return fmt.Errorf("operation %s: invalid response schema: %w", op.ID, err)
			}
		}
	}

	for _, id := range []string{OpListTemplates, OpListVersions, OpGetSchema, OpPreflightCount, OpDispatch, OpNodePool} {
		if !seen[id] {
			return fmt.Errorf("registry is missing operation %s", id)
		}
	}
	return nil
}
