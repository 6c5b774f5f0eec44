// pkg/registry/schema.go
package registry

// OperationRegistry describes the workflow catalog endpoints and the JSON
// Schema each successful response must satisfy.
type OperationRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Operations  []Operation `json:"operations"`
}

type Operation struct {
	ID             string                 `json:"id"`
	DisplayName    string                 `json:"displayName"`
	Method         string                 `json:"method"`
	Path           string                 `json:"path"`
	ResponseSchema map[string]interface{} `json:"responseSchema"`
	ErrorCodes     []string               `json:"errorCodes"`
}

// Operation IDs.
const (
	OpListTemplates  = "list-templates"
	OpListVersions   = "list-versions"
	OpGetSchema      = "get-schema"
	OpPreflightCount = "get-object-counts"
	OpDispatch       = "execute-workflow"
	OpNodePool       = "get-node-pool"
)

func objectArray(props map[string]interface{}, required ...string) map[string]interface{} {
	item := map[string]interface{}{"type": "object"}
	if props != nil {
		item["properties"] = props
	}
	if len(required) > 0 {
		item["required"] = required
	}
	return map[string]interface{}{
		"type":  []interface{}{"array", "null"},
		"items": item,
	}
}

var scalar = map[string]interface{}{
	"type": []interface{}{"string", "number", "boolean", "null"},
}

var nullableString = map[string]interface{}{
	"type": []interface{}{"string", "null"},
}

var optionList = objectArray(map[string]interface{}{
	"name":  scalar,
	"value": scalar,
})

// Items are untyped: the client drops malformed entries one by one instead
// of rejecting the listing.
var templateList = map[string]interface{}{
	"type":  []interface{}{"array", "null"},
	"items": map[string]interface{}{},
}

func defaultOperations() []Operation {
	return []Operation{
		{
			ID:          OpListTemplates,
			DisplayName: "List workflow templates",
			Method:      "GET",
			Path:        "/onepanelio/workflow_templates",
			ResponseSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"count":              map[string]interface{}{"type": []interface{}{"integer", "null"}},
					"templates":          templateList,
					"workflow_templates": templateList,
				},
			},
			ErrorCodes: []string{"CATALOG_UNAVAILABLE"},
		},
		{
			ID:          OpListVersions,
			DisplayName: "List workflow template versions",
			Method:      "GET",
			Path:        "/onepanelio/workflow_templates/{uid}/versions",
			ResponseSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"count": map[string]interface{}{"type": []interface{}{"integer", "null"}},
					"versions": objectArray(map[string]interface{}{
						"version":   scalar,
						"is_latest": map[string]interface{}{"type": []interface{}{"boolean", "null"}},
					}, "version"),
				},
			},
			ErrorCodes: []string{"CATALOG_UNAVAILABLE", "TEMPLATE_NOT_FOUND"},
		},
		{
			ID:          OpGetSchema,
			DisplayName: "Get workflow template parameters",
			Method:      "GET",
			Path:        "/onepanelio/workflow_templates/{uid}/versions/{version}",
			ResponseSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"parameters"},
				"properties": map[string]interface{}{
					"parameters": objectArray(map[string]interface{}{
						"name":         map[string]interface{}{"type": "string", "minLength": 1},
						"type":         nullableString,
						"value":        scalar,
						"required":     map[string]interface{}{"type": []interface{}{"boolean", "null"}},
						"options":      optionList,
						"hint":         nullableString,
						"display_name": nullableString,
						"visibility":   nullableString,
					}, "name"),
				},
			},
			ErrorCodes: []string{"CATALOG_UNAVAILABLE", "TEMPLATE_NOT_FOUND"},
		},
		{
			ID:          OpPreflightCount,
			DisplayName: "Count annotated objects of a task",
			Method:      "POST",
			Path:        "/onepanelio/get_object_counts/{taskId}",
			ResponseSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"shapes", "tracks"},
				"properties": map[string]interface{}{
					"shapes": map[string]interface{}{"type": "array"},
					"tracks": map[string]interface{}{"type": "array"},
				},
			},
			ErrorCodes: []string{"CATALOG_UNAVAILABLE"},
		},
		{
			ID:          OpDispatch,
			DisplayName: "Execute workflow",
			Method:      "POST",
			Path:        "/onepanelio/execute_workflow/{taskId}",
			ResponseSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"url"},
				"properties": map[string]interface{}{
					"url": map[string]interface{}{"type": "string"},
				},
			},
			ErrorCodes: []string{"DISPATCH_REJECTED", "DISPATCH_UNAVAILABLE"},
		},
		{
			ID:          OpNodePool,
			DisplayName: "Get node pool",
			Method:      "POST",
			Path:        "/onepanelio/get_node_pool",
			ResponseSchema: map[string]interface{}{
				"type":     "object",
				"required": []string{"node_pool"},
				"properties": map[string]interface{}{
					"node_pool": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"label":        nullableString,
							"options":      optionList,
							"hint":         nullableString,
							"display_name": nullableString,
						},
					},
				},
			},
			ErrorCodes: []string{"CATALOG_UNAVAILABLE"},
		},
	}
}
