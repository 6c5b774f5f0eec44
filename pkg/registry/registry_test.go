package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasEveryOperation(t *testing.T) {
	reg := Default()
	for _, id := range []string{OpListTemplates, OpListVersions, OpGetSchema, OpPreflightCount, OpDispatch, OpNodePool} {
		op, ok := reg.Get(id)
		require.True(t, ok, id)
		assert.NotEmpty(t, op.Path)
		assert.NotEmpty(t, op.ResponseSchema)
	}
	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestOperation_Expand(t *testing.T) {
	op, _ := Default().Get(OpGetSchema)

	path, err := op.Expand(map[string]string{"uid": "maskrcnn training", "version": "0"})
	require.NoError(t, err)
	assert.Equal(t, "/onepanelio/workflow_templates/maskrcnn%20training/versions/0", path)

	_, err = op.Expand(map[string]string{"uid": "x"})
	assert.Error(t, err)
}

func TestOperation_Validate(t *testing.T) {
	reg := Default()

	tests := []struct {
		name      string
		op        string
		body      string
		wantValid bool
	}{
		{"listing", OpListTemplates, `{"count":1,"workflow_templates":[{"uid":"a","name":"A","version":"none"}]}`, true},
		{"listing entry without uid", OpListTemplates, `{"count":1,"templates":[{"name":"A"}]}`, true},
		{"listing mistyped entries", OpListTemplates, `{"workflow_templates":[{"uid":42},"garbage",null]}`, true},
		{"listing wrong type", OpListTemplates, `{"count":"one"}`, false},
		{"listing not an array", OpListTemplates, `{"templates":"t1"}`, false},
		{"schema", OpGetSchema, `{"parameters":[{"name":"lr","value":0.01,"type":"input.number"}]}`, true},
		{"schema without parameters", OpGetSchema, `{}`, false},
		{"schema parameter without name", OpGetSchema, `{"parameters":[{"value":"x"}]}`, false},
		{"counts", OpPreflightCount, `{"shapes":[1,2],"tracks":[]}`, true},
		{"counts missing tracks", OpPreflightCount, `{"shapes":[]}`, false},
		{"dispatch", OpDispatch, `{"url":"http://x"}`, true},
		{"node pool", OpNodePool, `{"node_pool":{"label":"Node pool","options":[{"name":"a","value":"b"}]}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := reg.Get(tt.op)
			require.True(t, ok)

			violations, err := op.Validate([]byte(tt.body))
			require.NoError(t, err)
			if tt.wantValid {
				assert.Empty(t, violations)
			} else {
				assert.NotEmpty(t, violations)
			}
		})
	}
}

func TestOperation_Validate_NotJSON(t *testing.T) {
	op, _ := Default().Get(OpDispatch)
	_, err := op.Validate([]byte("<html>"))
	assert.Error(t, err)
}

func TestLoadRegistry_OverridesByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog-registry.json")
	body := `{"version":"2.0.0","operations":[{"id":"execute-workflow","method":"POST","path":"/v2/execute/{taskId}"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", reg.Version)
	op, ok := reg.Get(OpDispatch)
	require.True(t, ok)
	assert.Equal(t, "/v2/execute/{taskId}", op.Path)
	assert.Empty(t, op.ResponseSchema)

	_, ok = reg.Get(OpGetSchema)
	assert.True(t, ok)
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "catalog-registry.json")
	require.NoError(t, Save(Default(), path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.NoError(t, loaded.Check())
	assert.Len(t, loaded.Operations, len(Default().Operations))
}

func TestOperationRegistry_Check(t *testing.T) {
	assert.NoError(t, Default().Check())

	tests := []struct {
		name    string
		mutate  func(r *OperationRegistry)
		wantErr string
	}{
		{"empty", func(r *OperationRegistry) { r.Operations = nil }, "no operations"},
		{"duplicate", func(r *OperationRegistry) { r.Operations = append(r.Operations, r.Operations[0]) }, "duplicate operation ID"},
		{"missing id", func(r *OperationRegistry) { r.Operations[0].ID = "" }, "missing required field"},
		{"bad method", func(r *OperationRegistry) { r.Operations[0].Method = "FETCH" }, "unsupported method"},
		{"relative path", func(r *OperationRegistry) { r.Operations[0].Path = "onepanelio" }, "must start with /"},
		{"bad schema", func(r *OperationRegistry) {
			r.Operations[0].ResponseSchema = map[string]interface{}{"type": 12}
		}, "invalid response schema"},
		{"missing operation", func(r *OperationRegistry) { r.Operations = r.Operations[1:] }, "missing operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := Default()
			tt.mutate(reg)
			err := reg.Check()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
