package parameter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw  string
		want Type
	}{
		{"input.text", TypeInputText},
		{"INPUT.Number", Type{Category: CategoryInput, Kind: "number"}},
		{"input", TypeInputText},
		{"input.", TypeInputText},
		{"textarea.textarea", TypeTextarea},
		{"TextArea.TextArea", TypeTextarea},
		{"textarea.other", TypeInputText},
		{"select.select", TypeSelect},
		{"select.nodepool", TypeNodePool},
		{"select.radio", TypeInputText},
		{"checkbox.checkbox", TypeInputText},
		{"", TypeInputText},
		{"  ", TypeInputText},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseType(tt.raw))
		})
	}
}

func TestType_Helpers(t *testing.T) {
	assert.True(t, TypeSelect.IsChoice())
	assert.True(t, TypeNodePool.IsChoice())
	assert.False(t, TypeTextarea.IsChoice())
	assert.Equal(t, "number", ParseType("input.number").InputKind())
	assert.Equal(t, "text", TypeSelect.InputKind())
	assert.Equal(t, "select.nodepool", TypeNodePool.String())
}

func TestParameter_UnmarshalJSON_Normalizes(t *testing.T) {
	body := `{
		"name": "epochs",
		"type": "Input.Number",
		"value": 10,
		"required": null,
		"hint": "<b>Number</b> of epochs<script>alert(1)</script>",
		"display_name": " Epochs ",
		"visibility": "public"
	}`

	var p Parameter
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "epochs", p.Name)
	assert.Equal(t, Type{Category: CategoryInput, Kind: "number"}, p.Type)
	assert.Equal(t, "10", p.Value)
	assert.Nil(t, p.Required)
	assert.False(t, p.IsRequired())
	assert.Equal(t, "<b>Number</b> of epochs", p.Hint)
	assert.Equal(t, "Epochs", p.Label())
	assert.True(t, p.IsPublic())
}

func TestParameter_UnmarshalJSON_Defaults(t *testing.T) {
	var p Parameter
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","value":null,"type":null,"visibility":"internal"}`), &p))

	assert.Equal(t, TypeInputText, p.Type)
	assert.Equal(t, "", p.Value)
	assert.Equal(t, "x", p.Label())
	assert.False(t, p.IsPublic())
}

func TestParameter_UnmarshalJSON_Options(t *testing.T) {
	body := `{
		"name": "sys-node-pool",
		"type": "select.nodepool",
		"value": "Standard_D4s_v3",
		"required": true,
		"options": [
			{"name": "CPU: 4, RAM: 16GB", "value": "Standard_D4s_v3"},
			{"value": "Standard_NC6"}
		],
		"visibility": "public"
	}`

	var p Parameter
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.True(t, p.IsRequired())
	require.Len(t, p.Options, 2)
	assert.Equal(t, Option{Value: "Standard_D4s_v3", Label: "CPU: 4, RAM: 16GB"}, p.Options[0])
	assert.Equal(t, Option{Value: "Standard_NC6", Label: "Standard_NC6"}, p.Options[1])
}

func TestParameter_NewValue(t *testing.T) {
	sel := Parameter{
		Name:    "model",
		Type:    TypeSelect,
		Options: []Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}},
	}

	v, err := sel.NewValue("b")
	require.NoError(t, err)
	assert.Equal(t, KindOption, v.Kind())
	assert.Equal(t, "b", v.String())

	_, err = sel.NewValue("c")
	assert.ErrorIs(t, err, ErrNotAnOption)

	open := Parameter{Name: "pool", Type: TypeNodePool}
	v, err = open.NewValue("anything")
	require.NoError(t, err)
	assert.Equal(t, KindOption, v.Kind())

	text := Parameter{Name: "lr", Type: ParseType("input.number")}
	v, err = text.NewValue("0.05")
	require.NoError(t, err)
	assert.Equal(t, KindText, v.Kind())
}

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"a": Text("1"), "b": Selected("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1","b":"x"}`, string(data))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`0.010`), &v))
	assert.Equal(t, "0.010", v.String())
	require.NoError(t, json.Unmarshal([]byte(`true`), &v))
	assert.Equal(t, "true", v.String())
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &v))
}

func TestNewChangeEvent(t *testing.T) {
	p := Parameter{Name: "model", Type: TypeSelect, Options: []Option{{Value: "a"}}}

	event, err := NewChangeEvent(p, "a", "click")
	require.NoError(t, err)
	assert.Equal(t, "model", event.Parameter.Name)
	assert.Equal(t, Selected("a"), event.Value)
	assert.Equal(t, "click", event.Source)

	_, err = NewChangeEvent(p, "z", nil)
	assert.ErrorIs(t, err, ErrNotAnOption)
}

func TestSanitizeHint(t *testing.T) {
	assert.Equal(t, "", SanitizeHint("   "))
	assert.Equal(t, "plain", SanitizeHint(" plain "))
	assert.NotContains(t, SanitizeHint(`<a href="javascript:alert(1)">x</a>`), "javascript")
}
