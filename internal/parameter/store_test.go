package parameter

import (
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func t1Schema() []Parameter {
	return []Parameter{
		{Name: "lr", Type: ParseType("input.number"), Value: "0.01", Visibility: VisibilityPublic},
		{Name: "secret", Type: ParseType("input.text"), Value: "x", Visibility: "private"},
	}
}

func TestSeed_IncludesNonPublic(t *testing.T) {
	values := Seed(t1Schema())

	want := map[string]string{"lr": "0.01", "secret": "x"}
	if diff := cmp.Diff(want, values.Payload()); diff != "" {
		t.Errorf("Seed() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeed_KeySetMatchesSchema(t *testing.T) {
	schemas := [][]Parameter{
		nil,
		t1Schema(),
		{
			{Name: "a", Type: TypeSelect, Value: "1", Visibility: "hidden"},
			{Name: "b", Type: TypeTextarea, Value: "", Visibility: VisibilityPublic},
			{Name: "c", Type: TypeNodePool, Value: "n1", Visibility: ""},
		},
	}

	for i, schema := range schemas {
		t.Run(fmt.Sprintf("schema-%d", i), func(t *testing.T) {
			var names []string
			for _, p := range schema {
				names = append(names, p.Name)
			}
			var keys []string
			for k := range Seed(schema) {
				keys = append(keys, k)
			}
			sort.Strings(names)
			sort.Strings(keys)
			assert.Equal(t, names, keys)
		})
	}
}

func TestSeed_TagsChoiceDefaults(t *testing.T) {
	values := Seed([]Parameter{
		{Name: "pool", Type: TypeNodePool, Value: "n1"},
		{Name: "notes", Type: TypeTextarea, Value: "hi"},
	})

	assert.Equal(t, KindOption, values["pool"].Kind())
	assert.Equal(t, KindText, values["notes"].Kind())
}

func TestApply_OnlyTargetChanges(t *testing.T) {
	schema := t1Schema()
	before := Seed(schema)

	after := Apply(before, ChangeEvent{Parameter: schema[0], Value: Text("0.05")})

	if diff := cmp.Diff(map[string]string{"lr": "0.05", "secret": "x"}, after.Payload()); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
	// The prior map is untouched.
	assert.Equal(t, "0.01", before["lr"].String())
}

func TestApply_SequenceNeverLosesKeys(t *testing.T) {
	schema := t1Schema()
	values := Seed(schema)

	events := []ChangeEvent{
		{Parameter: schema[0], Value: Text("0.1")},
		{Parameter: Parameter{Name: "stale"}, Value: Text("late")},
		{Parameter: schema[1], Value: Text("y")},
		{Parameter: schema[0], Value: Text("0.2")},
	}

	for _, event := range events {
		prev := values
		values = Apply(values, event)

		for k := range prev {
			assert.Contains(t, values, k)
			if k != event.Parameter.Name {
				assert.Equal(t, prev[k], values[k], "key %s changed", k)
			}
		}
		assert.Equal(t, event.Value, values[event.Parameter.Name])
	}

	want := map[string]string{"lr": "0.2", "secret": "y", "stale": "late"}
	if diff := cmp.Diff(want, values.Payload()); diff != "" {
		t.Errorf("final values mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_NilValues(t *testing.T) {
	values := Apply(nil, ChangeEvent{Parameter: Parameter{Name: "a"}, Value: Text("1")})
	assert.Equal(t, map[string]string{"a": "1"}, values.Payload())
}

func TestVisible_PublicOnlyInOrder(t *testing.T) {
	schema := []Parameter{
		{Name: "a", Visibility: VisibilityPublic},
		{Name: "b", Visibility: "private"},
		{Name: "c", Visibility: VisibilityPublic},
	}

	visible := Visible(schema)
	if assert.Len(t, visible, 2) {
		assert.Equal(t, "a", visible[0].Name)
		assert.Equal(t, "c", visible[1].Name)
	}
	assert.Empty(t, Visible(t1Schema()[1:]))
}

func TestValues_CloneIsIndependent(t *testing.T) {
	values := Values{"a": Text("1")}
	clone := values.Clone()
	clone["a"] = Text("2")

	assert.Equal(t, "1", values["a"].String())
	v, ok := clone.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v.String())
	_, ok = clone.Get("missing")
	assert.False(t, ok)
}
