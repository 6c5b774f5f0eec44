package parameter

// Values maps a parameter name to its current value.
type Values map[string]Value

// Seed builds the initial values from each parameter's declared default.
// Non-public parameters are kept so they reach the payload.
func Seed(schema []Parameter) Values {
	values := make(Values, len(schema))
	for _, p := range schema {
		values[p.Name] = p.DefaultValue()
	}
	return values
}

// Apply returns a copy of values with the event's parameter set to the
// event's value. Names outside the schema are accepted so a late event from
// a field that is no longer rendered cannot fail.
func Apply(values Values, event ChangeEvent) Values {
	next := values.Clone()
	next[event.Parameter.Name] = event.Value
	return next
}

// Visible returns the public parameters in schema order.
func Visible(schema []Parameter) []Parameter {
	visible := make([]Parameter, 0, len(schema))
	for _, p := range schema {
		if p.IsPublic() {
			visible = append(visible, p)
		}
	}
	return visible
}

func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Payload flattens the values to the name→string form sent on dispatch.
func (v Values) Payload() map[string]string {
	out := make(map[string]string, len(v))
	for k, val := range v {
		out[k] = val.String()
	}
	return out
}

// Get returns the value for name and whether it is set.
func (v Values) Get(name string) (Value, bool) {
	val, ok := v[name]
	return val, ok
}
