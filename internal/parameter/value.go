package parameter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotAnOption is returned when a choice parameter receives a value that is
// not one of its options.
var ErrNotAnOption = errors.New("value is not one of the parameter options")

// ValueKind tags the representation held by a Value.
type ValueKind int

const (
	// KindText is free text, used by input.* and textarea.textarea.
	KindText ValueKind = iota
	// KindOption is the value of a selected option, used by select.*.
	KindOption
)

func (k ValueKind) String() string {
	if k == KindOption {
		return "option"
	}
	return "text"
}

// Value is a parameter value tagged with the shape its type allows. Both
// shapes travel as a plain string on the wire.
type Value struct {
	kind ValueKind
	raw  string
}

// Text builds a free-text value.
func Text(s string) Value {
	return Value{kind: KindText, raw: s}
}

// Selected builds an option value.
func Selected(s string) Value {
	return Value{kind: KindOption, raw: s}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) String() string { return v.raw }

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts a string, number, bool or null. The result is always
// a text value; the owning parameter decides the tag.
func (v *Value) UnmarshalJSON(data []byte) error {
	raw, err := scalarString(data)
	if err != nil {
		return err
	}
	*v = Text(raw)
	return nil
}

// NewValue builds the value of p for raw. Choice parameters with a known
// option list reject raws outside it.
func (p Parameter) NewValue(raw string) (Value, error) {
	if !p.Type.IsChoice() {
		return Text(raw), nil
	}
	if len(p.Options) == 0 {
		return Selected(raw), nil
	}
	for _, opt := range p.Options {
		if opt.Value == raw {
			return Selected(raw), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %q for %s", ErrNotAnOption, raw, p.Name)
}

// DefaultValue is the declared default of p, tagged by its type. Defaults are
// taken as declared even when they are not among the options.
func (p Parameter) DefaultValue() Value {
	if p.Type.IsChoice() {
		return Selected(p.Value)
	}
	return Text(p.Value)
}

func scalarString(data []byte) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", err
	}
	switch v := decoded.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64, bool:
		// Keep the literal so 0.010 stays 0.010.
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported parameter value %s", string(data))
	}
}
