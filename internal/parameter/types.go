package parameter

import (
	"encoding/json"
	"strings"
)

// Type categories.
const (
	CategoryInput    = "input"
	CategoryTextarea = "textarea"
	CategorySelect   = "select"
)

// Select kinds.
const (
	KindSelect   = "select"
	KindNodePool = "nodepool"
)

// Type is the dotted category.kind tag of a parameter. The zero value is not
// valid; use ParseType.
type Type struct {
	Category string
	Kind     string
}

var (
	TypeInputText = Type{Category: CategoryInput, Kind: "text"}
	TypeTextarea  = Type{Category: CategoryTextarea, Kind: CategoryTextarea}
	TypeSelect    = Type{Category: CategorySelect, Kind: KindSelect}
	TypeNodePool  = Type{Category: CategorySelect, Kind: KindNodePool}
)

// ParseType lower-cases raw and maps it onto the closed taxonomy. Anything
// unrecognized becomes input.text.
func ParseType(raw string) Type {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return TypeInputText
	}

	category, kind, _ := strings.Cut(raw, ".")
	switch category {
	case CategoryInput:
		if kind == "" {
			kind = "text"
		}
		return Type{Category: CategoryInput, Kind: kind}
	case CategoryTextarea:
		if kind == CategoryTextarea {
			return TypeTextarea
		}
	case CategorySelect:
		switch kind {
		case KindSelect:
			return TypeSelect
		case KindNodePool:
			return TypeNodePool
		}
	}
	return TypeInputText
}

func (t Type) String() string {
	return t.Category + "." + t.Kind
}

// IsChoice reports whether values of this type are picked from options.
func (t Type) IsChoice() bool {
	return t.Category == CategorySelect
}

// InputKind is the native input flavor for input.* types ("text" otherwise).
func (t Type) InputKind() string {
	if t.Category == CategoryInput {
		return t.Kind
	}
	return "text"
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = TypeInputText
		return nil
	}
	*t = ParseType(*raw)
	return nil
}
