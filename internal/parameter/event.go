package parameter

// ChangeEvent is the single way a form reports an edit. Source carries the
// originating UI event and is never interpreted.
type ChangeEvent struct {
	Parameter Parameter
	Value     Value
	Source    any
}

// NewChangeEvent builds an event whose value is tagged for p.
func NewChangeEvent(p Parameter, raw string, source any) (ChangeEvent, error) {
	v, err := p.NewValue(raw)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{Parameter: p, Value: v, Source: source}, nil
}
