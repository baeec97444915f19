package core

import "fmt"

// TriggerDisabled is the sentinel that switches a trigger off (`trigger: none`).
const TriggerDisabled = "none"

// Trigger is a CI or pull request trigger: either DisabledTrigger or a
// *FilterTrigger. Shapes are tried in that order.
type Trigger interface {
	isTrigger()
}

// DisabledTrigger turns the trigger off.
type DisabledTrigger struct{}

// FilterTrigger runs the pipeline for matching branches and paths.
type FilterTrigger struct {
	Branches *TriggerFilter
	Paths    *TriggerFilter
}

// TriggerFilter lists items to include and exclude.
type TriggerFilter struct {
	Include []string
	Exclude []string
}

func (DisabledTrigger) isTrigger() {}
func (*FilterTrigger) isTrigger()  {}

// DecodeTrigger decodes a trigger node.
func DecodeTrigger(v Value) (Trigger, error) {
	return decodeTrigger(v, "")
}

func decodeTrigger(v Value, path string) (Trigger, error) {
	return firstMatch("trigger", v, path, []variant[Trigger]{
		{shape: "none", decode: decodeDisabledTrigger},
		{shape: "trigger", decode: decodeFilterTrigger},
	})
}

func decodeDisabledTrigger(v Value, path string) (Trigger, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, typeMismatch(path, "", "string", v)
	}
	if s != TriggerDisabled {
		return nil, &DecodeError{Code: ErrTypeMismatch, Path: path, Expected: fmt.Sprintf("%q", TriggerDisabled), Actual: fmt.Sprintf("%q", s)}
	}
	return DisabledTrigger{}, nil
}

func decodeFilterTrigger(v Value, path string) (Trigger, error) {
	o, err := openObject(v, path, "branches", "paths")
	if err != nil {
		return nil, err
	}
	var t FilterTrigger
	if t.Branches, err = decodeTriggerFilter(o, "branches"); err != nil {
		return nil, err
	}
	if t.Paths, err = decodeTriggerFilter(o, "paths"); err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeTriggerFilter(parent *object, key string) (*TriggerFilter, error) {
	raw, ok := parent.lookup(key)
	if !ok {
		return nil, nil
	}
	o, err := openObject(raw, parent.child(key), "include", "exclude")
	if err != nil {
		return nil, err
	}
	var f TriggerFilter
	if f.Include, err = o.stringList("include"); err != nil {
		return nil, err
	}
	if f.Exclude, err = o.stringList("exclude"); err != nil {
		return nil, err
	}
	return &f, nil
}
