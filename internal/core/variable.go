package core

// Variable is a pipeline variable: a *VariableGroup reference or a
// *NamedVariable. Shapes are tried in that order.
type Variable interface {
	isVariable()
}

// VariableGroup pulls in every variable of a library group.
type VariableGroup struct {
	Group string
}

// NamedVariable defines one variable with the full name/value syntax.
type NamedVariable struct {
	Name  string
	Value string
}

func (*VariableGroup) isVariable() {}
func (*NamedVariable) isVariable() {}

// DecodeVariable decodes one entry of a variables list.
func DecodeVariable(v Value) (Variable, error) {
	return decodeVariable(v, "")
}

func decodeVariable(v Value, path string) (Variable, error) {
	return firstMatch("variable", v, path, []variant[Variable]{
		{shape: "group", decode: func(v Value, path string) (Variable, error) {
			o, err := openObject(v, path, "group")
			if err != nil {
				return nil, err
			}
			group, err := o.requiredString("group")
			if err != nil {
				return nil, err
			}
			return &VariableGroup{Group: group}, nil
		}},
		{shape: "variable", decode: func(v Value, path string) (Variable, error) {
			o, err := openObject(v, path, "name", "value")
			if err != nil {
				return nil, err
			}
			var nv NamedVariable
			if nv.Name, err = o.requiredString("name"); err != nil {
				return nil, err
			}
			if nv.Value, err = o.requiredText("value"); err != nil {
				return nil, err
			}
			return &nv, nil
		}},
	})
}
