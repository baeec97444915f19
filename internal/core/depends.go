package core

// DependsOn names the predecessors of a stage or job. It is a DependsOnName
// or a DependsOnList; both mean "this set of names". Shapes are tried in
// that order.
type DependsOn interface {
	Names() []string
	isDependsOn()
}

// DependsOnName is the single-name form, `dependsOn: build`.
type DependsOnName string

// DependsOnList is the list form, `dependsOn: [build, test]`. An empty list
// is distinct from no dependsOn at all.
type DependsOnList []string

func (d DependsOnName) Names() []string { return []string{string(d)} }
func (d DependsOnList) Names() []string { return d }

func (DependsOnName) isDependsOn() {}
func (DependsOnList) isDependsOn() {}

// DecodeDependsOn decodes a dependsOn node.
func DecodeDependsOn(v Value) (DependsOn, error) {
	return decodeDependsOn(v, "")
}

func decodeDependsOn(v Value, path string) (DependsOn, error) {
	return firstMatch("dependsOn", v, path, []variant[DependsOn]{
		{shape: "name", decode: func(v Value, path string) (DependsOn, error) {
			s, ok := v.AsString()
			if !ok {
				return nil, typeMismatch(path, "", "string", v)
			}
			return DependsOnName(s), nil
		}},
		{shape: "list", decode: func(v Value, path string) (DependsOn, error) {
			names, err := decodeStrings(v, path)
			if err != nil {
				return nil, err
			}
			return DependsOnList(names), nil
		}},
	})
}

func (o *object) dependsOn(key string) (DependsOn, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	return decodeDependsOn(v, o.child(key))
}
