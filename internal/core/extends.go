package core

import (
	"maps"
	"slices"
)

// ExtendsParameters is the parameter block of the standard stages
// entrypoint template: `extends.parameters` once it has been given a schema.
type ExtendsParameters struct {
	Containers      map[string]string
	CustomBuildTags []string
	FeatureFlags    *FeatureFlags
	Stages          []Stage
}

// FeatureFlags enables optional pipeline features.
type FeatureFlags struct {
	Golang GolangFeatureFlags
}

// GolangFeatureFlags enables optional features for Go builds.
type GolangFeatureFlags struct {
	InternalModuleProxy ModuleProxy
}

// ModuleProxy toggles the internal Go module proxy.
type ModuleProxy struct {
	Enabled bool
}

// DecodeExtendsParameters decodes the parameters passed to the stages
// entrypoint. Unlike Extends.Parameters, the key set here is closed.
// Unknown keys are reported in sorted order.
func DecodeExtendsParameters(parameters map[string]Value) (*ExtendsParameters, error) {
	entries := make([]Entry, 0, len(parameters))
	for _, k := range slices.Sorted(maps.Keys(parameters)) {
		entries = append(entries, Entry{Key: k, Value: parameters[k]})
	}
	return decodeExtendsParameters(Mapping(entries...), "extends.parameters")
}

func decodeExtendsParameters(v Value, path string) (*ExtendsParameters, error) {
	o, err := openObject(v, path, "containers", "customBuildTags", "featureFlags", "stages")
	if err != nil {
		return nil, err
	}
	var p ExtendsParameters
	if raw, ok := o.lookup("containers"); ok {
		if raw.Kind() != KindMap {
			return nil, typeMismatch(path, "containers", "mapping", raw)
		}
		for _, k := range raw.Keys() {
			image, _ := raw.Get(k)
			s, ok := image.AsString()
			if !ok {
				return nil, typeMismatch(o.child("containers"), k, "string", image)
			}
			if p.Containers == nil {
				p.Containers = make(map[string]string, raw.Len())
			}
			p.Containers[k] = s
		}
	}
	if p.CustomBuildTags, err = o.stringList("customBuildTags"); err != nil {
		return nil, err
	}
	if raw, ok := o.lookup("featureFlags"); ok {
		if p.FeatureFlags, err = decodeFeatureFlags(raw, o.child("featureFlags")); err != nil {
			return nil, err
		}
	}
	stages, err := o.required("stages")
	if err != nil {
		return nil, err
	}
	if p.Stages, err = decodeList(stages, o.child("stages"), decodeStage); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeFeatureFlags(v Value, path string) (*FeatureFlags, error) {
	o, err := openObject(v, path, "golang")
	if err != nil {
		return nil, err
	}
	golang, err := o.required("golang")
	if err != nil {
		return nil, err
	}
	g, err := openObject(golang, o.child("golang"), "internalModuleProxy")
	if err != nil {
		return nil, err
	}
	proxyNode, err := g.required("internalModuleProxy")
	if err != nil {
		return nil, err
	}
	proxy, err := openObject(proxyNode, g.child("internalModuleProxy"), "enabled")
	if err != nil {
		return nil, err
	}
	if _, err := proxy.required("enabled"); err != nil {
		return nil, err
	}
	enabled, err := proxy.optionalBool("enabled")
	if err != nil {
		return nil, err
	}
	return &FeatureFlags{Golang: GolangFeatureFlags{InternalModuleProxy: ModuleProxy{Enabled: enabled}}}, nil
}
