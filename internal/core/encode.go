package core

import (
	"maps"
	"slices"
)

// EncodePipeline converts a typed pipeline back into its document form.
// Decoding the result yields a pipeline equal to p. Absent optional fields
// and empty collections are left out.
func EncodePipeline(p *Pipeline) Value {
	var extends encoder
	extends.add("template", String(p.Extends.Template))
	extends.valueMap("parameters", p.Extends.Parameters)

	var e encoder
	e.add("extends", extends.value())
	e.optionalString("name", p.Name)
	e.optionalString("pool", p.Pool)
	if p.PR != nil {
		e.add("pr", EncodeTrigger(p.PR))
	}
	if p.Trigger != nil {
		e.add("trigger", EncodeTrigger(p.Trigger))
	}
	if p.Resources != nil {
		e.add("resources", encodeResources(p.Resources))
	}
	if len(p.Parameters) > 0 {
		e.add("parameters", encodeList(p.Parameters, encodeRuntimeParameter))
	}
	if len(p.Variables) > 0 {
		e.add("variables", encodeList(p.Variables, EncodeVariable))
	}
	return e.value()
}

// EncodeExtendsParameters converts typed entrypoint parameters back into a
// parameter mapping.
func EncodeExtendsParameters(p *ExtendsParameters) map[string]Value {
	out := map[string]Value{
		"stages": encodeList(p.Stages, EncodeStage),
	}
	if len(p.Containers) > 0 {
		out["containers"] = textMap(p.Containers)
	}
	if len(p.CustomBuildTags) > 0 {
		out["customBuildTags"] = stringList(p.CustomBuildTags)
	}
	if p.FeatureFlags != nil {
		out["featureFlags"] = Mapping(Entry{Key: "golang", Value: Mapping(
			Entry{Key: "internalModuleProxy", Value: Mapping(
				Entry{Key: "enabled", Value: Bool(p.FeatureFlags.Golang.InternalModuleProxy.Enabled)},
			)},
		)})
	}
	return out
}

func EncodeStage(s Stage) Value {
	switch s := s.(type) {
	case *StageWithJobs:
		var e encoder
		e.optionalString("stage", s.Name)
		e.optionalString("displayName", s.DisplayName)
		e.dependsOn(s.DependsOn)
		e.optionalString("condition", s.Condition)
		e.optionalString("pool", s.Pool)
		e.valueMap("variables", s.Variables)
		e.add("jobs", encodeList(s.Jobs, EncodeJob))
		return e.value()
	case *StageTemplate:
		return encodeTemplateReference(s.Template, s.Parameters)
	}
	return Null()
}

func EncodeJob(j Job) Value {
	switch j := j.(type) {
	case *JobWithSteps:
		var e encoder
		e.optionalString("job", j.Name)
		e.optionalString("displayName", j.DisplayName)
		e.dependsOn(j.DependsOn)
		e.optionalString("condition", j.Condition)
		e.optionalString("pool", j.Pool)
		e.optionalString("timeoutInMinutes", j.TimeoutInMinutes)
		e.valueMap("variables", j.Variables)
		if len(j.Steps) > 0 {
			e.add("steps", encodeList(j.Steps, EncodeStep))
		}
		return e.value()
	case *JobTemplate:
		return encodeTemplateReference(j.Template, j.Parameters)
	}
	return Null()
}

func EncodeStep(s Step) Value {
	switch s := s.(type) {
	case *CheckoutStep:
		var e encoder
		e.optionalString("checkout", s.Checkout)
		if s.PersistCredentials {
			e.add("persistCredentials", Bool(true))
		}
		return e.value()
	case *TaskStep:
		var e encoder
		e.optionalString("condition", s.Condition)
		e.optionalString("displayName", s.DisplayName)
		if len(s.Env) > 0 {
			e.add("env", textMap(s.Env))
		}
		// inputs is required, so it is written even when empty
		e.add("inputs", textMap(s.Inputs))
		e.optionalString("name", s.Name)
		if s.RetryCountOnTaskFailure != nil {
			e.add("retryCountOnTaskFailure", Int(int64(*s.RetryCountOnTaskFailure)))
		}
		if s.Target != nil {
			e.add("target", Mapping(Entry{Key: "container", Value: String(s.Target.Container)}))
		}
		e.optionalString("task", s.Task)
		return e.value()
	case *StepTemplate:
		return encodeTemplateReference(s.Template, s.Parameters)
	}
	return Null()
}

func EncodeTrigger(t Trigger) Value {
	switch t := t.(type) {
	case DisabledTrigger:
		return String(TriggerDisabled)
	case *FilterTrigger:
		var e encoder
		for _, f := range []struct {
			key    string
			filter *TriggerFilter
		}{{"branches", t.Branches}, {"paths", t.Paths}} {
			if f.filter == nil {
				continue
			}
			var fe encoder
			if len(f.filter.Include) > 0 {
				fe.add("include", stringList(f.filter.Include))
			}
			if len(f.filter.Exclude) > 0 {
				fe.add("exclude", stringList(f.filter.Exclude))
			}
			e.add(f.key, fe.value())
		}
		return e.value()
	}
	return Null()
}

func EncodeVariable(v Variable) Value {
	switch v := v.(type) {
	case *VariableGroup:
		return Mapping(Entry{Key: "group", Value: String(v.Group)})
	case *NamedVariable:
		return Mapping(
			Entry{Key: "name", Value: String(v.Name)},
			Entry{Key: "value", Value: String(v.Value)},
		)
	}
	return Null()
}

func EncodeDependsOn(d DependsOn) Value {
	switch d := d.(type) {
	case DependsOnName:
		return String(string(d))
	case DependsOnList:
		return stringList(d)
	}
	return Null()
}

func encodeResources(r *Resources) Value {
	var e encoder
	if len(r.Containers) > 0 {
		e.add("containers", encodeList(r.Containers, func(c ContainerResource) Value {
			var ce encoder
			ce.add("container", String(c.Name))
			ce.optionalString("endpoint", c.Endpoint)
			ce.add("image", String(c.Image))
			return ce.value()
		}))
	}
	if len(r.Repositories) > 0 {
		e.add("repositories", encodeList(r.Repositories, func(r RepositoryResource) Value {
			return Mapping(
				Entry{Key: "repository", Value: String(r.Alias)},
				Entry{Key: "type", Value: String(r.Type)},
				Entry{Key: "name", Value: String(r.Name)},
				Entry{Key: "ref", Value: String(r.Ref)},
			)
		}))
	}
	if len(r.Pipelines) > 0 {
		e.add("pipelines", encodeList(r.Pipelines, func(p PipelineResource) Value {
			var pe encoder
			pe.add("pipeline", String(p.Alias))
			pe.add("source", String(p.Source))
			pe.optionalString("project", p.Project)
			pe.optionalString("branch", p.Branch)
			pe.optionalString("version", p.Version)
			if len(p.Tags) > 0 {
				pe.add("tags", stringList(p.Tags))
			}
			return pe.value()
		}))
	}
	return e.value()
}

func encodeRuntimeParameter(p RuntimeParameter) Value {
	var e encoder
	e.add("name", String(p.Name))
	e.optionalString("displayName", p.DisplayName)
	e.optionalString("type", p.Type)
	if p.Default != nil {
		e.add("default", *p.Default)
	}
	if len(p.Values) > 0 {
		e.add("values", List(p.Values...))
	}
	return e.value()
}

func encodeTemplateReference(template *string, parameters map[string]Value) Value {
	var e encoder
	e.optionalString("template", template)
	e.valueMap("parameters", parameters)
	return e.value()
}

// encoder collects the entries of one mapping in field order.
type encoder struct {
	fields []Entry
}

func (e *encoder) add(key string, v Value) {
	e.fields = append(e.fields, Entry{Key: key, Value: v})
}

func (e *encoder) optionalString(key string, s *string) {
	if s != nil {
		e.add(key, String(*s))
	}
}

func (e *encoder) valueMap(key string, m map[string]Value) {
	if len(m) > 0 {
		e.add(key, valueMap(m))
	}
}

func (e *encoder) dependsOn(d DependsOn) {
	if d != nil {
		e.add("dependsOn", EncodeDependsOn(d))
	}
}

func (e *encoder) value() Value {
	return Mapping(e.fields...)
}

func encodeList[T any](items []T, encode func(T) Value) Value {
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = encode(item)
	}
	return List(out...)
}

func stringList(items []string) Value {
	return encodeList(items, String)
}

func textMap(m map[string]string) Value {
	entries := make([]Entry, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		entries = append(entries, Entry{Key: k, Value: String(m[k])})
	}
	return Mapping(entries...)
}

func valueMap(m map[string]Value) Value {
	entries := make([]Entry, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		entries = append(entries, Entry{Key: k, Value: m[k]})
	}
	return Mapping(entries...)
}
