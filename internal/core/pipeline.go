package core

// Pipeline is a pipeline that extends a template. Only Extends is required.
type Pipeline struct {
	Extends    Extends
	Name       *string // run number format
	Pool       *string // default pool for every job
	PR         Trigger // pull request trigger
	Trigger    Trigger // CI trigger
	Resources  *Resources
	Parameters []RuntimeParameter
	Variables  []Variable
}

// Extends points the pipeline at the template it extends. Parameters are
// passed through untouched; an Entrypoint gives them a schema.
type Extends struct {
	Template   string
	Parameters map[string]Value
}

// Resources lists what the pipeline consumes from outside.
type Resources struct {
	Containers   []ContainerResource
	Repositories []RepositoryResource
	Pipelines    []PipelineResource
}

// ContainerResource references a container image. Name is the alias
// (`container:`) jobs and step targets use.
type ContainerResource struct {
	Name     string
	Endpoint *string // service connection for a private registry
	Image    string
}

// RepositoryResource references an additional source repository.
type RepositoryResource struct {
	Alias string
	Type  string // git, github, githubenterprise or bitbucket
	Name  string
	Ref   string
}

// PipelineResource references an upstream pipeline whose artifacts this one
// consumes.
type PipelineResource struct {
	Alias   string
	Source  string
	Project *string
	Branch  *string
	Version *string
	Tags    []string
}

// RuntimeParameter declares a parameter supplied when a run is queued.
type RuntimeParameter struct {
	Name        string
	DisplayName *string
	Type        *string
	Default     *Value
	Values      []Value
}

// DecodePipeline decodes the document root.
func DecodePipeline(v Value) (*Pipeline, error) {
	o, err := openObject(v, "", "extends", "name", "pool", "pr", "trigger", "resources", "parameters", "variables")
	if err != nil {
		return nil, err
	}

	var p Pipeline
	raw, err := o.required("extends")
	if err != nil {
		return nil, err
	}
	if p.Extends, err = decodeExtends(raw, o.child("extends")); err != nil {
		return nil, err
	}
	if p.Name, err = o.optionalString("name"); err != nil {
		return nil, err
	}
	if p.Pool, err = o.optionalString("pool"); err != nil {
		return nil, err
	}
	if raw, ok := o.lookup("pr"); ok {
		if p.PR, err = decodeTrigger(raw, o.child("pr")); err != nil {
			return nil, err
		}
	}
	if raw, ok := o.lookup("trigger"); ok {
		if p.Trigger, err = decodeTrigger(raw, o.child("trigger")); err != nil {
			return nil, err
		}
	}
	if raw, ok := o.lookup("resources"); ok {
		resources, err := decodeResources(raw, o.child("resources"))
		if err != nil {
			return nil, err
		}
		p.Resources = &resources
	}
	if p.Parameters, err = optionalList(o, "parameters", decodeRuntimeParameter); err != nil {
		return nil, err
	}
	if p.Variables, err = optionalList(o, "variables", decodeVariable); err != nil {
		return nil, err
	}
	return &p, nil
}

func decodeExtends(v Value, path string) (Extends, error) {
	o, err := openObject(v, path, "template", "parameters")
	if err != nil {
		return Extends{}, err
	}
	var e Extends
	if e.Template, err = o.requiredString("template"); err != nil {
		return Extends{}, err
	}
	if e.Parameters, err = o.valueMap("parameters"); err != nil {
		return Extends{}, err
	}
	return e, nil
}

func decodeResources(v Value, path string) (Resources, error) {
	o, err := openObject(v, path, "containers", "repositories", "pipelines")
	if err != nil {
		return Resources{}, err
	}
	var r Resources
	if r.Containers, err = optionalList(o, "containers", decodeContainer); err != nil {
		return Resources{}, err
	}
	if r.Repositories, err = optionalList(o, "repositories", decodeRepository); err != nil {
		return Resources{}, err
	}
	if r.Pipelines, err = optionalList(o, "pipelines", decodePipelineResource); err != nil {
		return Resources{}, err
	}
	return r, nil
}

func decodeContainer(v Value, path string) (ContainerResource, error) {
	o, err := openObject(v, path, "container", "endpoint", "image")
	if err != nil {
		return ContainerResource{}, err
	}
	var c ContainerResource
	if c.Name, err = o.requiredString("container"); err != nil {
		return ContainerResource{}, err
	}
	if c.Endpoint, err = o.optionalString("endpoint"); err != nil {
		return ContainerResource{}, err
	}
	if c.Image, err = o.requiredString("image"); err != nil {
		return ContainerResource{}, err
	}
	return c, nil
}

func decodeRepository(v Value, path string) (RepositoryResource, error) {
	o, err := openObject(v, path, "repository", "type", "name", "ref")
	if err != nil {
		return RepositoryResource{}, err
	}
	var r RepositoryResource
	if r.Alias, err = o.requiredString("repository"); err != nil {
		return RepositoryResource{}, err
	}
	if r.Type, err = o.requiredString("type"); err != nil {
		return RepositoryResource{}, err
	}
	if r.Name, err = o.requiredString("name"); err != nil {
		return RepositoryResource{}, err
	}
	if r.Ref, err = o.requiredString("ref"); err != nil {
		return RepositoryResource{}, err
	}
	return r, nil
}

func decodePipelineResource(v Value, path string) (PipelineResource, error) {
	o, err := openObject(v, path, "pipeline", "source", "project", "branch", "version", "tags")
	if err != nil {
		return PipelineResource{}, err
	}
	var r PipelineResource
	if r.Alias, err = o.requiredString("pipeline"); err != nil {
		return PipelineResource{}, err
	}
	if r.Source, err = o.requiredString("source"); err != nil {
		return PipelineResource{}, err
	}
	if r.Project, err = o.optionalString("project"); err != nil {
		return PipelineResource{}, err
	}
	if r.Branch, err = o.optionalString("branch"); err != nil {
		return PipelineResource{}, err
	}
	if r.Version, err = o.optionalString("version"); err != nil {
		return PipelineResource{}, err
	}
	if r.Tags, err = o.stringList("tags"); err != nil {
		return PipelineResource{}, err
	}
	return r, nil
}

func decodeRuntimeParameter(v Value, path string) (RuntimeParameter, error) {
	o, err := openObject(v, path, "name", "displayName", "type", "default", "values")
	if err != nil {
		return RuntimeParameter{}, err
	}
	var p RuntimeParameter
	if p.Name, err = o.requiredString("name"); err != nil {
		return RuntimeParameter{}, err
	}
	if p.DisplayName, err = o.optionalString("displayName"); err != nil {
		return RuntimeParameter{}, err
	}
	if p.Type, err = o.optionalString("type"); err != nil {
		return RuntimeParameter{}, err
	}
	if def, ok := o.lookup("default"); ok {
		p.Default = &def
	}
	if p.Values, err = optionalList(o, "values", func(item Value, _ string) (Value, error) {
		return item, nil
	}); err != nil {
		return RuntimeParameter{}, err
	}
	return p, nil
}
