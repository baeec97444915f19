package core

// Stage is one entry of a stages list: a *StageWithJobs or a
// *StageTemplate. Shapes are tried in that order, so a node is a template
// reference only when it does not fully parse as a stage with jobs.
type Stage interface {
	isStage()
}

// StageWithJobs is a collection of related jobs. Stages run in declaration
// order unless DependsOn says otherwise.
type StageWithJobs struct {
	Name        *string // `stage:`, the ID other stages depend on
	DisplayName *string
	DependsOn   DependsOn
	Condition   *string
	Pool        *string
	Variables   map[string]Value
	Jobs        []Job
}

// StageTemplate includes stages from a template file. The template is not
// loaded; its identity is opaque to dependency checks.
type StageTemplate struct {
	Template   *string
	Parameters map[string]Value
}

func (*StageWithJobs) isStage() {}
func (*StageTemplate) isStage() {}

// DecodeStage decodes one stage node.
func DecodeStage(v Value) (Stage, error) {
	return decodeStage(v, "")
}

func decodeStage(v Value, path string) (Stage, error) {
	return firstMatch("stage", v, path, []variant[Stage]{
		{shape: "stage", decode: decodeStageWithJobs},
		{shape: "template", decode: func(v Value, path string) (Stage, error) {
			template, parameters, err := decodeTemplateReference(v, path)
			if err != nil {
				return nil, err
			}
			return &StageTemplate{Template: template, Parameters: parameters}, nil
		}},
	})
}

func decodeStageWithJobs(v Value, path string) (Stage, error) {
	o, err := openObject(v, path, "stage", "displayName", "dependsOn", "condition", "pool", "variables", "jobs")
	if err != nil {
		return nil, err
	}
	var s StageWithJobs
	if s.Name, err = o.optionalString("stage"); err != nil {
		return nil, err
	}
	if s.DisplayName, err = o.optionalString("displayName"); err != nil {
		return nil, err
	}
	if s.DependsOn, err = o.dependsOn("dependsOn"); err != nil {
		return nil, err
	}
	if s.Condition, err = o.optionalString("condition"); err != nil {
		return nil, err
	}
	if s.Pool, err = o.optionalString("pool"); err != nil {
		return nil, err
	}
	if s.Variables, err = o.valueMap("variables"); err != nil {
		return nil, err
	}
	jobs, err := o.required("jobs")
	if err != nil {
		return nil, err
	}
	if s.Jobs, err = decodeList(jobs, o.child("jobs"), decodeJob); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeTemplateReference reads the {template, parameters} shape shared by
// stage, job and step template references.
func decodeTemplateReference(v Value, path string) (*string, map[string]Value, error) {
	o, err := openObject(v, path, "template", "parameters")
	if err != nil {
		return nil, nil, err
	}
	template, err := o.optionalString("template")
	if err != nil {
		return nil, nil, err
	}
	parameters, err := o.valueMap("parameters")
	if err != nil {
		return nil, nil, err
	}
	return template, parameters, nil
}
