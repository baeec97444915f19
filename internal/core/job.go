package core

// JobNameOverrideParameter is the template parameter a templated job uses to
// expose the name other jobs can depend on.
const JobNameOverrideParameter = "jobNameOverride"

// Job is one entry of a stage's jobs list: a *JobWithSteps or a
// *JobTemplate, tried in that order.
type Job interface {
	isJob()
}

// JobWithSteps is a collection of steps run by an agent or on a server.
type JobWithSteps struct {
	Name             *string // `job:`, the ID sibling jobs depend on
	DisplayName      *string
	DependsOn        DependsOn
	Condition        *string
	Pool             *string
	TimeoutInMinutes *string
	Variables        map[string]Value
	Steps            []Step
}

// JobTemplate includes jobs from a template file.
type JobTemplate struct {
	Template   *string
	Parameters map[string]Value
}

func (*JobWithSteps) isJob() {}
func (*JobTemplate) isJob()  {}

// NameOverride returns the jobNameOverride parameter when it is a string.
func (j *JobTemplate) NameOverride() (string, bool) {
	v, ok := j.Parameters[JobNameOverrideParameter]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// DecodeJob decodes one job node.
func DecodeJob(v Value) (Job, error) {
	return decodeJob(v, "")
}

func decodeJob(v Value, path string) (Job, error) {
	return firstMatch("job", v, path, []variant[Job]{
		{shape: "job", decode: decodeJobWithSteps},
		{shape: "template", decode: func(v Value, path string) (Job, error) {
			template, parameters, err := decodeTemplateReference(v, path)
			if err != nil {
				return nil, err
			}
			return &JobTemplate{Template: template, Parameters: parameters}, nil
		}},
	})
}

func decodeJobWithSteps(v Value, path string) (Job, error) {
	o, err := openObject(v, path, "job", "displayName", "dependsOn", "condition", "pool", "timeoutInMinutes", "variables", "steps")
	if err != nil {
		return nil, err
	}
	var j JobWithSteps
	if j.Name, err = o.optionalString("job"); err != nil {
		return nil, err
	}
	if j.DisplayName, err = o.optionalString("displayName"); err != nil {
		return nil, err
	}
	if j.DependsOn, err = o.dependsOn("dependsOn"); err != nil {
		return nil, err
	}
	if j.Condition, err = o.optionalString("condition"); err != nil {
		return nil, err
	}
	if j.Pool, err = o.optionalString("pool"); err != nil {
		return nil, err
	}
	if j.TimeoutInMinutes, err = o.optionalText("timeoutInMinutes"); err != nil {
		return nil, err
	}
	if j.Variables, err = o.valueMap("variables"); err != nil {
		return nil, err
	}
	if j.Steps, err = optionalList(o, "steps", decodeStep); err != nil {
		return nil, err
	}
	return &j, nil
}
