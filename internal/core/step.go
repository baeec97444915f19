package core

// Step is one entry of a job's steps list: a *CheckoutStep, a *TaskStep or a
// *StepTemplate, tried in that order. A node carrying keys of two shapes
// matches neither.
type Step interface {
	isStep()
}

// CheckoutStep configures how the job checks out source code.
type CheckoutStep struct {
	Checkout           *string // repository alias, `self` or `none`
	PersistCredentials bool
}

// TaskStep runs a task.
type TaskStep struct {
	Condition               *string
	DisplayName             *string
	Env                     map[string]string
	Inputs                  map[string]string
	Name                    *string
	RetryCountOnTaskFailure *int32
	Target                  *StepTarget
	Task                    *string
}

// StepTarget is the execution context of a task.
type StepTarget struct {
	Container string // container alias, or `host`
}

// StepTemplate includes steps from a template file.
type StepTemplate struct {
	Template   *string
	Parameters map[string]Value
}

func (*CheckoutStep) isStep() {}
func (*TaskStep) isStep()     {}
func (*StepTemplate) isStep() {}

// DecodeStep decodes one step node.
func DecodeStep(v Value) (Step, error) {
	return decodeStep(v, "")
}

func decodeStep(v Value, path string) (Step, error) {
	return firstMatch("step", v, path, []variant[Step]{
		{shape: "checkout", decode: decodeCheckoutStep},
		{shape: "task", decode: decodeTaskStep},
		{shape: "template", decode: func(v Value, path string) (Step, error) {
			template, parameters, err := decodeTemplateReference(v, path)
			if err != nil {
				return nil, err
			}
			return &StepTemplate{Template: template, Parameters: parameters}, nil
		}},
	})
}

func decodeCheckoutStep(v Value, path string) (Step, error) {
	o, err := openObject(v, path, "checkout", "persistCredentials")
	if err != nil {
		return nil, err
	}
	var s CheckoutStep
	if s.Checkout, err = o.optionalString("checkout"); err != nil {
		return nil, err
	}
	if s.PersistCredentials, err = o.optionalBool("persistCredentials"); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeTaskStep(v Value, path string) (Step, error) {
	o, err := openObject(v, path, "condition", "displayName", "env", "inputs", "name", "retryCountOnTaskFailure", "target", "task")
	if err != nil {
		return nil, err
	}
	var s TaskStep
	if s.Condition, err = o.optionalString("condition"); err != nil {
		return nil, err
	}
	if s.DisplayName, err = o.optionalString("displayName"); err != nil {
		return nil, err
	}
	if s.Env, err = o.textMap("env"); err != nil {
		return nil, err
	}
	if s.Inputs, err = o.requiredTextMap("inputs"); err != nil {
		return nil, err
	}
	if s.Name, err = o.optionalString("name"); err != nil {
		return nil, err
	}
	if s.RetryCountOnTaskFailure, err = o.optionalInt32("retryCountOnTaskFailure"); err != nil {
		return nil, err
	}
	if raw, ok := o.lookup("target"); ok {
		target, err := openObject(raw, o.child("target"), "container")
		if err != nil {
			return nil, err
		}
		container, err := target.requiredString("container")
		if err != nil {
			return nil, err
		}
		s.Target = &StepTarget{Container: container}
	}
	if s.Task, err = o.optionalString("task"); err != nil {
		return nil, err
	}
	return &s, nil
}
