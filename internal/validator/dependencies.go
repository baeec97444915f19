// Package validator checks that every dependsOn reference in a pipeline
// names a sibling declared earlier in the same list.
package validator

import (
	"fmt"

	"pipecheck/internal/core"
)

// Kind is the level a dependency is declared at.
type Kind string

const (
	KindStage Kind = "stage"
	KindJob   Kind = "job"
)

// DependencyError reports a dependsOn name that does not resolve. Dependent
// is the entity's name, or its list position when it has none. Stage is set
// for job dependencies.
type DependencyError struct {
	Kind      Kind
	Dependent string
	Stage     string
	Missing   string
}

func (e *DependencyError) Error() string {
	if e.Kind == KindJob {
		return fmt.Sprintf("job %s in stage %s depends on non-existent job %q", e.Dependent, e.Stage, e.Missing)
	}
	return fmt.Sprintf("stage %s depends on non-existent stage %q", e.Dependent, e.Missing)
}

// Validate runs the stage pass and then the job pass over stages. It stops
// at the first unresolved name.
func Validate(stages []core.Stage) error {
	if err := ValidateStages(stages); err != nil {
		return err
	}
	return ValidateJobs(stages)
}

// ValidateStages checks stage-level dependsOn. Stage template references
// are opaque: they neither declare nor reference names.
func ValidateStages(stages []core.Stage) error {
	seen := make(nameSet)
	for i, s := range stages {
		stage, ok := s.(*core.StageWithJobs)
		if !ok {
			continue
		}
		if missing, ok := seen.firstMissing(stage.DependsOn); !ok {
			return &DependencyError{Kind: KindStage, Dependent: identify(stage.Name, i), Missing: missing}
		}
		seen.add(stage.Name)
	}
	return nil
}

// ValidateJobs checks job-level dependsOn within each stage. Job names are
// scoped to their stage. A job template contributes the name given by its
// jobNameOverride parameter, if any.
func ValidateJobs(stages []core.Stage) error {
	for i, s := range stages {
		stage, ok := s.(*core.StageWithJobs)
		if !ok {
			continue
		}
		seen := make(nameSet)
		for j, job := range stage.Jobs {
			switch job := job.(type) {
			case *core.JobWithSteps:
				if missing, ok := seen.firstMissing(job.DependsOn); !ok {
					return &DependencyError{
						Kind:      KindJob,
						Dependent: identify(job.Name, j),
						Stage:     identify(stage.Name, i),
						Missing:   missing,
					}
				}
				seen.add(job.Name)
			case *core.JobTemplate:
				if name, ok := job.NameOverride(); ok {
					seen.add(&name)
				}
			}
		}
	}
	return nil
}

// nameSet holds the names declared so far in one scope.
type nameSet map[string]struct{}

func (s nameSet) add(name *string) {
	if name != nil {
		s[*name] = struct{}{}
	}
}

// firstMissing returns the first name in deps not yet declared.
func (s nameSet) firstMissing(deps core.DependsOn) (string, bool) {
	if deps == nil {
		return "", true
	}
	for _, name := range deps.Names() {
		if _, ok := s[name]; !ok {
			return name, false
		}
	}
	return "", true
}

func identify(name *string, index int) string {
	if name != nil {
		return fmt.Sprintf("%q", *name)
	}
	return fmt.Sprintf("#%d", index)
}
