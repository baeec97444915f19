// Package check runs the full check of one pipeline document: parse,
// decode, entrypoint parameters, dependency validation, then optional
// artifacts and history.
package check

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"

	"pipecheck/internal/core"
	"pipecheck/internal/history"
	"pipecheck/internal/storage"
	"pipecheck/internal/templates"
	"pipecheck/internal/validator"
	"pipecheck/pkg/utils"
)

// Artifact names written per source.
const (
	ParsedArtifact = "parsed.yaml"
	ASTArtifact    = "ast.txt"
	ReportArtifact = "report.json"
)

// astDumper prints the typed tree without pointer addresses so dumps of
// the same document compare equal.
var astDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Phase is the step of a check that rejected a document.
type Phase string

const (
	PhaseParse        Phase = "parse"
	PhaseSchema       Phase = "schema"
	PhaseParameters   Phase = "parameters"
	PhaseDependencies Phase = "dependencies"
)

// Result is the outcome of checking one document. Err is nil when the
// document passed; Phase says where it was rejected otherwise.
type Result struct {
	Source     string
	Digest     string
	Pipeline   *core.Pipeline
	Parameters *core.ExtendsParameters
	Phase      Phase
	Err        error
	Artifacts  []string
	Record     *history.Record
}

// Passed reports whether the document passed every check.
func (r *Result) Passed() bool { return r.Err == nil }

// Status maps the result onto a history status.
func (r *Result) Status() history.Status {
	if r.Passed() {
		return history.StatusPassed
	}
	return history.StatusFailed
}

// Report is the JSON summary of a Result.
type Report struct {
	Source string         `json:"source"`
	Digest string         `json:"digest"`
	Status history.Status `json:"status"`
	Phase  Phase          `json:"phase,omitempty"`
	Error  string         `json:"error,omitempty"`
	Stages int            `json:"stages"`
	Jobs   int            `json:"jobs"`
}

// Report summarises r.
func (r *Result) Report() Report {
	rep := Report{Source: r.Source, Digest: r.Digest, Status: r.Status(), Phase: r.Phase}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	if r.Parameters != nil {
		rep.Stages = len(r.Parameters.Stages)
		for _, s := range r.Parameters.Stages {
			if s, ok := s.(*core.StageWithJobs); ok {
				rep.Jobs += len(s.Jobs)
			}
		}
	}
	return rep
}

// Checker ties the parser, entrypoint and validator to storage and
// history. Storage and Ledger are optional.
type Checker struct {
	Entrypoint templates.Entrypoint
	Storage    *storage.ArtifactStorage
	Ledger     *history.Ledger
	Logger     *slog.Logger
}

// New returns a checker using the standard stages entrypoint.
func New(logger *slog.Logger) *Checker {
	return &Checker{Entrypoint: templates.Stages{}, Logger: logger}
}

// Check checks data read from source. A rejected document is reported in
// the Result; the error return is reserved for storage and history
// failures.
func (c *Checker) Check(source string, data []byte, format core.Format) (*Result, error) {
	res := &Result{Source: source, Digest: utils.HashBytes(data)}
	log := c.Logger.With("source", source, "digest", res.Digest[:12])
	c.evaluate(res, data, format)

	if res.Passed() {
		log.Info("pipeline passed", "stages", res.Report().Stages)
	} else {
		log.Warn("pipeline rejected", "phase", res.Phase, "error", res.Err)
	}

	if c.Storage != nil {
		if err := c.saveArtifacts(res); err != nil {
			return res, err
		}
		log.Debug("artifacts saved", "paths", res.Artifacts)
	}
	if c.Ledger != nil {
		rec, err := c.Ledger.Append(history.Entry{
			Source: source,
			Digest: res.Digest,
			Status: res.Status(),
			Error:  res.Report().Error,
		})
		if err != nil {
			return res, fmt.Errorf("recording history: %w", err)
		}
		res.Record = rec
		log.Debug("history appended", "index", rec.Index, "hash", rec.Hash[:16])
	}
	return res, nil
}

func (c *Checker) evaluate(res *Result, data []byte, format core.Format) {
	doc, err := core.ParseDocument(data, format)
	if err != nil {
		res.Phase, res.Err = PhaseParse, err
		return
	}
	if res.Pipeline, err = core.DecodePipeline(doc); err != nil {
		res.Phase, res.Err = PhaseSchema, err
		return
	}
	if res.Parameters, err = c.Entrypoint.Parse(res.Pipeline); err != nil {
		// a decode error below extends.parameters is still a schema error
		res.Phase, res.Err = PhaseParameters, err
		if _, ok := core.AsDecodeError(err); ok {
			res.Phase = PhaseSchema
		}
		return
	}
	if err := validator.Validate(res.Parameters.Stages); err != nil {
		res.Phase, res.Err = PhaseDependencies, err
	}
}

func (c *Checker) saveArtifacts(res *Result) error {
	if res.Pipeline != nil {
		parsed, err := core.MarshalPipeline(res.Pipeline)
		if err != nil {
			return err
		}
		path, err := c.Storage.Save(res.Source, ParsedArtifact, parsed)
		if err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, path)

		ast := astDumper.Sdump(res.Pipeline)
		if res.Parameters != nil {
			ast += "\n" + astDumper.Sdump(res.Parameters)
		}
		if path, err = c.Storage.Save(res.Source, ASTArtifact, []byte(ast)); err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, path)
	}
	report, err := json.MarshalIndent(res.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	path, err := c.Storage.Save(res.Source, ReportArtifact, append(report, '\n'))
	if err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, path)
	return nil
}
