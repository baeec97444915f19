package check

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipecheck/internal/config"
	"pipecheck/internal/core"
	"pipecheck/internal/history"
	"pipecheck/internal/logging"
	"pipecheck/internal/security"
	"pipecheck/internal/storage"
	"pipecheck/internal/templates"
	"pipecheck/internal/validator"
)

const validPipeline = `
extends:
  template: v1/stages.yml
  parameters:
    stages:
      - stage: build
        jobs:
          - template: jobs/compile.yml
            parameters:
              jobNameOverride: compile
          - job: test
            dependsOn: compile
      - stage: deploy
        dependsOn: build
        jobs:
          - job: release
`

func newChecker(t *testing.T, fs afero.Fs) *Checker {
	t.Helper()
	ledger, err := history.OpenLedger(fs, "history.jsonl")
	require.NoError(t, err)
	c := New(logging.Discard())
	c.Storage = storage.NewArtifactStorage(fs, "out")
	c.Ledger = ledger
	return c
}

func TestCheckPassingPipeline(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newChecker(t, fs)

	res, err := c.Check("ci/build.yml", []byte(validPipeline), core.FormatYAML)
	require.NoError(t, err)
	require.True(t, res.Passed(), "unexpected failure: %v", res.Err)
	assert.Equal(t, Phase(""), res.Phase)
	assert.Equal(t, history.StatusPassed, res.Status())
	assert.Len(t, res.Digest, 64)

	report := res.Report()
	assert.Equal(t, 2, report.Stages)
	assert.Equal(t, 3, report.Jobs)
	assert.Empty(t, report.Error)

	require.NotNil(t, res.Record)
	assert.Equal(t, res.Digest, res.Record.Digest)
	assert.Equal(t, "ci/build.yml", res.Record.Source)
	require.NoError(t, c.Ledger.Verify())

	require.Equal(t, []string{
		filepath.Join("out", "ci_build.yml", ParsedArtifact),
		filepath.Join("out", "ci_build.yml", ASTArtifact),
		filepath.Join("out", "ci_build.yml", ReportArtifact),
	}, res.Artifacts)

	ast, err := c.Storage.Load("ci/build.yml", ASTArtifact)
	require.NoError(t, err)
	assert.Contains(t, string(ast), "core.Pipeline")
	assert.Contains(t, string(ast), "core.ExtendsParameters")
	assert.Contains(t, string(ast), "core.JobTemplate")
	assert.Contains(t, string(ast), `"compile"`)
	assert.NotContains(t, string(ast), "0xc0", "pointer addresses are not dumped")

	parsed, err := c.Storage.Load("ci/build.yml", ParsedArtifact)
	require.NoError(t, err)
	reparsed, err := core.ParsePipeline(parsed, core.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, res.Pipeline, reparsed)

	raw, err := c.Storage.Load("ci/build.yml", ReportArtifact)
	require.NoError(t, err)
	var saved Report
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, report, saved)
}

func TestCheckRejections(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		phase Phase
		check func(t *testing.T, err error)
	}{
		{
			name:  "syntax error",
			data:  "extends: [",
			phase: PhaseParse,
		},
		{
			name:  "schema error at the root",
			data:  "extends: {template: base.yml}\nstages: []\n",
			phase: PhaseSchema,
			check: func(t *testing.T, err error) {
				de, ok := core.AsDecodeError(err)
				require.True(t, ok)
				assert.Equal(t, core.ErrUnrecognizedField, de.Code)
			},
		},
		{
			name: "schema error inside the parameters",
			data: `
extends:
  template: base.yml
  parameters:
    stages:
      - stage: build
        jobs:
          - job: test
            steps:
              - checkout: self
                task: Go@0
                inputs: {}
`,
			phase: PhaseSchema,
			check: func(t *testing.T, err error) {
				de, ok := core.AsDecodeError(err)
				require.True(t, ok)
				assert.Equal(t, core.ErrNoVariantMatched, de.Code)
			},
		},
		{
			name: "dependency error",
			data: `
extends:
  template: base.yml
  parameters:
    stages:
      - stage: B
        dependsOn: A
        jobs: []
      - stage: A
        jobs: []
`,
			phase: PhaseDependencies,
			check: func(t *testing.T, err error) {
				var depErr *validator.DependencyError
				require.ErrorAs(t, err, &depErr)
				assert.Equal(t, `stage "B" depends on non-existent stage "A"`, err.Error())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			c := newChecker(t, fs)

			res, err := c.Check("p.yml", []byte(tt.data), core.FormatYAML)
			require.NoError(t, err)
			assert.False(t, res.Passed())
			assert.Equal(t, tt.phase, res.Phase)
			if tt.check != nil {
				tt.check(t, res.Err)
			}

			assert.Equal(t, history.StatusFailed, res.Record.Status)
			assert.Equal(t, res.Err.Error(), res.Record.Error)

			report := res.Report()
			assert.Equal(t, tt.phase, report.Phase)
			if res.Pipeline == nil {
				assert.Len(t, res.Artifacts, 1, "only the report is written without a decoded pipeline")
			} else {
				assert.Len(t, res.Artifacts, 3)
			}
		})
	}
}

func TestCheckParameterSchemaRejection(t *testing.T) {
	schema, err := templates.NewSchemaEntrypoint(templates.Stages{}, []byte(`{"type": "object", "required": ["customBuildTags"]}`))
	require.NoError(t, err)
	c := New(logging.Discard())
	c.Entrypoint = schema

	res, err := c.Check("p.yml", []byte(validPipeline), core.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, PhaseParameters, res.Phase)
	var schemaErr *templates.SchemaError
	assert.ErrorAs(t, res.Err, &schemaErr)
	assert.Nil(t, res.Record)
	assert.Empty(t, res.Artifacts)
}

func TestCheckJSONC(t *testing.T) {
	c := New(logging.Discard())
	res, err := c.Check("p.jsonc", []byte(`{
  // trailing commas are fine
  "extends": {"template": "base.yml", "parameters": {"stages": [],},},
}`), core.FormatJSONC)
	require.NoError(t, err)
	assert.True(t, res.Passed(), "unexpected failure: %v", res.Err)
}

func TestFromConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	pub, priv, err := security.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, security.SaveKeyPair(fs, pub, priv, "k.pub", "k.priv"))
	require.NoError(t, afero.WriteFile(fs, "schema.json", []byte(`{"type": "object"}`), 0o644))

	cfg := &config.Config{
		HistoryPath: "state/history.jsonl",
		HistoryKey:  "k.priv",
		OutputDir:   "out",
		SchemaFile:  "schema.json",
	}
	c, err := FromConfig(fs, cfg, logging.Discard(), true)
	require.NoError(t, err)
	require.NotNil(t, c.Storage)
	require.NotNil(t, c.Ledger)
	assert.Equal(t, "schema+stages", c.Entrypoint.Name())

	res, err := c.Check("p.yml", []byte(validPipeline), core.FormatYAML)
	require.NoError(t, err)
	assert.True(t, res.Passed())
	assert.NotEmpty(t, res.Record.Signature)

	c, err = FromConfig(fs, &config.Config{HistoryPath: "h.jsonl"}, logging.Discard(), false)
	require.NoError(t, err)
	assert.Nil(t, c.Ledger)
	assert.Nil(t, c.Storage)

	_, err = FromConfig(fs, &config.Config{HistoryPath: "h.jsonl", HistoryKey: "missing"}, logging.Discard(), true)
	assert.ErrorContains(t, err, "loading history key")
}

func TestFromConfigTemplateSchemas(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "default.json", []byte(`{"type": "object", "required": ["stages"]}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "tagged.yaml", []byte("type: object\nrequired: [customBuildTags]\n"), 0o644))

	cfg := &config.Config{
		HistoryPath: "h.jsonl",
		SchemaFile:  "default.json",
		Templates:   []config.TemplateSchema{{Template: "v1/tagged.yml", File: "tagged.yaml"}},
	}
	c, err := FromConfig(fs, cfg, logging.Discard(), false)
	require.NoError(t, err)
	reg, ok := c.Entrypoint.(*templates.Registry)
	require.True(t, ok, "got %T", c.Entrypoint)
	assert.Equal(t, []string{"v1/tagged.yml"}, reg.Templates())

	tests := []struct {
		name      string
		template  string
		wantPhase Phase
	}{
		{name: "registered template uses its own schema", template: "v1/tagged.yml", wantPhase: PhaseParameters},
		{name: "other templates use the default schema", template: "v1/stages.yml", wantPhase: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validPipeline, "template: v1/stages.yml", "template: "+tt.template, 1)
			res, err := c.Check("p.yml", []byte(doc), core.FormatYAML)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, res.Phase, "error: %v", res.Err)
			if tt.wantPhase != "" {
				var schemaErr *templates.SchemaError
				require.ErrorAs(t, res.Err, &schemaErr)
				assert.Equal(t, tt.template, schemaErr.Template)
			}
		})
	}

	cfg.Templates = []config.TemplateSchema{{Template: "v1/tagged.yml", File: "missing.json"}}
	_, err = FromConfig(fs, cfg, logging.Discard(), false)
	assert.ErrorContains(t, err, "template v1/tagged.yml")
}
