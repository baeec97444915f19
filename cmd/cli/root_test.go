package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipecheck/internal/check"
	"pipecheck/internal/history"
	"pipecheck/internal/logging"
	"pipecheck/internal/server"
)

const goodPipeline = `
extends:
  template: v1/stages.yml
  parameters:
    stages:
      - stage: build
        jobs:
          - job: compile
          - job: test
            dependsOn: compile
      - stage: publish
        dependsOn: build
        jobs: []
`

const badPipeline = `
extends:
  template: v1/stages.yml
  parameters:
    stages:
      - stage: publish
        dependsOn: build
        jobs: []
`

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(data), 0o644))
	}
	return fs
}

// run executes a fresh root command, as a separate process invocation would.
func run(fs afero.Fs, args ...string) (string, error) {
	cmd := NewCmdRoot(fs)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readLedger(t *testing.T, fs afero.Fs) []history.Record {
	t.Helper()
	l, err := history.OpenLedger(fs, "history.jsonl")
	require.NoError(t, err)
	return l.Records()
}

func TestValidate(t *testing.T) {
	fs := newFs(t, map[string]string{"ci/pipeline.yml": goodPipeline})

	out, err := run(fs, "validate", "ci/pipeline.yml")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ ci/pipeline.yml")

	records := readLedger(t, fs)
	require.Len(t, records, 1)
	assert.Equal(t, "ci/pipeline.yml", records[0].Source)
	assert.Equal(t, history.StatusPassed, records[0].Status)
}

func TestValidateFailure(t *testing.T) {
	fs := newFs(t, map[string]string{
		"good.yml": goodPipeline,
		"bad.yml":  badPipeline,
	})

	out, err := run(fs, "validate", "good.yml", "bad.yml")
	require.EqualError(t, err, "1 of 2 pipeline file(s) failed validation")
	assert.Contains(t, out, "✅ good.yml")
	assert.Contains(t, out, "❌ bad.yml (dependencies)")
	assert.Contains(t, out, `    stage "publish" depends on non-existent stage "build"`)

	records := readLedger(t, fs)
	require.Len(t, records, 2)
	statuses := []history.Status{records[0].Status, records[1].Status}
	assert.ElementsMatch(t, []history.Status{history.StatusPassed, history.StatusFailed}, statuses)
}

func TestValidateMissingFile(t *testing.T) {
	_, err := run(afero.NewMemMapFs(), "validate", "missing.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading missing.yml")
}

func TestValidateNoHistoryWithArtifacts(t *testing.T) {
	fs := newFs(t, map[string]string{"pipeline.jsonc": `{
		// comments are allowed
		"extends": {"template": "v1/stages.yml", "parameters": {"stages": []}},
	}`})

	_, err := run(fs, "validate", "--no-history", "--output-dir", "out", "pipeline.jsonc")
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "history.jsonl")
	require.NoError(t, err)
	assert.False(t, exists)

	for _, name := range []string{check.ParsedArtifact, check.ASTArtifact, check.ReportArtifact} {
		exists, err := afero.Exists(fs, filepath.Join("out", "pipeline.jsonc", name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestValidateSchema(t *testing.T) {
	fs := newFs(t, map[string]string{
		"pipeline.yml": goodPipeline,
		"params.schema.json": `{
			"type": "object",
			"required": ["stages", "containers"]
		}`,
	})

	out, err := run(fs, "validate", "--no-history", "--schema", "params.schema.json", "pipeline.yml")
	require.Error(t, err)
	assert.Contains(t, out, "❌ pipeline.yml (parameters)")
	assert.Contains(t, out, "containers")
}

func TestHistoryInspectAndVerify(t *testing.T) {
	fs := newFs(t, map[string]string{"pipeline.yml": goodPipeline})
	_, err := run(fs, "validate", "pipeline.yml")
	require.NoError(t, err)

	out, err := run(fs, "history", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Index=0 ")
	assert.Contains(t, out, "Status=passed Source=pipeline.yml")
	assert.NotContains(t, out, " signed")

	out, err = run(fs, "history", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "history verification ok (1 records, head ")

	out, err = run(fs, "history", "lookup", "pipeline.yml")
	require.NoError(t, err)
	assert.Contains(t, out, "Index=0 ")
	assert.Contains(t, out, "Status=passed Source=pipeline.yml")

	require.NoError(t, afero.WriteFile(fs, "pipeline.yml", []byte(goodPipeline+"# edited\n"), 0o644))
	out, err = run(fs, "history", "lookup", "pipeline.yml")
	require.NoError(t, err)
	assert.Contains(t, out, "no records for pipeline.yml")

	data, err := afero.ReadFile(fs, "history.jsonl")
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"status":"passed"`, `"status":"failed"`, 1)
	require.NoError(t, afero.WriteFile(fs, "history.jsonl", []byte(tampered), 0o644))

	out, err = run(fs, "history", "verify")
	require.ErrorIs(t, err, history.ErrChainBroken)
	assert.Contains(t, out, "history verification failed")
}

func TestHistoryKeygenAndSignedRecords(t *testing.T) {
	fs := newFs(t, map[string]string{
		"pipeline.yml":  goodPipeline,
		"pipecheck.yml": "history:\n  path: state/history.jsonl\n  key: keys/history.priv\n",
	})

	out, err := run(fs, "history", "keygen", "--dir", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join("keys", "history.pub"))

	_, err = run(fs, "--config", "pipecheck.yml", "validate", "pipeline.yml")
	require.NoError(t, err)

	out, err = run(fs, "--config", "pipecheck.yml", "history", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, " signed")

	out, err = run(fs, "--config", "pipecheck.yml", "history", "verify", "--pubkey", "keys/history.pub")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 records, head ")

	_, err = run(fs, "history", "keygen", "--dir", "other")
	require.NoError(t, err)
	out, err = run(fs, "--config", "pipecheck.yml", "history", "verify", "--pubkey", "other/history.pub")
	require.ErrorIs(t, err, history.ErrChainBroken)
	assert.Contains(t, out, "signed by another key")
}

func TestHistoryFlagOverridesDefault(t *testing.T) {
	fs := newFs(t, map[string]string{"pipeline.yml": goodPipeline})

	_, err := run(fs, "--history", "other.jsonl", "validate", "pipeline.yml")
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "other.jsonl")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fs, "history.jsonl")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(server.New(check.New(logging.Discard()), nil, logging.Discard()).Routes())
	defer srv.Close()

	fs := newFs(t, map[string]string{
		"good.yml": goodPipeline,
		"bad.yml":  badPipeline,
	})

	out, err := run(fs, "submit", "good.yml", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ good.yml")
	assert.Contains(t, out, `"status":"passed"`)

	out, err = run(fs, "submit", "bad.yml", "--server", srv.URL+"/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, out, "non-existent stage")
}
