package core

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureParameters() *ExtendsParameters {
	return &ExtendsParameters{
		Containers:      map[string]string{"golang": "golang:1.23"},
		CustomBuildTags: []string{"ci"},
		FeatureFlags:    &FeatureFlags{Golang: GolangFeatureFlags{InternalModuleProxy: ModuleProxy{Enabled: true}}},
		Stages: []Stage{
			&StageWithJobs{
				Name: ptr("build"),
				Jobs: []Job{
					&JobTemplate{
						Template:   ptr("jobs/go-build.yml"),
						Parameters: map[string]Value{"jobNameOverride": String("compile")},
					},
					&JobWithSteps{
						Name:             ptr("test"),
						DependsOn:        DependsOnName("compile"),
						TimeoutInMinutes: ptr("30"),
						Steps: []Step{
							&CheckoutStep{Checkout: ptr("self"), PersistCredentials: true},
							&TaskStep{
								Task:        ptr("Go@0"),
								DisplayName: ptr("go test"),
								Inputs:      map[string]string{"command": "test", "arguments": "./..."},
								Env:         map[string]string{"CGO_ENABLED": "0"},
								Target:      &StepTarget{Container: "golang"},
							},
						},
					},
				},
			},
			&StageWithJobs{
				Name:      ptr("publish"),
				DependsOn: DependsOnList{"build"},
				Condition: ptr("succeeded()"),
				Jobs: []Job{
					&JobWithSteps{Name: ptr("push"), Steps: []Step{&StepTemplate{Template: ptr("steps/push.yml")}}},
				},
			},
		},
	}
}

func loadFixture(t *testing.T, name string) *Pipeline {
	t.Helper()
	p, err := LoadPipeline(afero.NewReadOnlyFs(afero.NewOsFs()), "testdata/"+name)
	require.NoError(t, err)
	return p
}

func TestLoadPipelineFixture(t *testing.T) {
	p := loadFixture(t, "pipeline.yml")

	assert.Equal(t, "v1/stages.yml@templates", p.Extends.Template)
	header := *p
	header.Extends = Extends{}
	assert.Equal(t, &Pipeline{
		Name: ptr("$(Date:yyyyMMdd).$(Rev:r)"),
		Trigger: &FilterTrigger{
			Branches: &TriggerFilter{Include: []string{"main"}, Exclude: []string{"releases/old*"}},
			Paths:    &TriggerFilter{Exclude: []string{"docs"}},
		},
		PR: DisabledTrigger{},
		Resources: &Resources{
			Repositories: []RepositoryResource{{Alias: "templates", Type: "git", Name: "platform/pipeline-templates", Ref: "refs/tags/v2"}},
			Containers:   []ContainerResource{{Name: "golang", Image: "golang:1.23"}},
		},
		Parameters: []RuntimeParameter{{
			Name:        "runIntegration",
			DisplayName: ptr("Run integration tests"),
			Type:        ptr("boolean"),
			Default:     ptr(Bool(false)),
		}},
		Variables: []Variable{
			&VariableGroup{Group: "shared-secrets"},
			&NamedVariable{Name: "GOFLAGS", Value: "-mod=readonly"},
		},
	}, &header)

	params, err := DecodeExtendsParameters(p.Extends.Parameters)
	require.NoError(t, err)
	assert.Equal(t, fixtureParameters(), params)
}

func TestJSONCAndYAMLDecodeToEqualTrees(t *testing.T) {
	assert.Equal(t, loadFixture(t, "pipeline.yml"), loadFixture(t, "pipeline.jsonc"))
}

func TestMarshalPipelineRoundTrip(t *testing.T) {
	p := loadFixture(t, "pipeline.yml")

	out, err := MarshalPipeline(p)
	require.NoError(t, err)
	again, err := ParsePipeline(out, FormatYAML)
	require.NoError(t, err, "marshalled:\n%s", out)
	assert.Equal(t, p, again)
}

func TestExtendsParametersRoundTrip(t *testing.T) {
	want := fixtureParameters()
	got, err := DecodeExtendsParameters(EncodeExtendsParameters(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValueYAMLRoundTrip(t *testing.T) {
	v := Mapping(
		Entry{Key: "quotedNumber", Value: String("30")},
		Entry{Key: "quotedBool", Value: String("true")},
		Entry{Key: "quotedNull", Value: String("null")},
		Entry{Key: "empty", Value: String("")},
		Entry{Key: "multiline", Value: String("line one\nline two\n")},
		Entry{Key: "float", Value: Number(1.5)},
		Entry{Key: "int", Value: Int(-3)},
		Entry{Key: "integralFloat", Value: Number(2)},
		Entry{Key: "bigFloat", Value: Number(1e20)},
		Entry{Key: "bigInt", Value: Int(9007199254740993)},
		Entry{Key: "bool", Value: Bool(false)},
		Entry{Key: "null", Value: Null()},
		Entry{Key: "emptyList", Value: List()},
		Entry{Key: "emptyMap", Value: Mapping()},
		Entry{Key: "nested", Value: List(Mapping(Entry{Key: "a", Value: List(String("b"))}))},
	)
	out, err := MarshalValue(v)
	require.NoError(t, err)
	got, err := ParseDocument(out, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, v, got, "marshalled:\n%s", out)
	assert.True(t, v.Equal(got))
}

func TestParseDocumentScalars(t *testing.T) {
	v := doc(t, `
int: 42
hex: 0x10
float: 2.5
bool: true
null: ~
quoted: '1'
date: 2024-01-02
big: 9007199254740993
`)
	tests := map[string]Value{
		"int":    Int(42),
		"hex":    Int(16),
		"float":  Number(2.5),
		"bool":   Bool(true),
		"null":   Null(),
		"quoted": String("1"),
		"date":   String("2024-01-02"),
		"big":    Int(9007199254740993),
	}
	for key, want := range tests {
		got, ok := v.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	assert.Equal(t, []string{"int", "hex", "float", "bool", "null", "quoted", "date", "big"}, v.Keys())
}

func TestParseDocumentAliases(t *testing.T) {
	v := doc(t, `
common: &common
  pool: linux
copy: *common
`)
	got, _ := v.Get("copy")
	assert.Equal(t, Mapping(Entry{Key: "pool", Value: String("linux")}), got)

	_, err := ParseDocument([]byte("base: &b {a: 1}\nderived:\n  <<: *b\n"), FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge keys are not supported")
}

func TestParseDocumentDuplicateKeys(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		want   string
	}{
		{
			name:   "yaml flow mapping",
			data:   "extends: {template: a, template: b}\n",
			format: FormatYAML,
			want:   `line 1: duplicate key "template" (first defined on line 1)`,
		},
		{
			name:   "yaml top level",
			data:   "extends:\n  template: a\nextends:\n  template: b\n",
			format: FormatYAML,
			want:   `line 3: duplicate key "extends" (first defined on line 1)`,
		},
		{
			name:   "json",
			data:   `{"extends": {"template": "a", "template": "b"}}`,
			format: FormatJSONC,
			want:   `duplicate key "template"`,
		},
		{
			name:   "jsonc nested in list",
			data:   `{"stages": [{"stage": "A", /* again */ "stage": "B"}]}`,
			format: FormatJSONC,
			want:   `duplicate key "stage"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			_, isDecode := AsDecodeError(err)
			assert.False(t, isDecode)
		})
	}

	_, err := ParseDocument([]byte("a: {x: 1}\nb: {x: 2}\n"), FormatYAML)
	assert.NoError(t, err, "the same key in sibling mappings is fine")
}

func TestDecodeLargeIntegerText(t *testing.T) {
	v := doc(t, "job: build\ntimeoutInMinutes: 1000000000000000\n")
	job, err := DecodeJob(v)
	require.NoError(t, err)
	assert.Equal(t, ptr("1000000000000000"), job.(*JobWithSteps).TimeoutInMinutes)
}

func TestParsePipelineSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		want   string
	}{
		{"yaml", "extends: [\n", FormatYAML, "parsing pipeline YAML"},
		{"json", `{"extends": }`, FormatJSONC, "parsing pipeline JSON"},
		{"json trailing data", `{} {}`, FormatJSONC, "unexpected data after document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			_, isDecode := AsDecodeError(err)
			assert.False(t, isDecode)
		})
	}
}

func TestParsePipelineEmptyDocument(t *testing.T) {
	_, err := ParsePipeline(nil, FormatYAML)
	de := requireDecodeError(t, err, ErrTypeMismatch)
	assert.Equal(t, "null", de.Actual)
}

func TestLoadPipelineMissingFile(t *testing.T) {
	_, err := LoadPipeline(afero.NewMemMapFs(), "missing.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading pipeline file")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("azure-pipelines.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("ci/pipeline.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("Pipelinefile"))
	assert.Equal(t, FormatJSONC, FormatFromPath("pipeline.json"))
	assert.Equal(t, FormatJSONC, FormatFromPath("pipeline.JSONC"))
}
