package templates

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"pipecheck/internal/core"
)

// SchemaError lists the JSON schema violations of a parameter block.
type SchemaError struct {
	Template string
	Issues   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("parameters for template %q violate its schema: %s", e.Template, strings.Join(e.Issues, "; "))
}

// SchemaEntrypoint checks the raw parameters against a JSON schema before
// handing the pipeline to next.
type SchemaEntrypoint struct {
	next   Entrypoint
	schema *gojsonschema.Schema
}

// NewSchemaEntrypoint compiles schema, a JSON schema document.
func NewSchemaEntrypoint(next Entrypoint, schema []byte) (*SchemaEntrypoint, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compiling parameter schema: %w", err)
	}
	return &SchemaEntrypoint{next: next, schema: s}, nil
}

// LoadSchemaEntrypoint reads the schema from path. YAML and JSONC schemas
// are accepted as well as plain JSON.
func LoadSchemaEntrypoint(fs afero.Fs, path string, next Entrypoint) (*SchemaEntrypoint, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter schema: %w", err)
	}
	doc, err := core.ParseDocument(data, core.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing parameter schema: %w", err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc.Interface()))
	if err != nil {
		return nil, fmt.Errorf("compiling parameter schema: %w", err)
	}
	return &SchemaEntrypoint{next: next, schema: s}, nil
}

func (e *SchemaEntrypoint) Name() string { return "schema+" + e.next.Name() }

func (e *SchemaEntrypoint) Parse(p *core.Pipeline) (*core.ExtendsParameters, error) {
	params := make(map[string]any, len(p.Extends.Parameters))
	for k, v := range p.Extends.Parameters {
		params[k] = v.Interface()
	}
	result, err := e.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, fmt.Errorf("validating parameters: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			issues = append(issues, re.String())
		}
		return nil, &SchemaError{Template: p.Extends.Template, Issues: issues}
	}
	return e.next.Parse(p)
}
