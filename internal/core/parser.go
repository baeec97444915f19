package core

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is the syntax a pipeline document is written in.
type Format int

const (
	FormatYAML Format = iota
	// FormatJSONC is JSON with comments and trailing commas.
	FormatJSONC
)

func (f Format) String() string {
	if f == FormatJSONC {
		return "jsonc"
	}
	return "yaml"
}

// FormatFromPath picks the format from a file extension. Anything that is
// not .json or .jsonc is read as YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSONC
	}
	return FormatYAML
}

// ParseDocument parses raw content into a Value tree without applying the
// pipeline schema.
func ParseDocument(data []byte, format Format) (Value, error) {
	if format == FormatJSONC {
		v, err := fromJSON(bytes.NewReader(jsonc.ToJSON(data)))
		if err != nil {
			return Value{}, fmt.Errorf("parsing pipeline JSON: %w", err)
		}
		return v, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, fmt.Errorf("parsing pipeline YAML: %w", err)
	}
	v, err := FromNode(&root)
	if err != nil {
		return Value{}, fmt.Errorf("parsing pipeline YAML: %w", err)
	}
	return v, nil
}

// ParsePipeline parses content into a Pipeline. Syntax errors are wrapped;
// schema errors are returned as a *DecodeError.
func ParsePipeline(data []byte, format Format) (*Pipeline, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return DecodePipeline(doc)
}

// LoadPipeline reads path from fs and parses it in the format its extension
// names.
func LoadPipeline(fs afero.Fs, path string) (*Pipeline, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}
	return ParsePipeline(data, FormatFromPath(path))
}

// MarshalPipeline renders p as YAML. Parsing the output yields a pipeline
// equal to p.
func MarshalPipeline(p *Pipeline) ([]byte, error) {
	return MarshalValue(EncodePipeline(p))
}

// MarshalValue renders v as a YAML document with two-space indentation.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v.ToNode()); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}
