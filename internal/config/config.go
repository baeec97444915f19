// Package config loads pipecheck settings from defaults, an optional config
// file and PIPECHECK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	ServerAddrKey  = "server.addr"
	HistoryPathKey = "history.path"
	HistoryKeyKey  = "history.key"
	OutputDirKey   = "output.dir"
	LogLevelKey    = "log.level"
	LogFormatKey   = "log.format"
	SchemaFileKey  = "schema.file"
	TemplatesKey   = "schema.templates"
	ServerURLKey   = "server.url"

	EnvPrefix = "PIPECHECK"
)

// Config is the resolved configuration.
//
// config file format (yaml):
//
//	server:
//	  addr: :8080
//	  url: http://localhost:8080
//	history:
//	  path: ./history.jsonl
//	  key: ./keys/history.priv
//	output:
//	  dir: ./out
//	log:
//	  level: debug
//	  format: json
//	schema:
//	  file: ./parameters.schema.json
//	  templates:
//	    - template: v1/stages.yml@templates
//	      file: ./stages.schema.json
type Config struct {
	ServerAddr  string
	ServerURL   string
	HistoryPath string
	HistoryKey  string // private key file; empty leaves records unsigned
	OutputDir   string // empty disables artifacts
	LogLevel    string
	LogFormat   string
	SchemaFile  string // empty skips the parameter schema check
	Templates   []TemplateSchema
}

// TemplateSchema binds the template a pipeline extends to the JSON schema
// its parameters must satisfy. Template names are matched exactly.
type TemplateSchema struct {
	Template string `mapstructure:"template"`
	File     string `mapstructure:"file"`
}

// New returns a viper instance with defaults and environment binding set.
// Config files are read through fs.
func New(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetDefault(ServerAddrKey, ":8080")
	v.SetDefault(ServerURLKey, "http://localhost:8080")
	v.SetDefault(HistoryPathKey, "./history.jsonl")
	v.SetDefault(HistoryKeyKey, "")
	v.SetDefault(OutputDirKey, "")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogFormatKey, "text")
	v.SetDefault(SchemaFileKey, "")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when file is set and resolves the configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found", file)
			}
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}
	c := &Config{
		ServerAddr:  v.GetString(ServerAddrKey),
		ServerURL:   v.GetString(ServerURLKey),
		HistoryPath: v.GetString(HistoryPathKey),
		HistoryKey:  v.GetString(HistoryKeyKey),
		OutputDir:   v.GetString(OutputDirKey),
		LogLevel:    v.GetString(LogLevelKey),
		LogFormat:   v.GetString(LogFormatKey),
		SchemaFile:  v.GetString(SchemaFileKey),
	}
	if err := v.UnmarshalKey(TemplatesKey, &c.Templates); err != nil {
		return nil, fmt.Errorf("reading %s: %w", TemplatesKey, err)
	}
	for i, t := range c.Templates {
		if t.Template == "" || t.File == "" {
			return nil, fmt.Errorf("%s[%d]: template and file are required", TemplatesKey, i)
		}
	}
	if c.HistoryPath == "" {
		return nil, fmt.Errorf("%s must not be empty", HistoryPathKey)
	}
	return c, nil
}
