package check

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"pipecheck/internal/config"
	"pipecheck/internal/history"
	"pipecheck/internal/security"
	"pipecheck/internal/storage"
	"pipecheck/internal/templates"
)

// FromConfig assembles a Checker from cfg. The history ledger is opened
// only when withHistory is set.
func FromConfig(fs afero.Fs, cfg *config.Config, logger *slog.Logger, withHistory bool) (*Checker, error) {
	c := New(logger)

	e, err := entrypointFromConfig(fs, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Entrypoint = e
	if cfg.OutputDir != "" {
		c.Storage = storage.NewArtifactStorage(fs, cfg.OutputDir)
	}
	if withHistory {
		ledger, err := OpenHistory(fs, cfg)
		if err != nil {
			return nil, err
		}
		c.Ledger = ledger
	}
	return c, nil
}

// entrypointFromConfig builds the stages entrypoint, wrapped in the default
// parameter schema when one is set. Templates with their own schema are
// dispatched through a registry that falls back to it.
func entrypointFromConfig(fs afero.Fs, cfg *config.Config, logger *slog.Logger) (templates.Entrypoint, error) {
	var fallback templates.Entrypoint = templates.Stages{}
	if cfg.SchemaFile != "" {
		e, err := templates.LoadSchemaEntrypoint(fs, cfg.SchemaFile, fallback)
		if err != nil {
			return nil, err
		}
		fallback = e
		logger.Debug("parameter schema loaded", "file", cfg.SchemaFile)
	}
	if len(cfg.Templates) == 0 {
		return fallback, nil
	}

	reg := templates.NewRegistry(fallback)
	for _, t := range cfg.Templates {
		e, err := templates.LoadSchemaEntrypoint(fs, t.File, templates.Stages{})
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Template, err)
		}
		reg.Register(t.Template, e)
	}
	logger.Debug("template schemas loaded", "templates", reg.Templates())
	return reg, nil
}

// OpenHistory opens the configured ledger, signing new records when a key
// is configured.
func OpenHistory(fs afero.Fs, cfg *config.Config) (*history.Ledger, error) {
	var opts []history.Option
	if cfg.HistoryKey != "" {
		priv, err := security.LoadPrivateKey(fs, cfg.HistoryKey)
		if err != nil {
			return nil, fmt.Errorf("loading history key: %w", err)
		}
		opts = append(opts, history.WithSigningKey(priv))
	}
	ledger, err := history.OpenLedger(fs, cfg.HistoryPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return ledger, nil
}
