package main

import (
	"log/slog"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipecheck/internal/config"
	"pipecheck/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	fs         afero.Fs
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func NewCmdRoot(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, v: config.New(fs)}

	cmd := &cobra.Command{
		Use:   "pipecheck <command> [flags]",
		Short: "Check Azure Pipelines definitions",
		Long: heredoc.Doc(`
			Check that pipeline definitions match the pipeline schema and that
			every dependsOn names a stage or job declared before it.
		`),
		Example: heredoc.Doc(`
			$ pipecheck validate azure-pipelines.yml
			$ pipecheck history verify
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("history", "", "history ledger path")
	_ = a.v.BindPFlag(config.LogLevelKey, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.LogFormatKey, flags.Lookup("log-format"))
	_ = a.v.BindPFlag(config.HistoryPathKey, flags.Lookup("history"))

	cmd.AddCommand(newCmdValidate(a))
	cmd.AddCommand(newCmdSubmit(a))
	cmd.AddCommand(newCmdHistory(a))
	return cmd
}
