package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"pipecheck/internal/check"
	"pipecheck/internal/config"
	"pipecheck/internal/logging"
	"pipecheck/internal/server"
)

func main() {
	if err := newCmdServer(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmdServer(fs afero.Fs) *cobra.Command {
	v := config.New(fs)
	var configFile string

	cmd := &cobra.Command{
		Use:          "pipecheck-server",
		Short:        "Serve pipeline checks over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			checker, err := check.FromConfig(fs, cfg, logger, true)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.ServerAddr,
				Handler:           server.New(checker, checker.Ledger, logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				logger.Info("pipecheck server listening", "addr", cfg.ServerAddr, "history", cfg.HistoryPath)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file")
	cmd.Flags().String("addr", "", "listen address")
	_ = v.BindPFlag(config.ServerAddrKey, cmd.Flags().Lookup("addr"))
	return cmd
}
