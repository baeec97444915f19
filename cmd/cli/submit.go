package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"pipecheck/internal/config"
	"pipecheck/internal/core"
)

func newCmdSubmit(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a pipeline file to a pipecheck server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := afero.ReadFile(a.fs, path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			url := strings.TrimSuffix(a.v.GetString(config.ServerURLKey), "/") + "/pipelines"
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(data))
			if err != nil {
				return err
			}
			contentType := "application/x-yaml"
			if core.FormatFromPath(path) == core.FormatJSONC {
				contentType = "application/json"
			}
			req.Header.Set("Content-Type", contentType)

			client := &http.Client{Timeout: 30 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("sending %s: %w", path, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}
			out := cmd.OutOrStdout()
			if resp.StatusCode >= http.StatusBadRequest {
				fmt.Fprintln(out, color.RedString("❌ server rejected %s: %s", path, resp.Status))
				fmt.Fprintln(out, strings.TrimSpace(string(body)))
				return fmt.Errorf("submit failed with %s", resp.Status)
			}
			fmt.Fprintln(out, color.GreenString("✅ %s", path))
			fmt.Fprintln(out, strings.TrimSpace(string(body)))
			return nil
		},
	}
	cmd.Flags().String("server", "", "server base URL")
	_ = a.v.BindPFlag(config.ServerURLKey, cmd.Flags().Lookup("server"))
	return cmd
}
