package main

import (
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipecheck/internal/check"
	"pipecheck/internal/security"
	"pipecheck/pkg/utils"
)

func newCmdHistory(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <command>",
		Short: "Inspect and verify the history ledger",
		Long: heredoc.Doc(`
			Every validation is recorded in an append-only ledger. Each record
			holds the SHA-256 of the checked document and the hash of the record
			before it, so editing any record breaks the chain from there on.
		`),
	}
	cmd.AddCommand(newCmdHistoryInspect(a))
	cmd.AddCommand(newCmdHistoryVerify(a))
	cmd.AddCommand(newCmdHistoryLookup(a))
	cmd.AddCommand(newCmdHistoryKeygen(a))
	return cmd
}

func newCmdHistoryInspect(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List history records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := check.OpenHistory(a.fs, a.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range ledger.Records() {
				signed := ""
				if r.Signature != "" {
					signed = " signed"
				}
				fmt.Fprintf(out, "Index=%d Time=%s Status=%s Source=%s Digest=%s Hash=%s%s\n",
					r.Index, r.Timestamp, r.Status, r.Source, short(r.Digest), short(r.Hash), signed)
			}
			return nil
		},
	}
}

func newCmdHistoryVerify(a *app) *cobra.Command {
	var pubKeyFile string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute the history chain",
		Long: heredoc.Doc(`
			Recompute every record hash and link and check any signatures.

			With --pubkey every record must also be signed by that key, so a
			ledger rewritten and re-signed with another key is rejected.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := check.OpenHistory(a.fs, a.cfg)
			if err != nil {
				return err
			}
			verify := ledger.Verify
			if pubKeyFile != "" {
				pub, err := security.LoadPublicKey(a.fs, pubKeyFile)
				if err != nil {
					return fmt.Errorf("loading public key: %w", err)
				}
				verify = func() error { return ledger.VerifySigner(pub) }
			}
			out := cmd.OutOrStdout()
			if err := verify(); err != nil {
				fmt.Fprintln(out, color.RedString("❌ history verification failed: %v", err))
				return err
			}
			fmt.Fprintln(out, color.GreenString("✅ history verification ok (%d records, head %s)", ledger.Len(), short(ledger.LastHash())))
			return nil
		},
	}
	cmd.Flags().StringVar(&pubKeyFile, "pubkey", "", "require every record to be signed by this public key")
	return cmd
}

func newCmdHistoryLookup(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup FILE",
		Short: "List the history records of a file's current content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := utils.HashFile(a.fs, args[0])
			if err != nil {
				return err
			}
			ledger, err := check.OpenHistory(a.fs, a.cfg)
			if err != nil {
				return err
			}
			records := ledger.Find(digest)
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "no records for %s (digest %s)\n", args[0], short(digest))
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "Index=%d Time=%s Status=%s Source=%s\n", r.Index, r.Timestamp, r.Status, r.Source)
			}
			return nil
		},
	}
}

func newCmdHistoryKeygen(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key pair for signing history records",
		Example: heredoc.Doc(`
			$ pipecheck history keygen --dir keys
			$ PIPECHECK_HISTORY_KEY=keys/history.priv pipecheck validate pipeline.yml
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, priv, err := security.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := a.fs.MkdirAll(dir, 0o700); err != nil {
				return err
			}
			pubPath := filepath.Join(dir, "history.pub")
			privPath := filepath.Join(dir, "history.priv")
			if err := security.SaveKeyPair(a.fs, pub, priv, pubPath, privPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public key:  %s\nprivate key: %s\n", pubPath, privPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "keys", "directory to write the key pair to")
	return cmd
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
