// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshfpcheck/internal/config"
	"github.com/toeirei/sshfpcheck/internal/db"
	"github.com/toeirei/sshfpcheck/internal/i18n"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var host string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded check runs for a host",
		Long: `Lists the most recent recorded runs for a host, newest first, followed by
the last time its status changed. Requires history.dsn in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, persistentBindings)
			if err != nil {
				return err
			}
			if cfg.History.Dsn == "" {
				return errors.New(i18n.T("cli.history_disabled"))
			}

			store, err := db.Open(cmd.Context(), cfg.History.Type, cfg.History.Dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), host, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, i18n.T("cli.history_empty", host))
				return nil
			}
			for _, r := range runs {
				fmt.Fprintln(out, r.String())
			}

			change, err := store.LastStatusChange(cmd.Context(), host)
			if err != nil {
				return err
			}
			if change != nil {
				fmt.Fprintf(out, "last status change: %s\n", change.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&host, "host", "H", "", "hostname to show")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show (0 for all)")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}

func (a *app) newWriteConfigCmd() *cobra.Command {
	var system bool

	cmd := &cobra.Command{
		Use:   "write-config",
		Short: "Write the effective configuration to a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd, persistentBindings)
			if err != nil {
				return err
			}
			path, err := config.WriteConfigFile(&cfg, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "write the system-wide file instead of the user file")
	return cmd
}
