// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli sets up the check_sshfp command line with Cobra. The root
// command runs the check and prints exactly one status line; every error,
// including bad flags, becomes an UNKNOWN line with exit code 3.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshfpcheck/buildvars"
	"github.com/toeirei/sshfpcheck/internal/check"
	"github.com/toeirei/sshfpcheck/internal/config"
	"github.com/toeirei/sshfpcheck/internal/db"
	"github.com/toeirei/sshfpcheck/internal/i18n"
	"github.com/toeirei/sshfpcheck/internal/keyscan"
	"github.com/toeirei/sshfpcheck/internal/logging"
	"github.com/toeirei/sshfpcheck/internal/model"
	"github.com/toeirei/sshfpcheck/internal/resolver"
	"github.com/toeirei/sshfpcheck/internal/status"
)

// CheckerFactory builds the checker for a loaded configuration.
type CheckerFactory func(cfg config.Config) (*check.Checker, error)

// app carries the per-invocation state shared by the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	newChecker CheckerFactory
	// report is set by the root command once a check ran.
	report *status.Report

	configFile string
	host       string
	port       int
}

// rootBindings maps config keys to the flags that override them.
var rootBindings = map[string]string{
	"nameserver":      "nameserver",
	"timeout":         "timeout",
	"no-dnssec":       "no-dnssec",
	"keyscan.path":    "keyscan-path",
	"keyscan.timeout": "keyscan-timeout",
	"debug":           "debug",
	"language":        "lang",
}

// persistentBindings covers the flags every subcommand inherits.
var persistentBindings = map[string]string{
	"debug":    "debug",
	"language": "lang",
}

// devVersion is reported when no version was linked in.
const devVersion = "dev"

// Main runs the command line and terminates through exit.
func Main(args []string, stdout, stderr io.Writer, exit func(int)) {
	a := &app{stdout: stdout, stderr: stderr, newChecker: defaultChecker}
	a.run(buildvars.VersionOrDefault(devVersion), args, exit)
}

func (a *app) run(version string, args []string, exit func(int)) {
	cmd := a.newRootCmd(version)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		status.Exit(a.stdout, status.Report{Status: status.Unknown, Message: err.Error()}, exit)
		return
	}
	if a.report != nil {
		status.Exit(a.stdout, *a.report, exit)
		return
	}
	exit(0)
}

// newRootCmd creates the root command. A fresh instance is built per run so
// tests stay isolated.
func (a *app) newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check_sshfp",
		Short: "Check that SSHFP records in DNS match the host keys of an SSH service.",
		Long: `check_sshfp looks up the SSHFP records of a host, collects the host keys
its SSH service offers with ssh-keyscan and compares the two. It prints one
monitoring status line and exits with 0 (OK), 1 (WARNING), 2 (CRITICAL) or
3 (UNKNOWN).`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
		RunE:          a.runCheck,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate("check_sshfp {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is check_sshfp.yaml in the user config dir, /etc/check_sshfp or .)")
	cmd.PersistentFlags().Bool("debug", false, "write debug diagnostics to stderr")
	cmd.PersistentFlags().String("lang", "en", `message language ("en", "de")`)

	cmd.Flags().StringVarP(&a.host, "host", "H", "", "target hostname")
	cmd.Flags().IntVarP(&a.port, "port", "p", 0, "SSH TCP port (1-65535)")
	cmd.Flags().Bool("no-dnssec", false, "do not require a DNSSEC validated answer")
	cmd.Flags().String("nameserver", "", "query this nameserver instead of the system resolvers")
	cmd.Flags().Int("timeout", 10, "DNS query timeout in seconds")
	cmd.Flags().String("keyscan-path", keyscan.DefaultPath, "ssh-keyscan binary")
	cmd.Flags().Int("keyscan-timeout", int(keyscan.DefaultTimeout/time.Second), "ssh-keyscan timeout in seconds")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("port")

	cmd.AddCommand(a.newHistoryCmd())
	cmd.AddCommand(a.newWriteConfigCmd())

	return cmd
}

// loadConfig reads the configuration and applies the logging and language
// settings.
func (a *app) loadConfig(cmd *cobra.Command, bindings map[string]string) (config.Config, error) {
	c, err := config.LoadConfig[config.Config](cmd, config.Defaults(), &a.configFile, bindings)
	if err != nil {
		return c, fmt.Errorf("error loading config: %w", err)
	}
	logging.SetDebug(c.Debug)
	i18n.Init(c.Language)
	return c, nil
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig(cmd, rootBindings)
	if err != nil {
		return err
	}

	if a.port < 1 || a.port > 65535 {
		return errors.New(i18n.T("cli.invalid_port", a.port))
	}
	if cfg.Timeout < 0 {
		return errors.New(i18n.T("cli.invalid_timeout", cfg.Timeout))
	}

	checker, err := a.newChecker(cfg)
	if err != nil {
		return err
	}

	report := checker.Run(cmd.Context(), a.host, a.port)
	a.record(cmd.Context(), cfg, report)
	a.report = &report
	return nil
}

// record appends the run to the history database when one is configured.
// Failing to record never changes the check result.
func (a *app) record(ctx context.Context, cfg config.Config, report status.Report) {
	if cfg.History.Dsn == "" {
		return
	}
	store, err := db.Open(ctx, cfg.History.Type, cfg.History.Dsn)
	if err != nil {
		logging.Warnf("history: %v", err)
		return
	}
	defer store.Close()

	run := model.CheckRun{
		CheckedAt: time.Now().UTC(),
		Host:      a.host,
		Port:      a.port,
		Status:    report.Status.String(),
		Message:   report.Message,
	}
	if err := store.Record(ctx, run); err != nil {
		logging.Warnf("history: failed to record run: %v", err)
	}
}

func defaultChecker(cfg config.Config) (*check.Checker, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	r, err := resolver.New(resolver.Config{
		Nameserver: cfg.Nameserver,
		Timeout:    timeout,
		DNSSEC:     !cfg.NoDNSSEC,
	})
	if err != nil {
		return nil, err
	}
	return &check.Checker{
		Records:       r,
		Keys:          keyscan.New(cfg.Keyscan.Path, time.Duration(cfg.Keyscan.Timeout)*time.Second),
		RequireDNSSEC: !cfg.NoDNSSEC,
		DNSTimeout:    timeout,
	}, nil
}
