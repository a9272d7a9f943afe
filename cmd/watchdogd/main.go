// cmd/watchdogd/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tamzrod/health-watchdog/internal/runner"
)

// exitRebootRequested tells the service supervisor to restart us.
const exitRebootRequested = 3

func main() {
	err := newRootCmd().Execute()
	if err != nil && !errors.Is(err, runner.ErrRebootRequested) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps the command result to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, runner.ErrRebootRequested):
		return exitRebootRequested
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "watchdogd",
		Short:         "Health monitoring and tiered recovery daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d modules, tick=%dms\n", len(cfg.Modules), cfg.Watchdog.TickMs)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "watchdog.yaml", "Path to config file")
	return cmd
}

func newRunCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watchdog loop",
		Long: `Run the watchdog loop.

Every tick all configured modules are checked, failing modules are
escalated through SOFT, MODULE_RESTART, SYSTEM_REBOOT and
HARDWARE_WATCHDOG_RESET, and the hardware watchdog is fed only while the
system is OK or WARNING.

A system reboot request ends the process with exit code 3.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "watchdog.yaml", "Path to config file")
	return cmd
}
