package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/protectgrid/internal/app"
	"github.com/spf13/cobra"
)

// options are the global flags shared by every command.
type options struct {
	providerConfigDir string
	inventoryPath     string
	healthcheckPort   int
	logFormat         string
	logLevel          string
	workers           int
}

// config validates the flags into an app.Config.
func (o *options) config() (*app.Config, error) {
	logFormat := strings.ToLower(o.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(o.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	cfg, err := app.NewConfig(app.Config{
		ProviderConfigDir: o.providerConfigDir,
		InventoryPath:     o.inventoryPath,
		HealthcheckPort:   o.healthcheckPort,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		WorkerCount:       o.workers,
	})
	if err != nil {
		return nil, usageError("%v", err)
	}
	slog.Debug("CLI parameter validation complete.", "config", cfg)
	return cfg, nil
}

// withApp builds the app from the global flags, runs fn and closes the app.
// Logs go to the command's stderr so stdout only carries results; commands
// run their operations on a.Context(), which carries the app logger.
func (o *options) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	a, err := app.NewApp(cmd.Context(), cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// NewRootCommand builds the protectgrid command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "protectgrid",
		Short: "protectgrid - checkpoint and restore groups of dependent cloud resources.",
		Long: `protectgrid discovers the resources a plan depends on, builds a protection
workflow from the configured providers and records the result as a checkpoint
in the provider's bank.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&o.providerConfigDir, "provider-config-dir", "p", "providers", "Directory containing provider definitions (*.hcl).")
	flags.StringVarP(&o.inventoryPath, "inventory", "i", "inventory.yaml", "Path to the cloud inventory file.")
	flags.IntVar(&o.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	flags.StringVar(&o.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&o.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.IntVar(&o.workers, "workers", 10, "Number of concurrent workers for the workflow engine. 0 uses the CPU count.")

	root.AddCommand(
		newServeCommand(o),
		newProtectCommand(o),
		newRestoreCommand(o),
		newCheckpointCommand(o),
		newProviderCommand(o),
		newProtectableCommand(o),
	)
	return root
}

// Execute runs the command tree on args. Errors that are not already an
// *ExitError are returned as is and mean exit code 1.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)

	err := root.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) && strings.HasPrefix(err.Error(), "unknown command") {
		return usageError("%v", err)
	}
	return err
}
