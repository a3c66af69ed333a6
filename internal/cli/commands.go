package cli

import (
	"os/signal"
	"syscall"

	"github.com/specialistvlad/protectgrid/internal/app"
	"github.com/specialistvlad/protectgrid/internal/manager"
	"github.com/spf13/cobra"
)

func newServeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load every provider and serve health checks and metrics until interrupted.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(a *app.App) error {
				ctx, stop := signal.NotifyContext(a.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return a.Serve(ctx)
			})
		},
	}
}

func newProtectCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "protect PLAN_FILE",
		Short: "Take a checkpoint of the resources of a plan.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := manager.LoadPlan(args[0])
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(a *app.App) error {
				cp, err := a.Manager().Protect(a.Context(), plan)
				if cp != nil {
					if werr := writeYAML(cmd.OutOrStdout(), newCheckpointView(cp)); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}
}

func newRestoreCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore RESTORE_FILE",
		Short: "Restore the resources recorded in an available checkpoint.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := manager.LoadRestoreRequest(args[0])
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(a *app.App) error {
				tpl, err := a.Manager().Restore(a.Context(), req)
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), newRestoreView(tpl))
			})
		},
	}
}

func newCheckpointCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and delete checkpoints.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list PROVIDER_ID",
			Short: "List the checkpoints of a provider.",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					cps, err := a.Manager().ListCheckpoints(a.Context(), args[0])
					if err != nil {
						return err
					}
					views := make([]checkpointView, 0, len(cps))
					for _, cp := range cps {
						views = append(views, newCheckpointView(cp))
					}
					return writeYAML(cmd.OutOrStdout(), views)
				})
			},
		},
		&cobra.Command{
			Use:   "show PROVIDER_ID CHECKPOINT_ID",
			Short: "Show a checkpoint and its resource graph.",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					cp, err := a.Manager().ShowCheckpoint(a.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), newCheckpointView(cp))
				})
			},
		},
		&cobra.Command{
			Use:   "delete PROVIDER_ID CHECKPOINT_ID",
			Short: "Delete a checkpoint and the data its plugins saved.",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					return a.Manager().DeleteCheckpoint(a.Context(), args[0], args[1])
				})
			},
		},
	)
	return cmd
}

func newProviderCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Inspect the loaded protection providers.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the providers that loaded successfully.",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					providers := a.Manager().Providers().ListProviders()
					views := make([]providerView, 0, len(providers))
					for _, p := range providers {
						views = append(views, newProviderView(p, false))
					}
					return writeYAML(cmd.OutOrStdout(), views)
				})
			},
		},
		&cobra.Command{
			Use:   "show PROVIDER_ID",
			Short: "Show a provider with its parameter schemas.",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					p, err := a.Manager().Providers().ShowProvider(args[0])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), newProviderView(p, true))
				})
			},
		},
	)
	return cmd
}

func newProtectableCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protectable",
		Short: "Query protectable resource types and instances.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "types",
			Short: "List protectable resource types.",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					return writeYAML(cmd.OutOrStdout(), a.Manager().ListProtectableTypes())
				})
			},
		},
		&cobra.Command{
			Use:   "show-type TYPE",
			Short: "Show a resource type and the types that can depend on it.",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					t, err := a.Manager().ShowProtectableType(args[0])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), t)
				})
			},
		},
		&cobra.Command{
			Use:   "instances TYPE",
			Short: "List the resources of a type.",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					rs, err := a.Manager().ListProtectableInstances(a.Context(), args[0])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), rs)
				})
			},
		},
		&cobra.Command{
			Use:   "show TYPE ID",
			Short: "Show one resource.",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					r, err := a.Manager().ShowProtectableInstance(a.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), r)
				})
			},
		},
		&cobra.Command{
			Use:   "dependents TYPE ID",
			Short: "List the direct dependents of one resource.",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(a *app.App) error {
					rs, err := a.Manager().ListProtectableDependents(a.Context(), args[0], args[1])
					if err != nil {
						return err
					}
					return writeYAML(cmd.OutOrStdout(), rs)
				})
			},
		},
	)
	return cmd
}
