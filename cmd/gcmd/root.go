package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gcm/internal/daemonrun"
)

type globalFlags struct {
	socket   string
	config   string
	logLevel string
}

func bindGlobalFlags(flags *pflag.FlagSet, g *globalFlags) {
	flags.StringVar(&g.socket, "socket", "", "Path to the gcmd socket (default <home>/.gcm/.pipe)")
	flags.StringVarP(&g.config, "config", "c", "", "Configuration file path")
	flags.StringVar(&g.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
}

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "gcmd",
		Short:         "Credential daemon for gcm",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := ctx.socketPath()
			if err != nil {
				return err
			}
			opts := daemonrun.Options{LogLevel: flags.logLevel}
			if id, err := ctx.ensureIdentity(); err == nil && id.Elevated {
				opts.Owner = id.UID
			}
			return daemonrun.Run(cmd.Context(), cfg, path, opts)
		},
	}

	bindGlobalFlags(rootCmd.PersistentFlags(), &flags)

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
