package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gcm/internal/config"
	"gcm/internal/daemonctl"
	"gcm/internal/endpoint"
	"gcm/internal/fault"
	"gcm/internal/identity"
	"gcm/internal/ipc"
	"gcm/internal/logging"
)

const usageMessage = "usage: gcm <command>"

// dependencies are the process-level effects a test replaces.
type dependencies struct {
	resolve func() (identity.Identity, error)
	dial    ipc.DialFunc
	launch  func(daemonctl.LaunchOptions) error
	getenv  func(string) string
}

func defaultDependencies() dependencies {
	return dependencies{
		resolve: identity.Resolve,
		dial:    ipc.DialUnix,
		launch:  daemonctl.Launch,
		getenv:  os.Getenv,
	}
}

// run executes one credential request and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, deps dependencies) int {
	if args == nil {
		args = []string{}
	}
	cmd := newRootCommand(deps)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, fault.Diagnostic(err))
		return fault.ExitCode(err)
	}
	return 0
}

func newRootCommand(deps dependencies) *cobra.Command {
	return &cobra.Command{
		Use:                "gcm <command>",
		Short:              "Forward a git credential request to gcmd",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fault.Usage(usageMessage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return exchange(cmd.Context(), deps, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func exchange(ctx context.Context, deps dependencies, verb string, in io.Reader, out, errOut io.Writer) error {
	trace := logging.NewTrace(logging.TraceEnabled(deps.getenv(logging.TraceEnv)), errOut)

	id, err := deps.resolve()
	if err != nil {
		return err
	}
	trace.Debug("resolved identity",
		logging.Int("uid", id.UID),
		logging.String("home", id.Home),
		logging.Bool("elevated", id.Elevated))

	cfg, cfgPath, _, err := config.Load(config.ResolvePath(endpoint.AppDir(id)))
	if err != nil {
		return fault.Config("load config", err)
	}
	trace.Debug("configuration loaded", logging.String("path", cfgPath))

	path, err := endpoint.Build(id)
	if err != nil {
		return err
	}

	launchOpts, err := daemonctl.ResolveLaunchOptions(cfg.Daemon.Dir, cfg.Daemon.Name)
	if err != nil {
		return fault.Config("locate daemon", err)
	}
	launcher := daemonctl.NewLauncher(launchOpts, cfg.GracePeriod(), trace)
	launcher.Start = deps.launch

	client := ipc.NewClient(path,
		ipc.WithDialer(deps.dial),
		ipc.WithBootstrapper(launcher),
		ipc.WithLogger(trace),
	)
	if err := client.Exchange(ctx, verb, in, out); err != nil {
		return err
	}
	trace.Debug("exchange complete", logging.String(logging.FieldVerb, verb))
	return nil
}
