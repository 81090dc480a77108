package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gcm/internal/daemon"
	"gcm/internal/daemonctl"
	"gcm/internal/daemonrun"
	"gcm/internal/deps"
	"gcm/internal/endpoint"
)

type statusReport struct {
	Socket       string
	LockPath     string
	PID          int
	Locked       bool
	Reachable    bool
	Dependencies []deps.Status
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether gcmd is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := ctx.socketPath()
			if err != nil {
				return err
			}
			report, err := collectStatus(path)
			if err != nil {
				return err
			}
			launch, err := daemonctl.ResolveLaunchOptions(cfg.Daemon.Dir, cfg.Daemon.Name)
			if err != nil {
				return err
			}
			report.Dependencies = deps.CheckBinaries(deps.ForConfig(cfg, launch.Executable))
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(report))
			return nil
		},
	}
}

func collectStatus(path endpoint.Path) (statusReport, error) {
	report := statusReport{
		Socket:   path.String(),
		LockPath: daemon.LockPath(path),
	}

	reachable, err := daemonctl.Reachable(path)
	if err != nil {
		return report, fmt.Errorf("probe socket: %w", err)
	}
	report.Reachable = reachable

	locked, err := daemon.Locked(report.LockPath)
	if err != nil {
		return report, fmt.Errorf("probe lock: %w", err)
	}
	report.Locked = locked
	if locked {
		report.PID = daemonrun.ReadPID(path.Dir())
	}
	return report, nil
}

func renderStatus(report statusReport) string {
	title := cases.Title(language.English)
	pid := "-"
	if report.PID > 0 {
		pid = strconv.Itoa(report.PID)
	}
	rows := [][]string{
		{title.String("socket"), report.Socket},
		{title.String("lock file"), report.LockPath},
		{title.String("lock held"), yesNo(report.Locked)},
		{title.String("process"), pid},
		{title.String("accepting connections"), yesNo(report.Reachable)},
	}
	for _, dep := range report.Dependencies {
		value := "available"
		if !dep.Available {
			value = dep.Detail
		}
		rows = append(rows, []string{title.String(dep.Name), fmt.Sprintf("%s (%s)", dep.Command, value)})
	}
	return renderTable([]string{"Field", "Value"}, rows)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
