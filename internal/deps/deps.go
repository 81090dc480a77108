// Package deps reports whether the external programs gcm relies on can be
// found.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"gcm/internal/config"
)

// Requirement names one external program.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// ForConfig lists the daemon executable and the backend credential helper.
func ForConfig(cfg *config.Config, daemonExecutable string) []Requirement {
	reqs := []Requirement{{
		Name:        "daemon",
		Command:     daemonExecutable,
		Description: "started by gcm when the socket is unreachable",
	}}
	if cfg != nil && len(cfg.Daemon.Helper) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "helper",
			Command:     cfg.Daemon.Helper[0],
			Description: strings.Join(cfg.Daemon.Helper, " "),
		})
	}
	return reqs
}

// CheckBinaries evaluates each requirement with exec.LookPath.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	status.Path = resolved
	return status
}

// Missing returns the required entries that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
