// Package identity resolves the real, non-elevated user that invoked gcm.
//
// When the process runs as the superuser through sudo the effective uid is
// meaningless for locating the daemon, so the original uid is recovered from
// the SUDO_UID hint. The strategy is chosen once per resolution.
package identity

import (
	"strconv"
	"strings"

	"gcm/internal/fault"
)

// ElevationHintEnv carries the pre-elevation uid when running as root.
const ElevationHintEnv = "SUDO_UID"

// Identity is the resolved owner of the daemon endpoint.
type Identity struct {
	UID      int
	Username string
	Home     string
	// Elevated is set when the uid came from the elevation hint.
	Elevated bool
}

// strategy yields the uid whose account owns the endpoint.
type strategy interface {
	uid(k dispatcher) (int, error)
	elevated() bool
}

// elevatedStrategy reads the uid from the elevation hint.
type elevatedStrategy struct{}

func (elevatedStrategy) uid(k dispatcher) (int, error) {
	hint, ok := k.lookupEnv(ElevationHintEnv)
	if !ok {
		return 0, fault.Config("missing elevation hint", nil)
	}
	parsed, err := strconv.ParseUint(hint, 10, 31)
	if err != nil {
		return 0, fault.Config("invalid elevation hint", err)
	}
	return int(parsed), nil
}

func (elevatedStrategy) elevated() bool { return true }

// directStrategy uses the process's effective uid.
type directStrategy struct{}

func (directStrategy) uid(k dispatcher) (int, error) { return k.geteuid(), nil }
func (directStrategy) elevated() bool                { return false }

func selectStrategy(k dispatcher) strategy {
	if k.geteuid() == 0 {
		return elevatedStrategy{}
	}
	return directStrategy{}
}

// Resolver resolves identities against a dispatcher.
type Resolver struct {
	k dispatcher
}

// NewResolver returns a Resolver backed by the running kernel.
func NewResolver() *Resolver {
	return &Resolver{k: direct{}}
}

// NewResolverWith returns a Resolver whose process and account queries come
// from f. Nil fields fall back to the running kernel.
func NewResolverWith(f Funcs) *Resolver {
	return &Resolver{k: f}
}

// Resolve resolves the invoking user with the system dispatcher.
func Resolve() (Identity, error) {
	return NewResolver().Resolve()
}

// Resolve determines the uid and looks up its home directory. Every failure
// is a fault.KindConfig error.
func (r *Resolver) Resolve() (Identity, error) {
	s := selectStrategy(r.k)
	uid, err := s.uid(r.k)
	if err != nil {
		return Identity{}, err
	}

	u, err := r.k.lookupID(strconv.Itoa(uid))
	if err != nil {
		return Identity{}, fault.Config("unresolvable account", err)
	}
	if u == nil || strings.TrimSpace(u.HomeDir) == "" {
		return Identity{}, fault.Config("unresolvable account", nil)
	}

	return Identity{
		UID:      uid,
		Username: u.Username,
		Home:     u.HomeDir,
		Elevated: s.elevated(),
	}, nil
}
