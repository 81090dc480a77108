package identity

import (
	"os"
	"os/user"
)

// dispatcher provides the process and account queries used during resolution.
type dispatcher interface {
	// geteuid provides [os.Geteuid].
	geteuid() int
	// lookupEnv provides [os.LookupEnv].
	lookupEnv(key string) (string, bool)
	// lookupID provides [user.LookupId].
	lookupID(uid string) (*user.User, error)
}

// direct implements dispatcher on the current kernel.
type direct struct{}

func (direct) geteuid() int                            { return os.Geteuid() }
func (direct) lookupEnv(key string) (string, bool)     { return os.LookupEnv(key) }
func (direct) lookupID(uid string) (*user.User, error) { return user.LookupId(uid) }

// Funcs replaces individual dispatcher queries.
type Funcs struct {
	Geteuid   func() int
	LookupEnv func(key string) (string, bool)
	LookupID  func(uid string) (*user.User, error)
}

func (f Funcs) geteuid() int {
	if f.Geteuid == nil {
		return direct{}.geteuid()
	}
	return f.Geteuid()
}

func (f Funcs) lookupEnv(key string) (string, bool) {
	if f.LookupEnv == nil {
		return direct{}.lookupEnv(key)
	}
	return f.LookupEnv(key)
}

func (f Funcs) lookupID(uid string) (*user.User, error) {
	if f.LookupID == nil {
		return direct{}.lookupID(uid)
	}
	return f.LookupID(uid)
}
