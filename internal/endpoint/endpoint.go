// Package endpoint derives the filesystem address of the daemon socket.
package endpoint

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"gcm/internal/fault"
	"gcm/internal/identity"
)

const (
	// AppDirName is the per-user application directory under the home directory.
	AppDirName = ".gcm"
	// ChannelName is the socket filename inside AppDirName.
	ChannelName = ".pipe"
)

// Path is the absolute socket path for one identity.
type Path string

func (p Path) String() string { return string(p) }

// Dir returns the application directory containing the socket.
func (p Path) Dir() string { return filepath.Dir(string(p)) }

// MaxLen is the longest socket path the platform can address. sun_path needs
// one byte for the NUL terminator.
func MaxLen() int {
	return len(unix.RawSockaddrUnix{}.Path) - 1
}

// AppDir returns <home>/.gcm for the identity.
func AppDir(id identity.Identity) string {
	return filepath.Join(id.Home, AppDirName)
}

// Build composes <home>/.gcm/.pipe. It fails instead of truncating when the
// result does not fit in a socket address.
func Build(id identity.Identity) (Path, error) {
	if id.Home == "" {
		return "", fault.Config("unresolvable account", nil)
	}
	return checkLen(filepath.Join(AppDir(id), ChannelName))
}

// Parse accepts an explicit socket path, subject to the same length limit as
// Build.
func Parse(path string) (Path, error) {
	if !filepath.IsAbs(path) {
		return "", fault.Config("endpoint path must be absolute", fmt.Errorf("%q", path))
	}
	return checkLen(filepath.Clean(path))
}

func checkLen(path string) (Path, error) {
	if limit := MaxLen(); len(path) > limit {
		return "", fault.Config("endpoint path too long", fmt.Errorf("%d bytes exceeds limit of %d", len(path), limit))
	}
	return Path(path), nil
}
