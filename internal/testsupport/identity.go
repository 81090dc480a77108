package testsupport

import (
	"os"
	"testing"

	"gcm/internal/endpoint"
	"gcm/internal/identity"
)

// NewIdentity returns the current user with a fresh short home directory.
func NewIdentity(t testing.TB) identity.Identity {
	t.Helper()

	return identity.Identity{
		UID:      os.Getuid(),
		Username: "tester",
		Home:     ShortTempDir(t),
	}
}

// Endpoint builds the socket path for id or fails the test.
func Endpoint(t testing.TB, id identity.Identity) endpoint.Path {
	t.Helper()

	path, err := endpoint.Build(id)
	if err != nil {
		t.Fatalf("endpoint.Build: %v", err)
	}
	return path
}
