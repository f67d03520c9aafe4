package remoteadmin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lsoc/neco/pkg/executil"
	"github.com/lsoc/neco/pkg/log"
)

// AuthorizedKeysPath is the root account's SSH authorized-keys file.
const AuthorizedKeysPath = "/root/.ssh/authorized_keys"

// wanIPEndpoint is queried to learn this host's public-facing address.
const wanIPEndpoint = "https://api.ipify.org"

// InstallPublicKey implements the RemoteManagement inbound command: append
// pubkey to the root authorized_keys file (creating the .ssh directory if
// needed), chmod the directory 700 and the file 600, then restart sshd.
func InstallPublicKey(ctx context.Context, pubkey string) error {
	logger := log.WithComponent("remoteadmin")
	dir := filepath.Dir(AuthorizedKeysPath)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.OpenFile(AuthorizedKeysPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", AuthorizedKeysPath, err)
	}
	defer f.Close()

	line := strings.TrimRight(pubkey, "\n") + "\n"
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write %s: %w", AuthorizedKeysPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", AuthorizedKeysPath, err)
	}

	if err := chmod(ctx, dir, "700"); err != nil {
		return err
	}
	if err := chmod(ctx, AuthorizedKeysPath, "600"); err != nil {
		return err
	}

	res, err := executil.Run(ctx, "systemctl", "restart", "sshd")
	if err != nil {
		return fmt.Errorf("spawn systemctl restart sshd: %w", err)
	}
	if res.ExitCode != 0 {
		logger.Error().Int("exit_code", res.ExitCode).Str("stderr", res.Stderr).Msg("sshd restart reported non-zero exit")
	}

	return nil
}

func chmod(ctx context.Context, path, mode string) error {
	res, err := executil.Run(ctx, "chmod", mode, path)
	if err != nil {
		return fmt.Errorf("spawn chmod %s %s: %w", mode, path, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("chmod %s %s exited %d: %s", mode, path, res.ExitCode, res.Stderr)
	}
	return nil
}

// WANAddress looks up this host's public IP via api.ipify.org.
func WANAddress(ctx context.Context) (string, error) {
	res, err := executil.Run(ctx, "curl", "-s", wanIPEndpoint)
	if err != nil {
		return "", fmt.Errorf("spawn curl: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("curl %s exited %d: %s", wanIPEndpoint, res.ExitCode, res.Stderr)
	}
	return strings.TrimSpace(res.Stdout), nil
}
