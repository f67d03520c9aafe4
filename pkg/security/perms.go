package security

import (
	"context"
	"fmt"

	"github.com/lsoc/neco/pkg/executil"
)

// SetPermissions chmods then chowns path. chmod runs first and a failure
// there aborts before chown runs at all, so a file is never left owned by
// the target user with the wrong mode.
func SetPermissions(ctx context.Context, path, user, group, modeOctal string) error {
	chmod, err := executil.Run(ctx, "chmod", modeOctal, path)
	if err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if chmod.Stderr != "" {
		return fmt.Errorf("chmod %s: %s", path, chmod.Stderr)
	}

	chown, err := executil.Run(ctx, "chown", user+":"+group, path)
	if err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	if chown.Stderr != "" {
		return fmt.Errorf("chown %s: %s", path, chown.Stderr)
	}

	return nil
}
