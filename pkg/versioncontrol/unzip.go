package versioncontrol

import (
	"context"
	"fmt"

	"github.com/lsoc/neco/pkg/executil"
)

// unzip shells out to the unzip binary; not replaced by an in-process zip
// library, per the shell-dependency contract.
func (e *Engine) unzip(ctx context.Context, archivePath, destDir string) error {
	res, err := executil.Run(ctx, "unzip", archivePath, "-d", destDir)
	if err != nil {
		return fmt.Errorf("spawn unzip: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("unzip %s exited %d: %s", archivePath, res.ExitCode, res.Stderr)
	}
	return nil
}
