package recipe

import (
	"context"
	"fmt"

	"github.com/lsoc/neco/pkg/executil"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/security"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/rs/zerolog"
)

// VersionTable is the in-memory component-versions map cook() commits final
// versions into. Implemented by pkg/agentstate.
type VersionTable interface {
	// SetVersion records version for component, returning whether the
	// component already had an entry.
	SetVersion(component, version string) (existed bool)
}

// RestartSetter flips the process-wide restart flag. Implemented by
// pkg/agentstate (backs pkg/security.RestartSignal too).
type RestartSetter interface {
	SetRestart()
}

// LeftoverDiscoverer runs the leftover-updates discovery path (4.G)
// synchronously. Implemented by pkg/versioncontrol.
type LeftoverDiscoverer interface {
	DiscoverLeftovers(ctx context.Context)
}

// Deps bundles cook()'s side-effecting collaborators.
type Deps struct {
	Versions VersionTable
	Restart  RestartSetter
	Leftover LeftoverDiscoverer
}

// Cook executes every CookbookEntry in cookbook in order. It returns true
// iff the last-processed component had no instruction error; earlier
// per-component errors are reported via log only, matching the
// install-pipeline status message this return value drives.
func Cook(ctx context.Context, cookbook Cookbook, deps Deps) bool {
	logger := log.WithComponent("recipe")
	timer := metrics.NewTimer()
	outcome := "success"
	defer func() {
		timer.ObserveDuration(metrics.InstallDuration)
		metrics.InstallTotal.WithLabelValues(outcome).Inc()
	}()

	lastOK := true

	for _, entry := range cookbook.Entries {
		lastOK = cookOne(ctx, logger, entry, deps)
	}

	if !lastOK {
		outcome = "failure"
	}
	return lastOK
}

func cookOne(ctx context.Context, logger zerolog.Logger, entry CookbookEntry, deps Deps) bool {
	ok := true

	for _, inst := range entry.Instructions {
		if err := runInstruction(ctx, logger, inst); err != nil {
			logger.Error().Err(err).Str("component", entry.Component).Str("type", string(inst.Type)).Msg("recipe instruction failed, continuing")
			ok = false
		}
	}

	commitVersion(ctx, logger, entry, deps)

	return ok
}

func runInstruction(ctx context.Context, logger zerolog.Logger, inst Instruction) error {
	switch inst.Type {
	case InstructionCopy:
		return runCopy(ctx, inst)
	case InstructionCopyDir:
		src := inst.AbsoluteUpdatePath + inst.FolderPath
		dst := inst.Destination
		return copyDir(src, dst)
	case InstructionRunCommand:
		return runShell(ctx, logger, inst.Command)
	case InstructionRunScript:
		return runShell(ctx, logger, inst.AbsoluteUpdatePath+inst.FilePath)
	default:
		return fmt.Errorf("unknown instruction type %q", inst.Type)
	}
}

// runCopy implements the double-chmod rule: the source gets root:root <mode>
// before the copy, the destination gets <user>:<group> <mode> after — the
// intermediate state must never leave a world-readable copy already owned by
// the target user.
func runCopy(ctx context.Context, inst Instruction) error {
	src := inst.AbsoluteUpdatePath + inst.FilePath
	dst := inst.Destination + inst.FilePath

	if inst.FilePermissions != "" {
		if err := security.SetPermissions(ctx, src, "root", "root", inst.FilePermissions); err != nil {
			return err
		}
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}

	if inst.FilePermissions != "" {
		if err := security.SetPermissions(ctx, dst, inst.PermissionUser, inst.PermissionGroup, inst.FilePermissions); err != nil {
			return err
		}
	}

	return nil
}

// runShell executes a literal shell string or script path; any non-empty
// stderr is logged as an error but does not abort the instruction.
func runShell(ctx context.Context, logger zerolog.Logger, command string) error {
	res, err := executil.Run(ctx, "sh", "-c", command)
	if err != nil {
		return fmt.Errorf("spawn %q: %w", command, err)
	}
	if res.Stderr != "" {
		logger.Error().Str("command", command).Str("stderr", res.Stderr).Msg("command produced stderr")
	}
	return nil
}

func commitVersion(ctx context.Context, logger zerolog.Logger, entry CookbookEntry, deps Deps) {
	if entry.Component == settings.AgentComponentName {
		if entry.Restart {
			deps.Restart.SetRestart()
		} else if deps.Leftover != nil {
			deps.Leftover.DiscoverLeftovers(ctx)
		}
	} else if entry.Restart {
		if err := runShell(ctx, logger, entry.RestartCommand); err != nil {
			logger.Error().Err(err).Str("component", entry.Component).Msg("restart command failed")
		}
	}

	if deps.Versions != nil {
		if existed := deps.Versions.SetVersion(entry.Component, entry.FinalVersion); !existed {
			logger.Warn().Str("component", entry.Component).Str("version", entry.FinalVersion).Msg("committed version for a component absent from the versions table")
		}
	}
}
