package versioncontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/recipe"
	"github.com/lsoc/neco/pkg/settings"
)

// splitSelfUpgrade implements install step 3: if the agent's own component
// name is present among the extracted directories, it is isolated into its
// own map so it can be cooked first and, if it carries a restart, before
// anything else runs. Everything else is persisted as a leftover manifest
// when non-empty, so a restart that interrupts the process before the rest
// of the plan executes can be resumed on the next start.
func (e *Engine) splitSelfUpgrade(extracted map[string][]string) (selfPlan, otherPlan map[string][]string) {
	selfPlan = make(map[string][]string)
	otherPlan = make(map[string][]string)

	for component, dirs := range extracted {
		if component == settings.AgentComponentName {
			selfPlan[component] = dirs
		} else {
			otherPlan[component] = dirs
		}
	}

	if len(selfPlan) == 0 {
		return nil, extracted
	}

	return selfPlan, otherPlan
}

func (e *Engine) leftoverPath() string {
	return filepath.Join(e.tempRoot, LeftoverFileName)
}

// persistLeftover writes otherPlan to the leftover manifest file. A write
// failure is logged by the caller and does not abort the install cycle: the
// agent's own upgrade still proceeds, at the cost of the deferred components
// never being resumed.
func (e *Engine) persistLeftover(otherPlan map[string][]string) error {
	if len(otherPlan) == 0 {
		return nil
	}
	data, err := json.Marshal(Leftover(otherPlan))
	if err != nil {
		return fmt.Errorf("marshal leftover manifest: %w", err)
	}
	if err := os.MkdirAll(e.tempRoot, 0o755); err != nil {
		return fmt.Errorf("create temp root: %w", err)
	}
	return os.WriteFile(e.leftoverPath(), data, 0o644)
}

// DiscoverLeftovers implements the leftover-updates resumption path (4.G):
// on startup, or immediately after a self-upgrade that carried no restart,
// read a persisted leftover manifest (if any), re-plan it directly over the
// already-extracted directories it references, cook it, and clean up the
// temp root and leftover file regardless of outcome. Implements
// recipe.LeftoverDiscoverer.
func (e *Engine) DiscoverLeftovers(ctx context.Context) {
	logger := log.WithComponent("versioncontrol")

	data, err := os.ReadFile(e.leftoverPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error().Err(err).Msg("could not read leftover manifest")
		}
		return
	}

	var leftover Leftover
	if err := json.Unmarshal(data, &leftover); err != nil {
		logger.Error().Err(err).Msg("leftover manifest did not parse, discarding")
		e.cleanupLeftover()
		return
	}

	cookbook := e.getRecipes(leftover)
	if len(cookbook.Entries) == 0 {
		logger.Warn().Msg("leftover manifest produced no runnable recipes")
		e.cleanupLeftover()
		return
	}

	logger.Info().Int("components", len(cookbook.Entries)).Msg("resuming leftover updates from previous install cycle")

	ok := recipe.Cook(ctx, cookbook, recipe.Deps{
		Versions: e.state,
		Restart:  e.state,
		Leftover: nil,
	})
	if !ok {
		logger.Error().Msg("leftover install cycle completed with errors")
	}

	e.cleanupLeftover()
}

// cleanupLeftover removes the temp root so a finished leftover install isn't
// picked up again. If that fails (e.g. a file under it is busy), it falls
// back to removing just the leftover manifest file, so the same updates are
// not re-cooked on the next startup even though the extracted directories
// linger.
func (e *Engine) cleanupLeftover() {
	logger := log.WithComponent("versioncontrol")
	if err := os.RemoveAll(e.tempRoot); err != nil {
		logger.Error().Err(err).Msg("could not clean up temp root after leftover install")
		if rmErr := os.Remove(e.leftoverPath()); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Error().Err(rmErr).Msg("could not remove leftover manifest file either")
		}
	}
}
