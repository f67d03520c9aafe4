package versioncontrol

import (
	"context"

	"github.com/google/uuid"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/recipe"
)

// StartUpdateDownloadAndInstall drives the full install pipeline over the
// manifest currently held in the state's manifest slot: download+verify,
// unpack, self-upgrade split, plan, and execute (4.G steps 1-5). Every log
// line in this run is tagged with a fresh correlation ID so a single install
// cycle's scattered entries can be grepped back together.
func (e *Engine) StartUpdateDownloadAndInstall(ctx context.Context) {
	runID := uuid.NewString()
	logger := log.WithComponent("versioncontrol").With().Str("install_run", runID).Logger()

	manifestSlot := e.state.Manifest()
	if manifestSlot == nil {
		logger.Warn().Msg("install requested with no pending manifest, nothing to do")
		e.publisher.PublishState("No updates were found.")
		return
	}
	manifest := fromStateManifest(manifestSlot)
	if len(manifest) == 0 {
		logger.Warn().Msg("manifest slot held zero components, nothing to do")
		e.publisher.PublishState("No updates were found.")
		return
	}

	e.publisher.PublishState("Starting update download & install.")
	cfg := e.state.Settings()

	verified, err := e.downloadAndVerify(ctx, cfg, manifest)
	if err != nil {
		logger.Error().Err(err).Msg("download stage aborted")
		e.publisher.PublishState("Some components failed to install. Please contact the support team.")
		return
	}
	if len(verified) == 0 {
		logger.Error().Msg("no artifacts survived verification")
		e.publisher.PublishState("Some components failed to install. Please contact the support team.")
		return
	}

	e.publisher.PublishState("Updates downloaded and verified. Unpacking…")

	extracted := e.unpack(ctx, verified)
	if len(extracted) == 0 {
		logger.Error().Msg("no artifacts survived extraction")
		e.publisher.PublishState("Some components failed to install. Please contact the support team.")
		return
	}

	selfPlan, otherPlan := e.splitSelfUpgrade(extracted)

	if len(otherPlan) > 0 {
		if err := e.persistLeftover(otherPlan); err != nil {
			logger.Warn().Err(err).Msg("could not persist leftover manifest, continuing anyway")
		}
	}

	planTarget := otherPlan
	deps := recipe.Deps{Versions: e.state, Restart: e.state, Leftover: nil}

	if selfPlan != nil {
		cookbook := e.getRecipes(selfPlan)
		if len(cookbook.Entries) > 0 {
			logger.Info().Msg("installing agent self-upgrade first")
			e.publisher.PublishState("Upgrading updater…")
			recipe.Cook(ctx, cookbook, recipe.Deps{Versions: e.state, Restart: e.state, Leftover: e})
			// A restart flag set by Cook above ends this process before the
			// rest of the function runs; if the self-upgrade carried no
			// restart, Cook's commitVersion path already invoked
			// DiscoverLeftovers to pick up otherPlan, so skip re-cooking it.
			return
		}
	}

	cookbook := e.getRecipes(planTarget)
	if len(cookbook.Entries) == 0 {
		logger.Warn().Msg("plan produced no runnable recipes")
		e.publisher.PublishState("Some components failed to install. Please contact the support team.")
		return
	}

	e.publisher.PublishState("Updating component(s)…")
	ok := recipe.Cook(ctx, cookbook, deps)
	e.cleanupLeftover()

	if ok {
		e.publisher.PublishState("Update download & install complete.")
	} else {
		e.publisher.PublishState("Some components failed to install. Please contact the support team.")
	}
}
