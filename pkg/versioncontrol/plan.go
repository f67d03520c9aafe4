package versioncontrol

import (
	"os"
	"path/filepath"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/recipe"
	"github.com/lsoc/neco/pkg/settings"
)

// getRecipes implements install step 4: for every extracted directory of
// every component, parse recipe.json, enrich each instruction with its
// update path and (for copy instructions) the component's default
// permissions, and flatten into one CookbookEntry per component. A
// component whose recipes carried no version anywhere is skipped with an
// error.
func (e *Engine) getRecipes(extractedDirs map[string][]string) recipe.Cookbook {
	logger := log.WithComponent("versioncontrol")
	cfg := e.state.Settings()

	componentsByName := make(map[string]settings.UpdateComponent, len(cfg.UpdateComponents))
	for _, c := range cfg.UpdateComponents {
		componentsByName[c.Name] = c
	}

	var cookbook recipe.Cookbook

	for component, dirs := range extractedDirs {
		defaults, haveDefaults := componentsByName[component]

		var flattened []recipe.Instruction
		finalVersion := ""
		restart := false

		for _, dir := range dirs {
			data, err := os.ReadFile(filepath.Join(dir, "recipe.json"))
			if err != nil {
				logger.Error().Err(err).Str("component", component).Str("dir", dir).Msg("could not read recipe.json")
				continue
			}

			insts, err := recipe.DecodeInstructions(data)
			if err != nil {
				logger.Error().Err(err).Str("component", component).Str("dir", dir).Msg("could not decode recipe.json")
				continue
			}

			for _, inst := range insts {
				inst.AbsoluteUpdatePath = dir + string(filepath.Separator)

				if inst.Type == recipe.InstructionCopy && haveDefaults {
					if inst.PermissionUser == "" {
						inst.PermissionUser = defaults.Owner
					}
					if inst.PermissionGroup == "" {
						inst.PermissionGroup = defaults.OwnerGroup
					}
					if inst.FilePermissions == "" {
						inst.FilePermissions = defaults.Permissions
					}
				}

				if inst.Version != "" {
					finalVersion = inst.Version
				}
				restart = restart || inst.Restart

				flattened = append(flattened, inst)
			}
		}

		if finalVersion == "" {
			logger.Error().Str("component", component).Msg("no version-bearing instruction found, skipping component")
			continue
		}

		cookbook.Entries = append(cookbook.Entries, recipe.CookbookEntry{
			Component:      component,
			RestartCommand: defaults.RestartCommand,
			Restart:        restart,
			FinalVersion:   finalVersion,
			Instructions:   flattened,
		})
	}

	return cookbook
}
