package versioncontrol

import (
	"os"
	"strings"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/settings"
)

// AgentVersion is this build's own version, reported under the agent's
// synthetic component name; it never comes from a version file since the
// agent cannot read its own replacement before installing it.
const AgentVersion = "0.1.0"

// SeedVersions populates the versions table at startup: the agent's own
// version is compiled in, every other component's version is read (trimmed)
// from its configured version file. A component whose file is missing or
// unreadable is logged and left out of the table until its first install.
func (e *Engine) SeedVersions() {
	logger := log.WithComponent("versioncontrol")

	e.state.SeedVersion(settings.AgentComponentName, AgentVersion)

	cfg := e.state.Settings()
	for _, c := range cfg.UpdateComponents {
		data, err := os.ReadFile(c.VersionFilePath)
		if err != nil {
			logger.Warn().Err(err).Str("component", c.Name).Str("path", c.VersionFilePath).Msg("could not read version file")
			continue
		}
		e.state.SeedVersion(c.Name, strings.TrimSpace(string(data)))
	}

	logger.Info().Int("components", len(e.state.Versions())).Msg("component versions loaded")
}
