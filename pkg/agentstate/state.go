package agentstate

import (
	"sync"
	"sync/atomic"

	"github.com/lsoc/neco/pkg/settings"
)

// Manifest is the process-wide update manifest slot: the parsed response of
// a RefreshUpdateManifest negotiation, keyed by component name.
type Manifest struct {
	Updates map[string][]ManifestUpdate
}

// ManifestUpdate is one pending update for one component.
type ManifestUpdate struct {
	Version   string
	Changelog string
	Checksum  string
}

// State is the agent's shared process-wide memory (component J): a settings
// snapshot, the component-versions table, the current manifest slot, and the
// restart flag. Each of the first three is protected by its own narrow
// mutex, held only across a clone of the guarded value — never across I/O.
// The restart flag is a separate atomic, monotonic false→true.
type State struct {
	settingsMu sync.RWMutex
	settings   settings.Settings

	versionsMu sync.RWMutex
	versions   map[string]string

	manifestMu sync.RWMutex
	manifest   *Manifest

	restarting atomic.Bool
}

// New builds a State seeded with an initial settings snapshot. The
// component-versions table starts empty; it is populated as each
// component's current version is discovered (e.g. from its
// VersionFilePath) or committed by the recipe processor.
func New(initial settings.Settings) *State {
	return &State{
		settings: initial,
		versions: make(map[string]string, len(initial.UpdateComponents)),
	}
}

// SeedVersion records component's current version without the "existed"
// bookkeeping SetVersion does — used at startup to populate the versions
// table from each UpdateComponent's on-disk version file before any recipe
// has run.
func (s *State) SeedVersion(component, version string) {
	s.versionsMu.Lock()
	defer s.versionsMu.Unlock()
	s.versions[component] = version
}

// Settings returns a copy of the current settings snapshot.
func (s *State) Settings() settings.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// SetSettings replaces the settings snapshot, e.g. after a mutator persists
// a new document.
func (s *State) SetSettings(cfg settings.Settings) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.settings = cfg
}

// Versions returns a copy of the component-versions table.
func (s *State) Versions() map[string]string {
	s.versionsMu.RLock()
	defer s.versionsMu.RUnlock()
	out := make(map[string]string, len(s.versions))
	for k, v := range s.versions {
		out[k] = v
	}
	return out
}

// SetVersion records version for component, returning whether the component
// already had an entry — the recipe processor logs a warning when it
// didn't. Implements recipe.VersionTable.
func (s *State) SetVersion(component, version string) bool {
	s.versionsMu.Lock()
	defer s.versionsMu.Unlock()
	_, existed := s.versions[component]
	s.versions[component] = version
	return existed
}

// Manifest returns the current manifest slot, or nil if none is pending.
func (s *State) Manifest() *Manifest {
	s.manifestMu.RLock()
	defer s.manifestMu.RUnlock()
	return s.manifest
}

// SetManifest replaces the manifest slot. Pass nil to clear it.
func (s *State) SetManifest(m *Manifest) {
	s.manifestMu.Lock()
	defer s.manifestMu.Unlock()
	s.manifest = m
}

// Restarting reports whether the restart flag has been set. Implements
// security.RestartSignal.
func (s *State) Restarting() bool {
	return s.restarting.Load()
}

// SetRestart flips the restart flag false→true. The flag is monotonic: once
// true, later calls are no-ops — enforced with a CAS loop rather than a bare
// store so the invariant holds even under concurrent callers. Implements
// recipe.RestartSetter.
func (s *State) SetRestart() {
	for {
		if s.restarting.Load() {
			return
		}
		if s.restarting.CompareAndSwap(false, true) {
			return
		}
	}
}
