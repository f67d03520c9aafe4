package versioncontrol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lsoc/neco/pkg/settings"
)

func TestSeedVersions_ReadsFilesAndSelf(t *testing.T) {
	tmp := t.TempDir()
	versionFile := filepath.Join(tmp, "svc.version")
	if err := os.WriteFile(versionFile, []byte("2.4.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{
			{Name: "svc", VersionFilePath: versionFile},
			{Name: "missing", VersionFilePath: filepath.Join(tmp, "absent")},
		},
	}
	e := newTestEngine(t, cfg)
	e.SeedVersions()

	versions := e.state.Versions()
	if versions["svc"] != "2.4.1" {
		t.Fatalf("got %q want 2.4.1", versions["svc"])
	}
	if versions[settings.AgentComponentName] != AgentVersion {
		t.Fatalf("agent version not seeded: %+v", versions)
	}
	if _, ok := versions["missing"]; ok {
		t.Fatalf("missing component should not have been seeded")
	}
}
