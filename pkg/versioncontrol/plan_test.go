package versioncontrol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lsoc/neco/pkg/agentstate"
	"github.com/lsoc/neco/pkg/recipe"
	"github.com/lsoc/neco/pkg/settings"
)

func newTestEngine(t *testing.T, cfg settings.Settings) *Engine {
	t.Helper()
	state := agentstate.New(cfg)
	return New(state, &fakePublisher{}, nil)
}

type fakePublisher struct {
	states     []string
	changelogs []string
}

func (f *fakePublisher) PublishState(message string)   { f.states = append(f.states, message) }
func (f *fakePublisher) PublishChangelogs(text string)  { f.changelogs = append(f.changelogs, text) }

func TestGetRecipes_FlattensAndSkipsVersionless(t *testing.T) {
	tmp := t.TempDir()

	withVersion := filepath.Join(tmp, "agent-1.2.0")
	if err := os.MkdirAll(withVersion, 0o755); err != nil {
		t.Fatal(err)
	}
	recipeJSON := `[{"type":"run_command","command":"echo hi","version":"1.2.0","restart":true}]`
	if err := os.WriteFile(filepath.Join(withVersion, "recipe.json"), []byte(recipeJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	noVersion := filepath.Join(tmp, "other-1.0.0")
	if err := os.MkdirAll(noVersion, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(noVersion, "recipe.json"), []byte(`[{"type":"run_command","command":"echo bye"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{
			{Name: "agent", Owner: "root", OwnerGroup: "root", Permissions: "644", RestartCommand: "systemctl restart agent"},
			{Name: "other"},
		},
	}
	e := newTestEngine(t, cfg)

	cookbook := e.getRecipes(map[string][]string{
		"agent": {withVersion},
		"other": {noVersion},
	})

	if len(cookbook.Entries) != 1 {
		t.Fatalf("expected 1 entry (versionless component skipped), got %d", len(cookbook.Entries))
	}
	entry := cookbook.Entries[0]
	if entry.Component != "agent" || entry.FinalVersion != "1.2.0" || !entry.Restart {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestGetRecipes_EnrichesCopyPermissions(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "svc-2.0.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	recipeJSON := `[{"type":"copy","file_path":"bin","destination":"/opt/svc/","version":"2.0.0"}]`
	if err := os.WriteFile(filepath.Join(dir, "recipe.json"), []byte(recipeJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{
			{Name: "svc", Owner: "svcuser", OwnerGroup: "svcgroup", Permissions: "750"},
		},
	}
	e := newTestEngine(t, cfg)

	cookbook := e.getRecipes(map[string][]string{"svc": {dir}})
	if len(cookbook.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(cookbook.Entries))
	}
	inst := cookbook.Entries[0].Instructions[0]
	if inst.Type != recipe.InstructionCopy {
		t.Fatalf("unexpected instruction type %v", inst.Type)
	}
	if inst.PermissionUser != "svcuser" || inst.PermissionGroup != "svcgroup" || inst.FilePermissions != "750" {
		t.Fatalf("copy instruction was not enriched with defaults: %+v", inst)
	}
}
