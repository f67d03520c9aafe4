package agentstate

import (
	"sync"
	"testing"

	"github.com/lsoc/neco/pkg/settings"
)

func TestSetVersion_ReportsExisted(t *testing.T) {
	s := New(settings.Settings{})

	if existed := s.SetVersion("BlackBox", "1.0.0"); existed {
		t.Error("expected existed=false for a component with no prior entry")
	}
	if existed := s.SetVersion("BlackBox", "1.1.0"); !existed {
		t.Error("expected existed=true on second SetVersion for the same component")
	}

	got := s.Versions()
	if got["BlackBox"] != "1.1.0" {
		t.Errorf("expected latest version committed, got %q", got["BlackBox"])
	}
}

func TestRestart_MonotonicFalseToTrue(t *testing.T) {
	s := New(settings.Settings{})

	if s.Restarting() {
		t.Fatal("restart flag must start false")
	}

	s.SetRestart()
	if !s.Restarting() {
		t.Fatal("expected restart flag true after SetRestart")
	}

	s.SetRestart() // idempotent, still true
	if !s.Restarting() {
		t.Fatal("restart flag flipped back to false, violating monotonicity")
	}
}

func TestRestart_ConcurrentCallersAgreeOnceTrue(t *testing.T) {
	s := New(settings.Settings{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetRestart()
		}()
	}
	wg.Wait()

	if !s.Restarting() {
		t.Fatal("expected restart flag true after concurrent SetRestart calls")
	}
}

func TestManifest_SetAndClear(t *testing.T) {
	s := New(settings.Settings{})

	if s.Manifest() != nil {
		t.Fatal("manifest slot must start nil")
	}

	m := &Manifest{Updates: map[string][]ManifestUpdate{
		"BlackBox": {{Version: "9.0.0", Changelog: "fixes", Checksum: "abc"}},
	}}
	s.SetManifest(m)

	if got := s.Manifest(); got == nil || got.Updates["BlackBox"][0].Version != "9.0.0" {
		t.Fatalf("unexpected manifest after SetManifest: %+v", got)
	}

	s.SetManifest(nil)
	if s.Manifest() != nil {
		t.Error("expected manifest slot cleared")
	}
}

func TestSettings_SnapshotIsACopy(t *testing.T) {
	s := New(settings.Settings{Application: "neco"})

	snap := s.Settings()
	snap.Application = "mutated"

	if s.Settings().Application != "neco" {
		t.Error("mutating a returned snapshot must not affect internal state")
	}
}
