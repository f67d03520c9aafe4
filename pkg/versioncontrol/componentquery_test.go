package versioncontrol

import (
	"context"
	"testing"

	"github.com/lsoc/neco/pkg/settings"
)

func TestGetComponentStates_UnknownWithNoProbe(t *testing.T) {
	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{
			{Name: "bare-component"},
		},
	}
	e := newTestEngine(t, cfg)

	states := e.GetComponentStates(context.Background())
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if states[0].Component != "bare-component" || states[0].State != "unknown" {
		t.Fatalf("unexpected state: %+v", states[0])
	}
}

func TestGetComponentLog_UnknownComponent(t *testing.T) {
	e := newTestEngine(t, settings.Settings{})
	if _, err := e.GetComponentLog(context.Background(), "does-not-exist"); err == nil {
		t.Fatalf("expected error for unknown component")
	}
}

func TestGetComponentLog_NoProbeConfigured(t *testing.T) {
	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{{Name: "bare-component"}},
	}
	e := newTestEngine(t, cfg)
	if _, err := e.GetComponentLog(context.Background(), "bare-component"); err == nil {
		t.Fatalf("expected error for a component with no service or container name")
	}
}

func TestGetComponentLogEnvelope_StripsKindSuffix(t *testing.T) {
	cfg := settings.Settings{
		UpdateComponents: []settings.UpdateComponent{{Name: "bare-component"}},
	}
	e := newTestEngine(t, cfg)

	_, err := e.GetComponentLogEnvelope(context.Background(), `{"request":"r1","component":"bare-component - Service"}`)
	if err == nil {
		t.Fatalf("expected error: bare-component has no service or container name to probe")
	}
	want := `component bare-component has neither a service nor a container name`
	if err.Error() != want {
		t.Fatalf("expected %q (proving the \" - Service\" suffix was stripped before lookup), got %q", want, err.Error())
	}
}

func TestGetComponentLogEnvelope_MalformedJSON(t *testing.T) {
	e := newTestEngine(t, settings.Settings{})
	if _, err := e.GetComponentLogEnvelope(context.Background(), "not json"); err == nil {
		t.Fatalf("expected error for malformed request envelope")
	}
}
