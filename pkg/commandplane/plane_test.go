package commandplane

import (
	"testing"

	"github.com/lsoc/neco/pkg/agentstate"
	"github.com/lsoc/neco/pkg/broker"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/lsoc/neco/pkg/versioncontrol"
)

type fakeComponentBus struct {
	published []broker.Envelope
}

func (f *fakeComponentBus) PublishExternalInterface(command, data string) error {
	f.published = append(f.published, broker.Envelope{Command: command, Data: data})
	return nil
}

func newTestPlane(t *testing.T) (*Plane, *fakeComponentBus) {
	t.Helper()
	state := agentstate.New(settings.Settings{})
	engine := versioncontrol.New(state, nil, nil)
	plane := New(engine)
	bus := &fakeComponentBus{}
	plane.SetComponentBus(bus)
	return plane, bus
}

func TestHandleComponentBus_ComponentStates(t *testing.T) {
	plane, bus := newTestPlane(t)

	plane.HandleComponentBus(broker.Envelope{Command: TagComponentStates})

	if len(bus.published) != 1 || bus.published[0].Command != TagComponentStates {
		t.Fatalf("expected a ComponentStates reply, got %+v", bus.published)
	}
}

func TestHandleComponentBus_UnrecognizedCommandDoesNotPublish(t *testing.T) {
	plane, bus := newTestPlane(t)

	plane.HandleComponentBus(broker.Envelope{Command: "SomethingElse"})

	if len(bus.published) != 0 {
		t.Fatalf("expected no publish for an unrecognized command, got %+v", bus.published)
	}
}

func TestHandleCentralBus_UpdateInstallIsNoop(t *testing.T) {
	plane, bus := newTestPlane(t)

	plane.HandleCentralBus(broker.Envelope{Command: TagUpdateInstall})

	if len(bus.published) != 0 {
		t.Fatalf("expected no side effects from UpdateInstall, got %+v", bus.published)
	}
}

func TestPublishState_WrapsInStateEnvelope(t *testing.T) {
	plane, bus := newTestPlane(t)

	plane.PublishState("Looking for updates…")

	if len(bus.published) != 1 || bus.published[0].Command != TagState || bus.published[0].Data != "Looking for updates…" {
		t.Fatalf("unexpected publish: %+v", bus.published)
	}
}
