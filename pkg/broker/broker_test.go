package broker

import (
	"encoding/json"
	"testing"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	env := Envelope{Command: "RefreshUpdateManifest", Data: ""}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != env {
		t.Fatalf("got %+v want %+v", decoded, env)
	}
}

func TestCentralBus_OutboundTopic(t *testing.T) {
	b := &CentralBus{clientID: "agent-123"}
	got := b.outboundTopic()
	want := "LSOC/communicators/agent-123/out"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
