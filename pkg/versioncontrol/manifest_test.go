package versioncontrol

import (
	"encoding/json"
	"testing"
)

func TestManifestMsgUnion_Manifest(t *testing.T) {
	body := []byte(`{"agent":[{"chainlink":false,"checksum":"abc","version":"1.2.0","changelog":"fixed things"}]}`)

	var m manifestMsgUnion
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.IsNull {
		t.Fatalf("expected IsNull false")
	}
	if len(m.Manifest) != 1 || m.Manifest["agent"][0].Version != "1.2.0" {
		t.Fatalf("unexpected manifest: %+v", m.Manifest)
	}
}

func TestManifestMsgUnion_String(t *testing.T) {
	var m manifestMsgUnion
	if err := json.Unmarshal([]byte(`"no updates configured"`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ErrorMsg != "no updates configured" {
		t.Fatalf("got ErrorMsg %q", m.ErrorMsg)
	}
}

func TestManifestMsgUnion_Null(t *testing.T) {
	var m manifestMsgUnion
	if err := json.Unmarshal([]byte(`null`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.IsNull {
		t.Fatalf("expected IsNull true")
	}
}

func TestConcatenateChangelogsReversed(t *testing.T) {
	m := UpdateManifest{
		"agent": {
			{Version: "1.0.0", Changelog: "first"},
			{Version: "1.1.0", Changelog: "second"},
		},
	}
	got := concatenateChangelogsReversed(m)
	want := "second\r\n\r\nfirst"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
