package versioncontrol

import (
	"context"
	"testing"

	"github.com/lsoc/neco/pkg/settings"
)

func TestStartUpdateDownloadAndInstall_NoPendingManifest(t *testing.T) {
	e := newTestEngine(t, settings.Settings{})

	e.StartUpdateDownloadAndInstall(context.Background())

	pub := e.publisher.(*fakePublisher)
	if len(pub.states) != 1 || pub.states[0] != "No updates were found." {
		t.Fatalf("unexpected published states: %+v", pub.states)
	}
}
