package versioncontrol

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lsoc/neco/pkg/agentstate"
)

// TempRoot is the extraction/download staging directory.
const TempRoot = "/etc/NeutronCommunicator/.vc-temp/version_control"

// LeftoverFileName is the persisted leftover-manifest file inside TempRoot.
const LeftoverFileName = "unfinished_updates.json"

// Engine drives the version-control lifecycle: manifest negotiation,
// download+verify, unpack, plan, execute, and leftover resumption (4.G).
type Engine struct {
	state      *agentstate.State
	publisher  Publisher
	httpClient *retryablehttp.Client
	tempRoot   string
}

// New builds an Engine. httpClient may be nil to use a default
// retryablehttp.Client (quiet logger, standard backoff/retry policy).
func New(state *agentstate.State, publisher Publisher, httpClient *retryablehttp.Client) *Engine {
	if httpClient == nil {
		httpClient = retryablehttp.NewClient()
		httpClient.Logger = nil
	}
	return &Engine{
		state:      state,
		publisher:  publisher,
		httpClient: httpClient,
		tempRoot:   TempRoot,
	}
}

// SetPublisher rewires the Publisher after construction, breaking the
// construction-order cycle between Engine and pkg/commandplane: the plane
// needs an *Engine to dispatch RefreshUpdateManifest/StartUpdateDownloadAndInstall
// onto, and the Engine needs the plane to publish State/Changelogs through.
func (e *Engine) SetPublisher(publisher Publisher) {
	e.publisher = publisher
}

func (e *Engine) httpGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}

	return body, nil
}
