package versioncontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lsoc/neco/pkg/agentstate"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
)

// UnmarshalJSON implements the three-way msg shape: a manifest object, a
// bare error string, or JSON null.
func (m *manifestMsgUnion) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		m.IsNull = true
		return nil
	}

	var asManifest UpdateManifest
	if err := json.Unmarshal(data, &asManifest); err == nil {
		m.Manifest = asManifest
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		m.ErrorMsg = asString
		return nil
	}

	return fmt.Errorf("msg is neither a manifest object, a string, nor null")
}

// RefreshManifest implements the manifest negotiation path (4.G): collects
// the negotiation parameters from the settings snapshot and versions table,
// issues the HTTP GET, and updates the manifest slot and publishes a
// user-visible outcome per the response shape.
func (e *Engine) RefreshManifest(ctx context.Context) {
	logger := log.WithComponent("versioncontrol")
	e.publisher.PublishState("Looking for updates…")
	cfg := e.state.Settings()
	versions := e.state.Versions()

	if len(versions) == 0 {
		logger.Warn().Msg("versions table empty, clearing manifest and skipping negotiation")
		e.state.SetManifest(nil)
		metrics.ManifestRefreshTotal.WithLabelValues("empty_versions").Inc()
		return
	}

	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)

	vals := make([]string, 0, len(names))
	for _, name := range names {
		vals = append(vals, versions[name])
	}

	q := url.Values{}
	q.Set("neutronuser", cfg.NeutronUser)
	q.Set("username", cfg.CentralBroker.Username)
	q.Set("password", cfg.CentralBroker.Password)
	q.Set("application", cfg.Application)
	q.Set("branch", cfg.Branch)
	q.Set("components", strings.Join(names, ","))
	q.Set("versions", strings.Join(vals, ","))

	endpoint := fmt.Sprintf("%s://%s:%d/api/versioncontrol?%s", cfg.CentralBroker.Proto, cfg.CentralBroker.Host, cfg.CentralBroker.Port, q.Encode())

	body, err := e.httpGet(ctx, endpoint)
	if err != nil {
		logger.Error().Err(err).Msg("manifest negotiation request failed")
		e.state.SetManifest(nil)
		e.publisher.PublishState("Could not reach Neutron server.")
		metrics.ManifestRefreshTotal.WithLabelValues("network_error").Inc()
		return
	}

	var resp manifestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Error().Err(err).Msg("manifest response did not parse")
		e.state.SetManifest(nil)
		e.publisher.PublishState("Could not reach Neutron server.")
		metrics.ManifestRefreshTotal.WithLabelValues("bad_response").Inc()
		return
	}

	if !resp.Result {
		logger.Error().Str("msg", resp.Msg.ErrorMsg).Msg("manifest negotiation rejected by server")
		e.state.SetManifest(nil)
		metrics.ManifestRefreshTotal.WithLabelValues("server_error").Inc()
		return
	}

	if resp.Msg.IsNull {
		logger.Error().Msg("manifest response msg was null")
		e.state.SetManifest(nil)
		e.publisher.PublishState("Update manifest response empty.")
		metrics.ManifestRefreshTotal.WithLabelValues("null_msg").Inc()
		return
	}

	if len(resp.Msg.Manifest) == 0 {
		e.state.SetManifest(nil)
		e.publisher.PublishState("No updates were found.")
		metrics.ManifestRefreshTotal.WithLabelValues("no_updates").Inc()
		return
	}

	e.state.SetManifest(toStateManifest(resp.Msg.Manifest))
	e.publisher.PublishState("Found updates.")
	e.publisher.PublishChangelogs(concatenateChangelogsReversed(resp.Msg.Manifest))
	metrics.ManifestRefreshTotal.WithLabelValues("found").Inc()
}

func toStateManifest(m UpdateManifest) *agentstate.Manifest {
	out := &agentstate.Manifest{Updates: make(map[string][]agentstate.ManifestUpdate, len(m))}
	for component, updates := range m {
		converted := make([]agentstate.ManifestUpdate, 0, len(updates))
		for _, u := range updates {
			converted = append(converted, agentstate.ManifestUpdate{
				Version:   u.Version,
				Changelog: u.Changelog,
				Checksum:  u.Checksum,
			})
		}
		out.Updates[component] = converted
	}
	return out
}

func fromStateManifest(m *agentstate.Manifest) UpdateManifest {
	if m == nil {
		return nil
	}
	out := make(UpdateManifest, len(m.Updates))
	for component, updates := range m.Updates {
		converted := make([]Update, 0, len(updates))
		for _, u := range updates {
			converted = append(converted, Update{
				Version:   u.Version,
				Changelog: u.Changelog,
				Checksum:  u.Checksum,
			})
		}
		out[component] = converted
	}
	return out
}

// concatenateChangelogsReversed joins every update's changelog across every
// component with "\r\n\r\n", newest update first.
func concatenateChangelogsReversed(m UpdateManifest) string {
	var all []string
	for _, updates := range m {
		for _, u := range updates {
			all = append(all, u.Changelog)
		}
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return strings.Join(all, "\r\n\r\n")
}
