package versioncontrol

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/security"
	"github.com/lsoc/neco/pkg/settings"
)

// downloadAndVerify implements install step 1: recreate the temp root, GET
// every update's artifact, and keep only those whose SHA-256 matches the
// manifest's checksum. Returns the per-component list of verified archive
// paths; a component with zero verified archives is absent from the map.
func (e *Engine) downloadAndVerify(ctx context.Context, cfg settings.Settings, manifest UpdateManifest) (map[string][]string, error) {
	logger := log.WithComponent("versioncontrol")

	if err := os.RemoveAll(e.tempRoot); err != nil {
		return nil, fmt.Errorf("clear temp root: %w", err)
	}
	if err := os.MkdirAll(e.tempRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	verified := make(map[string][]string)

	for component, updates := range manifest {
		compDir := filepath.Join(e.tempRoot, component)
		if err := os.MkdirAll(compDir, 0o755); err != nil {
			logger.Error().Err(err).Str("component", component).Msg("could not create component temp dir")
			continue
		}

		for _, u := range updates {
			archivePath := filepath.Join(compDir, u.Version)

			q := url.Values{}
			q.Set("neutronuser", cfg.NeutronUser)
			q.Set("username", cfg.CentralBroker.Username)
			q.Set("password", cfg.CentralBroker.Password)
			q.Set("component", component)
			q.Set("version", u.Version)
			endpoint := fmt.Sprintf("%s://%s:%d/version_control/download?%s", cfg.CentralBroker.Proto, cfg.CentralBroker.Host, cfg.CentralBroker.Port, q.Encode())

			body, err := e.httpGet(ctx, endpoint)
			if err != nil {
				logger.Error().Err(err).Str("component", component).Str("version", u.Version).Msg("artifact download failed")
				continue
			}

			if err := os.WriteFile(archivePath, body, 0o644); err != nil {
				logger.Error().Err(err).Str("component", component).Str("version", u.Version).Msg("could not write downloaded artifact")
				continue
			}

			if err := security.CompareHash(archivePath, u.Checksum); err != nil {
				if _, mismatch := err.(*security.ErrChecksumMismatch); mismatch {
					logger.Error().Str("component", component).Str("version", u.Version).Msg("checksum mismatch, discarding artifact")
					metrics.ManifestChecksumMismatchTotal.Inc()
				} else {
					logger.Error().Err(err).Str("path", archivePath).Msg("could not hash downloaded artifact")
				}
				os.Remove(archivePath)
				continue
			}

			verified[component] = append(verified[component], archivePath)
		}
	}

	return verified, nil
}

// unpack implements install step 2: extract every verified archive with
// unzip and delete the archive on success. Returns the per-component list
// of extracted directory paths.
func (e *Engine) unpack(ctx context.Context, verified map[string][]string) map[string][]string {
	logger := log.WithComponent("versioncontrol")
	extracted := make(map[string][]string)

	for component, archives := range verified {
		for _, archive := range archives {
			destDir := archive + "-extracted"
			if err := e.unzip(ctx, archive, destDir); err != nil {
				logger.Error().Err(err).Str("archive", archive).Msg("unpack failed")
				continue
			}
			os.Remove(archive)
			extracted[component] = append(extracted[component], destDir)
		}
	}

	return extracted
}
