package security

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/settings"
)

// DateIssuedLayout is the spec's "YYYY-MM-DD HH:MM:SS" format, UTC, naive
// local (no timezone conversion or offset is stored).
const DateIssuedLayout = "2006-01-02 15:04:05"

// OpenSSLMaterializer implements settings.Materializer by driving openssl
// through GenerateCA/GenerateCertificate. It is the concrete type wired into
// pkg/settings.Store so AddCertificate/AppendCertAuxPaths can materialize
// certificate material without pkg/settings importing openssl directly.
type OpenSSLMaterializer struct{}

// NewMaterializer returns the default OpenSSLMaterializer.
func NewMaterializer() *OpenSSLMaterializer {
	return &OpenSSLMaterializer{}
}

// Materialize implements settings.Materializer.
func (m *OpenSSLMaterializer) Materialize(cert settings.CertificateSettings) (settings.CertificateSettings, error) {
	ctx := context.Background()
	logger := log.WithComponent("security")

	if cert.CACertificate != nil {
		ca := cert.CACertificate
		if !pathPairExists(ca.MainPaths) {
			if pass, err := GenerateCA(ctx, ca, false); err != nil {
				return cert, err
			} else {
				ca.Passphrase = pass
			}
			if pass, err := GenerateCertificate(ctx, cert, false); err != nil {
				return cert, err
			} else if pass != "" {
				cert.MainCertificate.Passphrase = pass
			}
		} else if anyAuxMissing(ca.AuxiliaryPaths) {
			if _, err := GenerateCA(ctx, ca, true); err != nil {
				return cert, err
			}
		}

		if issued, err := DateIssuedFromFile(ca.MainPaths.Cert); err != nil {
			logger.Warn().Err(err).Str("component", cert.ComponentName).Msg("could not determine CA date_issued after materialization")
		} else {
			ca.DateIssued = issued
		}
	}

	main := &cert.MainCertificate
	if !pathPairExists(main.MainPaths) {
		if pass, err := GenerateCertificate(ctx, cert, false); err != nil {
			return cert, err
		} else if pass != "" {
			main.Passphrase = pass
		}
	} else if anyAuxMissing(main.AuxiliaryPaths) {
		if _, err := GenerateCertificate(ctx, cert, true); err != nil {
			return cert, err
		}
	}

	dateIssued, err := DateIssuedFromFile(main.MainPaths.Cert)
	if err != nil {
		logger.Warn().Err(err).Str("component", cert.ComponentName).Msg("could not determine date_issued after materialization")
	} else {
		main.DateIssued = dateIssued
	}

	return cert, nil
}

// PopulateAux implements settings.Materializer: it re-mirrors the already
// generated CA or main key/cert pair to every auxiliary path, without
// regenerating anything.
func (m *OpenSSLMaterializer) PopulateAux(cert settings.CertificateSettings, which settings.CertKind) (settings.CertificateSettings, error) {
	ctx := context.Background()

	switch which {
	case settings.CertKindCA:
		if cert.CACertificate == nil {
			return cert, fmt.Errorf("populate aux paths: %s has no CA certificate", cert.ComponentName)
		}
		if _, err := GenerateCA(ctx, cert.CACertificate, true); err != nil {
			return cert, err
		}
	case settings.CertKindMain:
		if _, err := GenerateCertificate(ctx, cert, true); err != nil {
			return cert, err
		}
	default:
		return cert, fmt.Errorf("populate aux paths: unknown kind %q", which)
	}

	return cert, nil
}

func pathPairExists(pair settings.PathPair) bool {
	return fileExists(pair.Key) && fileExists(pair.Cert)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func anyAuxMissing(aux []settings.PathPair) bool {
	for _, pair := range aux {
		if pair.Key == "" && pair.Cert == "" {
			continue
		}
		if !pathPairExists(pair) {
			return true
		}
	}
	return false
}

// DateIssuedFromFile renders a certificate file's mtime in the spec's
// date_issued layout: UTC, naive local (no offset recorded).
func DateIssuedFromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime().UTC().Format(DateIssuedLayout), nil
}

// ParseDateIssued parses a date_issued string back into a time.Time (UTC).
func ParseDateIssued(s string) (time.Time, error) {
	return time.ParseInLocation(DateIssuedLayout, s, time.UTC)
}
