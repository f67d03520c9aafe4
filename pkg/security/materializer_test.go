package security

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/lsoc/neco/pkg/settings"
)

func requireOpenSSL(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not found on PATH, skipping")
	}
}

// TestMaterialize_SelfSignedEndToEnd covers spec scenario 1: a component
// declared with no CACertificate gets a self-signed leaf key/cert pair
// generated on disk, with date_issued derived from the resulting file.
func TestMaterialize_SelfSignedEndToEnd(t *testing.T) {
	requireOpenSSL(t)
	dir := t.TempDir()

	cert := settings.CertificateSettings{
		ComponentName: "web",
		Algorithm:     "rsa:2048",
		MainCertificate: settings.MainCertificate{
			Encrypted:    false,
			DurationDays: 365,
			Subj:         "/CN=web.example.com",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "web.key"),
				Cert: filepath.Join(dir, "web.crt"),
			},
		},
	}

	m := NewMaterializer()
	materialized, err := m.Materialize(cert)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if !pathPairExists(materialized.MainCertificate.MainPaths) {
		t.Fatalf("expected key and cert files to exist at %+v", materialized.MainCertificate.MainPaths)
	}
	if materialized.MainCertificate.DateIssued == "" {
		t.Fatal("expected date_issued to be populated from the generated cert's mtime")
	}
	if _, err := ParseDateIssued(materialized.MainCertificate.DateIssued); err != nil {
		t.Fatalf("date_issued %q did not parse: %v", materialized.MainCertificate.DateIssued, err)
	}

	// Materializing again must be a no-op: the files already exist and carry
	// no auxiliary paths, so neither openssl call should run again, but
	// date_issued is still refreshed from the (unchanged) file's mtime.
	again, err := m.Materialize(materialized)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}
	if again.MainCertificate.DateIssued == "" {
		t.Fatal("expected date_issued to remain populated on a repeat materialization")
	}
}

// TestMaterialize_CASignedEndToEnd covers the CA-signed half of scenario 1:
// both the CA and the leaf it signs are generated when neither exists yet.
func TestMaterialize_CASignedEndToEnd(t *testing.T) {
	requireOpenSSL(t)
	dir := t.TempDir()

	cert := settings.CertificateSettings{
		ComponentName: "api",
		Algorithm:     "rsa:2048",
		CACertificate: &settings.CACertificate{
			Encrypted:    false,
			DurationDays: 3650,
			Subj:         "/CN=api-ca",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "ca.key"),
				Cert: filepath.Join(dir, "ca.crt"),
			},
		},
		MainCertificate: settings.MainCertificate{
			Encrypted:    false,
			DurationDays: 365,
			KeyLen:       2048,
			Subj:         "/CN=api.example.com",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "api.key"),
				Cert: filepath.Join(dir, "api.crt"),
			},
		},
	}

	m := NewMaterializer()
	materialized, err := m.Materialize(cert)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if !pathPairExists(materialized.CACertificate.MainPaths) {
		t.Fatalf("expected CA key and cert to exist at %+v", materialized.CACertificate.MainPaths)
	}
	if !pathPairExists(materialized.MainCertificate.MainPaths) {
		t.Fatalf("expected leaf key and cert to exist at %+v", materialized.MainCertificate.MainPaths)
	}
	if materialized.CACertificate.DateIssued == "" {
		t.Error("expected CA date_issued to be populated from the generated CA cert's mtime")
	}
	if materialized.MainCertificate.DateIssued == "" {
		t.Error("expected leaf date_issued to be populated from the generated leaf cert's mtime")
	}
}

// TestPopulateAux covers spec scenario 6: a newly declared auxiliary path
// pair is mirrored from the already-generated main key/cert, without
// regenerating either.
func TestPopulateAux(t *testing.T) {
	requireOpenSSL(t)
	dir := t.TempDir()

	cert := settings.CertificateSettings{
		ComponentName: "web",
		Algorithm:     "rsa:2048",
		MainCertificate: settings.MainCertificate{
			DurationDays: 365,
			Subj:         "/CN=web.example.com",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "web.key"),
				Cert: filepath.Join(dir, "web.crt"),
			},
		},
	}

	m := NewMaterializer()
	materialized, err := m.Materialize(cert)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	materialized.MainCertificate.AuxiliaryPaths = []settings.PathPair{
		{Key: filepath.Join(dir, "mirror.key"), Cert: filepath.Join(dir, "mirror.crt")},
	}

	populated, err := m.PopulateAux(materialized, settings.CertKindMain)
	if err != nil {
		t.Fatalf("PopulateAux: %v", err)
	}

	for _, pair := range populated.MainCertificate.AuxiliaryPaths {
		if !pathPairExists(pair) {
			t.Errorf("expected auxiliary path pair %+v to exist after PopulateAux", pair)
		}
	}
}
