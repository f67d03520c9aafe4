package security

import (
	"path/filepath"
	"testing"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestWatchdog_RenewsCertPastMargin covers spec scenario 4: a certificate
// whose declared duration is shorter than the renewal margin is due for
// renewal on the very first cycle, regardless of how recently it was
// issued. cycle is exercised directly (rather than Start/Stop) so the test
// doesn't have to wait out the real 24h renewalInterval.
func TestWatchdog_RenewsCertPastMargin(t *testing.T) {
	requireOpenSSL(t)
	dir := t.TempDir()

	cert := settings.CertificateSettings{
		ComponentName: "web",
		MainCertificate: settings.MainCertificate{
			DurationDays: 1, // shorter than renewalMarginDays: always due.
			Subj:         "/CN=web.example.com",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "web.key"),
				Cert: filepath.Join(dir, "web.crt"),
			},
		},
	}

	materialized, err := NewMaterializer().Materialize(cert)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	issuedBefore := materialized.MainCertificate.DateIssued
	if issuedBefore == "" {
		t.Fatal("expected date_issued to be populated before the watchdog runs")
	}

	successesBefore := testutil.ToFloat64(CertRenewalsTotal.WithLabelValues("main", "success"))

	var updated []settings.CertificateSettings
	w := NewWatchdog([]settings.CertificateSettings{materialized}, nil, func(certs []settings.CertificateSettings) {
		updated = certs
	})
	w.cycle(log.WithComponent("cert-watchdog-test"))

	if len(updated) != 1 {
		t.Fatalf("expected onUpdate to be called with 1 cert, got %d", len(updated))
	}
	if updated[0].MainCertificate.DateIssued == "" {
		t.Fatal("expected date_issued to remain populated after renewal")
	}

	successesAfter := testutil.ToFloat64(CertRenewalsTotal.WithLabelValues("main", "success"))
	if successesAfter != successesBefore+1 {
		t.Errorf("CertRenewalsTotal{main,success} = %v, want %v", successesAfter, successesBefore+1)
	}
}

// TestWatchdog_SkipsCertNotYetDue covers the complementary case: a
// certificate whose duration comfortably exceeds the renewal margin is left
// untouched.
func TestWatchdog_SkipsCertNotYetDue(t *testing.T) {
	requireOpenSSL(t)
	dir := t.TempDir()

	cert := settings.CertificateSettings{
		ComponentName: "web",
		MainCertificate: settings.MainCertificate{
			DurationDays: 365,
			Subj:         "/CN=web.example.com",
			MainPaths: settings.PathPair{
				Key:  filepath.Join(dir, "web.key"),
				Cert: filepath.Join(dir, "web.crt"),
			},
		},
	}

	materialized, err := NewMaterializer().Materialize(cert)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	issuedBefore := materialized.MainCertificate.DateIssued

	var updated []settings.CertificateSettings
	w := NewWatchdog([]settings.CertificateSettings{materialized}, nil, func(certs []settings.CertificateSettings) {
		updated = certs
	})
	w.cycle(log.WithComponent("cert-watchdog-test"))

	if updated[0].MainCertificate.DateIssued != issuedBefore {
		t.Errorf("expected date_issued to be left alone, was %q now %q", issuedBefore, updated[0].MainCertificate.DateIssued)
	}
}
