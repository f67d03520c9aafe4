package security

import (
	"context"
	"time"

	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/rs/zerolog"
)

// renewalInterval is the watchdog's cadence: sleep 24h, then recheck the
// restart flag.
const renewalInterval = 24 * time.Hour

// renewalMarginDays: a certificate is renewed once fewer than this many days
// remain before expiry. Gives the fleet multiple watchdog cycles to retry
// before hard expiry.
const renewalMarginDays = 10

// RestartSignal reports whether the agent is about to restart (set by the
// recipe processor when the agent upgrades itself). The watchdog exits its
// loop, rather than renewing certificates, once this is true.
type RestartSignal interface {
	Restarting() bool
}

// Watchdog is the certificate lifecycle manager's long-lived renewal loop
// (component E). It is grounded on the teacher's pkg/reconciler: a
// ticker/select loop with a stop channel, started with Start and joined with
// Stop.
type Watchdog struct {
	certs    []settings.CertificateSettings
	restart  RestartSignal
	onUpdate func([]settings.CertificateSettings)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatchdog builds a watchdog over a snapshot of certs. onUpdate, if
// non-nil, is invoked after every cycle with the (possibly renewed) list so
// the caller can persist refreshed date_issued/passphrase values.
func NewWatchdog(certs []settings.CertificateSettings, restart RestartSignal, onUpdate func([]settings.CertificateSettings)) *Watchdog {
	return &Watchdog{
		certs:    certs,
		restart:  restart,
		onUpdate: onUpdate,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the renewal loop in its own goroutine.
func (w *Watchdog) Start() {
	go w.run()
}

// Stop signals the loop to exit and blocks until it has.
func (w *Watchdog) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watchdog) run() {
	defer close(w.doneCh)
	logger := log.WithComponent("cert-watchdog")
	logger.Info().Msg("certificate watchdog started")

	ticker := time.NewTicker(renewalInterval)
	defer ticker.Stop()

	w.cycle(logger)

	for {
		select {
		case <-ticker.C:
			if w.restart != nil && w.restart.Restarting() {
				logger.Info().Msg("restart pending, certificate watchdog exiting")
				return
			}
			w.cycle(logger)
		case <-w.stopCh:
			logger.Info().Msg("certificate watchdog stopped")
			return
		}
	}
}

func (w *Watchdog) cycle(logger zerolog.Logger) {
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range w.certs {
		w.renewOne(ctx, logger, now, &w.certs[i])
	}

	if w.onUpdate != nil {
		w.onUpdate(w.certs)
	}
}

func (w *Watchdog) renewOne(ctx context.Context, logger zerolog.Logger, now time.Time, cert *settings.CertificateSettings) {
	if cert.CACertificate != nil {
		w.renewIfDue(ctx, logger, now, cert.ComponentName, "ca", cert.CACertificate.DateIssued, cert.CACertificate.DurationDays, func() error {
			err := GenCSRSignWithKey(ctx, cert.ComponentName, cert.CACertificate.MainPaths.Key, cert.CACertificate.Encrypted, cert.CACertificate.Subj, cert.CACertificate.Passphrase, cert.CACertificate.DurationDays, cert.CACertificate.MainPaths.Cert)
			if err != nil {
				return err
			}
			issued, err := DateIssuedFromFile(cert.CACertificate.MainPaths.Cert)
			if err != nil {
				return err
			}
			cert.CACertificate.DateIssued = issued
			return nil
		})
	}

	main := &cert.MainCertificate
	renewFn := func() error {
		var err error
		if cert.CACertificate != nil {
			err = genCSRSignWithCA(ctx, *cert, main.Passphrase)
		} else {
			err = GenCSRSignWithKey(ctx, cert.ComponentName, main.MainPaths.Key, main.Encrypted, main.Subj, main.Passphrase, main.DurationDays, main.MainPaths.Cert)
		}
		if err != nil {
			return err
		}
		issued, err := DateIssuedFromFile(main.MainPaths.Cert)
		if err != nil {
			return err
		}
		main.DateIssued = issued
		return nil
	}
	w.renewIfDue(ctx, logger, now, cert.ComponentName, "main", main.DateIssued, main.DurationDays, renewFn)
}

func (w *Watchdog) renewIfDue(ctx context.Context, logger zerolog.Logger, now time.Time, componentName, which, dateIssued string, durationDays int, renew func() error) {
	issued, err := ParseDateIssued(dateIssued)
	if err != nil {
		logger.Warn().Err(err).Str("component", componentName).Str("which", which).Msg("skipping certificate with unparseable date_issued")
		return
	}

	daysElapsed := int(now.Sub(issued).Hours() / 24)
	if daysElapsed < durationDays-renewalMarginDays {
		return
	}

	if err := renew(); err != nil {
		logger.Error().Err(err).Str("component", componentName).Str("which", which).Msg("certificate renewal failed, will retry next cycle")
		metrics.CertRenewalsTotal.WithLabelValues(which, "failure").Inc()
		return
	}

	logger.Info().Str("component", componentName).Str("which", which).Msg("certificate renewed")
	metrics.CertRenewalsTotal.WithLabelValues(which, "success").Inc()
}
