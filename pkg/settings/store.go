// Package settings owns the agent's durable configuration: a single JSON
// document at a fixed path describing the central/component brokers, the
// fleet components to keep at version, and the certificates to keep fresh.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lsoc/neco/pkg/log"
)

// DefaultPath is the canonical settings location.
const DefaultPath = "/etc/NeutronCommunicator/settings.json"

// Materializer generates missing certificate/CA material and mirrors
// existing material to newly declared auxiliary paths. It is implemented by
// pkg/security so that pkg/settings never has to shell out to openssl
// itself; store mutators only decide *when* materialization is needed.
type Materializer interface {
	// Materialize ensures cert's CA (if any) and leaf exist on disk and
	// returns cert with DateIssued populated from the resulting files.
	Materialize(cert CertificateSettings) (CertificateSettings, error)
	// PopulateAux copies the already-existing CA or main key/cert pair to
	// every auxiliary path declared on cert, without regenerating anything.
	PopulateAux(cert CertificateSettings, which CertKind) (CertificateSettings, error)
}

// Store loads and saves the settings document and applies the targeted
// mutators described in spec §4.A. Every mutator operates on an in-memory
// copy of the current document and writes the full document back.
type Store struct {
	path         string
	materializer Materializer
}

// New creates a Store rooted at path. materializer may be nil for callers
// that never touch certificates (e.g. a CLI subcommand that only edits
// broker credentials).
func New(path string, materializer Materializer) *Store {
	return &Store{path: path, materializer: materializer}
}

// Load reads the settings document and injects the synthetic agent
// UpdateComponent so the version-control engine can treat itself uniformly
// with every other managed component.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings from %s: %w", s.path, err)
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}

	cfg.UpdateComponents = append(cfg.UpdateComponents, syntheticAgentComponent())
	return cfg, nil
}

// Save strips the synthetic agent component and writes the full document.
func (s *Store) Save(cfg Settings) error {
	if err := validateUnique(cfg); err != nil {
		return err
	}

	out := cfg
	out.UpdateComponents = stripAgentComponent(cfg.UpdateComponents)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings to %s: %w", s.path, err)
	}

	return nil
}

func syntheticAgentComponent() UpdateComponent {
	return UpdateComponent{
		Name: AgentComponentName,
	}
}

func stripAgentComponent(components []UpdateComponent) []UpdateComponent {
	out := make([]UpdateComponent, 0, len(components))
	for _, c := range components {
		if c.Name == AgentComponentName {
			continue
		}
		out = append(out, c)
	}
	return out
}

func validateUnique(cfg Settings) error {
	names := make(map[string]struct{}, len(cfg.UpdateComponents))
	for _, c := range cfg.UpdateComponents {
		if c.Name == AgentComponentName {
			continue
		}
		if _, dup := names[c.Name]; dup {
			return alreadyExists("update component " + c.Name)
		}
		names[c.Name] = struct{}{}
	}

	certNames := make(map[string]struct{}, len(cfg.Certificates))
	for _, c := range cfg.Certificates {
		if _, dup := certNames[c.ComponentName]; dup {
			return alreadyExists("certificate " + c.ComponentName)
		}
		certNames[c.ComponentName] = struct{}{}
	}

	return nil
}

// SetCentralCredentials updates the central broker credentials.
func (s *Store) SetCentralCredentials(username, password string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	cfg.CentralBroker.Username = username
	cfg.CentralBroker.Password = password
	return s.Save(cfg)
}

// SetComponentBusCredentials updates the component bus connection details.
func (s *Store) SetComponentBusCredentials(ip string, port int, username, password, caFile string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	cfg.ComponentBroker = ComponentBrokerConfig{
		IPAddress: ip,
		Port:      port,
		Username:  username,
		Password:  password,
		CAFile:    caFile,
	}
	return s.Save(cfg)
}

// AddUpdateComponent appends a new managed component. Fails with
// ErrAlreadyExists if the name is already configured.
func (s *Store) AddUpdateComponent(c UpdateComponent) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	for _, existing := range cfg.UpdateComponents {
		if existing.Name == c.Name {
			return alreadyExists("update component " + c.Name)
		}
	}
	cfg.UpdateComponents = append(cfg.UpdateComponents, c)
	return s.Save(cfg)
}

// RemoveUpdateComponent deletes a managed component by name. It is not an
// error to remove a name that is not present.
func (s *Store) RemoveUpdateComponent(name string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	kept := make([]UpdateComponent, 0, len(cfg.UpdateComponents))
	for _, c := range cfg.UpdateComponents {
		if c.Name == name {
			continue
		}
		kept = append(kept, c)
	}
	cfg.UpdateComponents = kept
	return s.Save(cfg)
}

// AppendCertAuxPaths records a new auxiliary (key, cert) path pair for the
// named certificate's CA or main half, then triggers "populate aux paths
// only" so the new location is immediately populated from the existing
// material.
func (s *Store) AppendCertAuxPaths(componentName string, which CertKind, keyPath, certPath string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	idx := indexOfCert(cfg.Certificates, componentName)
	if idx < 0 {
		return notFound("certificate " + componentName)
	}

	cert := cfg.Certificates[idx]
	switch which {
	case CertKindCA:
		if cert.CACertificate == nil {
			return notFound("ca certificate for " + componentName)
		}
		cert.CACertificate.AuxiliaryPaths = append(cert.CACertificate.AuxiliaryPaths, PathPair{Key: keyPath, Cert: certPath})
	case CertKindMain:
		cert.MainCertificate.AuxiliaryPaths = append(cert.MainCertificate.AuxiliaryPaths, PathPair{Key: keyPath, Cert: certPath})
	default:
		return fmt.Errorf("unknown certificate kind %q", which)
	}

	if s.materializer != nil {
		updated, err := s.materializer.PopulateAux(cert, which)
		if err != nil {
			return fmt.Errorf("populate aux paths for %s: %w", componentName, err)
		}
		cert = updated
	}

	cfg.Certificates[idx] = cert
	return s.Save(cfg)
}

// AddCertificate registers a new CertificateSettings, materializing its CA
// (if any) and leaf before persisting. Fails with ErrAlreadyExists if the
// component name is already configured.
func (s *Store) AddCertificate(cert CertificateSettings) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	if indexOfCert(cfg.Certificates, cert.ComponentName) >= 0 {
		return alreadyExists("certificate " + cert.ComponentName)
	}

	if s.materializer != nil {
		materialized, err := s.materializer.Materialize(cert)
		if err != nil {
			return fmt.Errorf("materialize certificate %s: %w", cert.ComponentName, err)
		}
		cert = materialized
	}

	cfg.Certificates = append(cfg.Certificates, cert)

	logger := log.WithComponent("settings")
	logger.Info().Str("component", cert.ComponentName).Msg("certificate added")

	return s.Save(cfg)
}

// MaterializeCertificates runs the Materializer over every certificate in
// cfg, generating any missing CA/leaf material and deriving date_issued from
// the resulting files' mtimes — date_issued and the passphrase are never
// persisted to disk (CertificateSettings.*.DateIssued/Passphrase are
// json:"-"), so this must run at every startup before anything consults
// them, not just once at AddCertificate time. A certificate that fails to
// materialize is logged and left as-is in cfg so the rest still proceed.
func (s *Store) MaterializeCertificates(cfg Settings) Settings {
	if s.materializer == nil {
		return cfg
	}

	logger := log.WithComponent("settings")
	for i, cert := range cfg.Certificates {
		materialized, err := s.materializer.Materialize(cert)
		if err != nil {
			logger.Error().Err(err).Str("component", cert.ComponentName).Msg("could not materialize certificate at startup")
			continue
		}
		cfg.Certificates[i] = materialized
	}

	return cfg
}

func indexOfCert(certs []CertificateSettings, componentName string) int {
	for i, c := range certs {
		if c.ComponentName == componentName {
			return i
		}
	}
	return -1
}
