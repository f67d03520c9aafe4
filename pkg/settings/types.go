package settings

// AgentComponentName is the synthetic UpdateComponent name the agent injects
// for itself on load and strips on save; it is never persisted to disk.
const AgentComponentName = "NeutronCommunicator"

// Settings is the canonical declarative record, persisted as a single JSON
// document at a fixed path (see Path).
type Settings struct {
	NeutronUser     string               `json:"neutron_user"`
	CentralBroker   CentralBrokerConfig  `json:"central_broker"`
	ComponentBroker ComponentBrokerConfig `json:"component_broker"`
	Application     string               `json:"application"`
	Branch          string               `json:"branch"`
	UpdateComponents []UpdateComponent   `json:"update_components"`
	Certificates    []CertificateSettings `json:"certificates"`
}

// CentralBrokerConfig holds the remote fleet-controller's address and
// credentials. The same host/port/proto serve both the central MQTT bus and
// the HTTP version-control API (manifest negotiation, artifact download) —
// the spec names only "central broker creds" and an "<proto>://<server>:
// <port>" HTTP target without separating them, so this is treated as one
// endpoint reachable over two protocols rather than two independently
// configured servers.
type CentralBrokerConfig struct {
	Proto    string `json:"proto"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ComponentBrokerConfig holds the local MQTT broker credentials plus the
// trust-store path used to validate the component bus's TLS certificate.
type ComponentBrokerConfig struct {
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CAFile    string `json:"ca_file"`
}

// UpdateComponent describes one fleet component the agent keeps at the
// version-control engine's target version.
type UpdateComponent struct {
	Name            string `json:"name"`
	VersionFilePath string `json:"version_file_path"`
	Owner           string `json:"owner"`
	OwnerGroup      string `json:"owner_group"`
	Permissions     string `json:"permissions"`
	ServiceName     string `json:"service_name,omitempty"`
	ContainerName   string `json:"container_name,omitempty"`
	RestartCommand  string `json:"restart_command"`
}

// CertificateSettings is one managed certificate: a required leaf
// (MainCertificate) and an optional issuing CA. Presence of CACertificate
// means the leaf is CA-signed; its absence means self-signed.
type CertificateSettings struct {
	ComponentName   string         `json:"component_name"`
	Algorithm       string         `json:"algorithm"`
	CACertificate   *CACertificate `json:"ca_certificate,omitempty"`
	MainCertificate MainCertificate `json:"main_certificate"`
}

// PathPair is a (key file, certificate file) location pair.
type PathPair struct {
	Key  string `json:"key"`
	Cert string `json:"cert"`
}

// CACertificate is the issuing certificate authority for a CA-signed leaf.
type CACertificate struct {
	Encrypted      bool       `json:"encrypted"`
	DurationDays   int        `json:"duration"`
	Subj           string     `json:"subj"`
	Extensions     string     `json:"extensions"`
	MainPaths      PathPair   `json:"main_paths"`
	AuxiliaryPaths []PathPair `json:"auxiliary_paths"`

	// Passphrase and DateIssued are transient: held in memory only for the
	// lifetime of the agent process and never written to disk.
	Passphrase string `json:"-"`
	DateIssued string `json:"-"`
}

// MainCertificate is the leaf certificate a managed component uses for mTLS.
type MainCertificate struct {
	Encrypted      bool       `json:"encrypted"`
	DurationDays   int        `json:"duration"`
	Subj           string     `json:"subj"`
	KeyLen         int        `json:"key_len"`
	ServiceIPs     []string   `json:"service_ips"`
	MainPaths      PathPair   `json:"main_paths"`
	AuxiliaryPaths []PathPair `json:"auxiliary_paths"`

	Passphrase string `json:"-"`
	DateIssued string `json:"-"`
}

// CertKind selects which half of a CertificateSettings an operation targets.
type CertKind string

const (
	CertKindCA   CertKind = "ca"
	CertKindMain CertKind = "main"
)

// DefaultCAExtensions is the openssl config section used for CA certificates
// when a CertificateSettings does not specify one explicitly.
const DefaultCAExtensions = "v3_ca"
