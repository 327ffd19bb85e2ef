package matrixctl

import "strings"

// Authentication modes.
const (
	AuthTypeToken = "token"
	AuthTypeOIDC  = "oidc"
)

// OIDC grant flows.
const (
	FlowAuthorizationCode = "authorization_code"
	FlowClientCredentials = "client_credentials"
)

// Configuration defaults.
const (
	DefaultServerName           = "default"
	DefaultConcurrentLimit      = 4
	DefaultImageScaleFactor     = 1.0
	DefaultImageMaxHeightOfTerm = 0.33
)

// Config is the resolved configuration of one invocation: the selected
// server profile plus global UI settings.
type Config struct {
	// ServerName is the key of the selected profile under "servers".
	ServerName string

	// Server is the selected profile.
	Server *Server

	UI UIConfig

	// Files lists the configuration files that were merged, in order.
	Files []string
}

// Server is one server profile.
type Server struct {
	Name        string            `yaml:"-"`
	API         API               `yaml:"api"`
	SSH         SSHConfig         `yaml:"ssh"`
	Database    DatabaseConfig    `yaml:"database"`
	Ansible     PlaybookConfig    `yaml:"ansible"`
	Synapse     PlaybookConfig    `yaml:"synapse"`
	Alias       AliasConfig       `yaml:"alias"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// API holds admin API access settings.
type API struct {
	Domain    string  `yaml:"domain"`
	Scheme    string  `yaml:"scheme"`
	Subdomain *string `yaml:"subdomain"`
	AuthType  string  `yaml:"auth_type"`
	Username  string  `yaml:"username"`
	Token     string  `yaml:"token"`

	OIDC *OIDCConfig `yaml:"oidc"`

	ConcurrentLimit   int     `yaml:"concurrent_limit"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OIDCConfig configures the OpenID Connect client used when AuthType is
// "oidc". Either DiscoveryEndpoint or the explicit endpoints are required.
type OIDCConfig struct {
	DiscoveryEndpoint string `yaml:"discovery_endpoint"`

	TokenEndpoint    string `yaml:"token_endpoint"`
	AuthEndpoint     string `yaml:"auth_endpoint"`
	UserinfoEndpoint string `yaml:"userinfo_endpoint"`
	JWKSEndpoint     string `yaml:"jwks_endpoint"`

	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Claims       []string `yaml:"claims"`

	// Flow is "authorization_code" (default) or "client_credentials".
	Flow string `yaml:"flow"`
}

// SSHConfig addresses the homeserver host.
type SSHConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
}

// DatabaseConfig holds the Synapse PostgreSQL credentials.
type DatabaseConfig struct {
	Tunnel          bool   `yaml:"tunnel"`
	Port            int    `yaml:"port"`
	SynapseUser     string `yaml:"synapse_user"`
	SynapsePassword string `yaml:"synapse_password"`
	SynapseDatabase string `yaml:"synapse_database"`
}

// PlaybookConfig points at a playbook checkout.
type PlaybookConfig struct {
	Playbook string `yaml:"playbook"`
}

// AliasConfig holds operator-defined shortcuts.
type AliasConfig struct {
	Room []RoomAlias `yaml:"room"`
}

// RoomAlias maps a short name to a room identifier.
type RoomAlias struct {
	Name   string `yaml:"name"`
	RoomID string `yaml:"room_id"`
}

// MaintenanceConfig lists the maintenance tasks the operator allows.
type MaintenanceConfig struct {
	Tasks []string `yaml:"tasks"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Image ImageConfig `yaml:"image"`
}

// ImageConfig controls inline image previews.
type ImageConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ScaleFactor         float64 `yaml:"scale_factor"`
	MaxHeightOfTerminal float64 `yaml:"max_height_of_terminal"`
}

// SubdomainOrDefault returns the configured subdomain, "matrix" when
// unset. An explicitly empty subdomain addresses the bare domain.
func (a API) SubdomainOrDefault() string {
	if a.Subdomain == nil {
		return DefaultSubdomain
	}
	return *a.Subdomain
}

// SchemeOrDefault returns the configured scheme, "https" when unset.
func (a API) SchemeOrDefault() string {
	if a.Scheme == "" {
		return DefaultScheme
	}
	return a.Scheme
}

// ApplyDefaults fills unset fields with their defaults.
func (s *Server) ApplyDefaults() {
	if s.API.ConcurrentLimit == 0 {
		s.API.ConcurrentLimit = DefaultConcurrentLimit
	}
	if s.API.AuthType == "" {
		s.API.AuthType = AuthTypeToken
	}
	if s.API.OIDC != nil && s.API.OIDC.Flow == "" {
		s.API.OIDC.Flow = FlowAuthorizationCode
	}
	if s.Alias.Room == nil {
		s.Alias.Room = []RoomAlias{}
	}
	if s.SSH.Port == 0 {
		s.SSH.Port = 22
	}
	if s.Database.Port == 0 {
		s.Database.Port = 5432
	}
}

// ApplyDefaults fills unset UI fields with their defaults.
func (u *UIConfig) ApplyDefaults() {
	if u.Image.ScaleFactor == 0 {
		u.Image.ScaleFactor = DefaultImageScaleFactor
	}
	if u.Image.MaxHeightOfTerminal == 0 {
		u.Image.MaxHeightOfTerminal = DefaultImageMaxHeightOfTerm
	}
}

// Validate returns an error if the profile violates its invariants.
func (s *Server) Validate() error {
	if s.API.Domain == "" {
		return Errorf(ECONFIG, "server %q: api.domain is required", s.Name)
	}
	if s.API.ConcurrentLimit < 1 {
		return Errorf(ECONFIG, "server %q: api.concurrent_limit must be at least 1", s.Name)
	}

	switch s.API.AuthType {
	case AuthTypeToken:
		if s.API.Token == "" {
			return Errorf(ECONFIG, "server %q: api.token is required when api.auth_type is %q", s.Name, AuthTypeToken)
		}
	case AuthTypeOIDC:
		o := s.API.OIDC
		if o == nil {
			return Errorf(ECONFIG, "server %q: api.oidc is required when api.auth_type is %q", s.Name, AuthTypeOIDC)
		}
		if o.ClientID == "" {
			return Errorf(ECONFIG, "server %q: api.oidc.client_id is required", s.Name)
		}
		if o.DiscoveryEndpoint == "" && o.TokenEndpoint == "" {
			return Errorf(ECONFIG, "server %q: api.oidc needs discovery_endpoint or token_endpoint", s.Name)
		}
		if o.DiscoveryEndpoint == "" && o.Flow == FlowAuthorizationCode && o.AuthEndpoint == "" {
			return Errorf(ECONFIG, "server %q: api.oidc.auth_endpoint is required for the %s flow", s.Name, FlowAuthorizationCode)
		}
		if o.Flow != FlowAuthorizationCode && o.Flow != FlowClientCredentials {
			return Errorf(ECONFIG, "server %q: unknown api.oidc.flow %q", s.Name, o.Flow)
		}
	default:
		return Errorf(ECONFIG, "server %q: unknown api.auth_type %q (expected %q or %q)",
			s.Name, s.API.AuthType, AuthTypeToken, AuthTypeOIDC)
	}

	if s.Database.Tunnel && s.SSH.Address == "" {
		return Errorf(ECONFIG, "server %q: database.tunnel requires ssh.address", s.Name)
	}

	seen := make(map[string]bool, len(s.Alias.Room))
	for _, a := range s.Alias.Room {
		key := normalizeAlias(a.Name)
		if seen[key] {
			return Errorf(ECONFIG, "server %q: duplicate room alias %q", s.Name, a.Name)
		}
		seen[key] = true
	}
	return nil
}

// ResolveRoomAlias returns the room identifier configured for name.
// Identifiers that are not aliases are returned unchanged.
func (s *Server) ResolveRoomAlias(name string) string {
	key := normalizeAlias(name)
	for _, a := range s.Alias.Room {
		if normalizeAlias(a.Name) == key {
			return a.RoomID
		}
	}
	return strings.TrimSpace(name)
}

func normalizeAlias(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BaseRequest returns a request for path addressed at the profile's
// homeserver.
func (s *Server) BaseRequest(path string) Request {
	return NewRequest(s.API.Domain, path).
		WithScheme(s.API.SchemeOrDefault()).
		WithSubdomain(s.API.SubdomainOrDefault()).
		WithConcurrentLimit(s.API.ConcurrentLimit)
}
