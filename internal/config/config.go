// Package config provides configuration loading and validation.
package config

import "time"

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on. Example: ":5000"
	ListenAddr string `json:"listen_addr" toml:"listen_addr" env:"LISTEN_ADDR"`

	// ExternalOrigin is the public origin (scheme + host + port) clients
	// reach the server on. Its hostname seeds self-signed certificate SANs;
	// frontends compose invitation links against it.
	// Example: "https://mepad.example.com"
	ExternalOrigin string `json:"external_origin" toml:"external_origin" env:"EXTERNAL_ORIGIN"`

	Server  ServerConfig  `json:"server" toml:"server" envPrefix:"SERVER_"`
	Auth    AuthConfig    `json:"auth" toml:"auth" envPrefix:"AUTH_"`
	Store   StoreConfig   `json:"store" toml:"store" envPrefix:"STORE_"`
	TLS     TLSConfig     `json:"tls" toml:"tls" envPrefix:"TLS_"`
	Logging LoggingConfig `json:"logging" toml:"logging" envPrefix:"LOG_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	// "*" allows any origin.
	CORSAllowedOrigins []string `json:"cors_allowed_origins" toml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`

	// TrustedProxies are CIDRs whose X-Forwarded-For headers are honored
	// when resolving the client IP for rate limiting.
	TrustedProxies []string `json:"trusted_proxies" toml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// RateLimit applies to the credential endpoints (login, register).
	RateLimit RateLimitConfig `json:"rate_limit" toml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// RateLimitConfig is a fixed-window request limit per client IP.
type RateLimitConfig struct {
	WindowSeconds int `json:"window_seconds" toml:"window_seconds" env:"WINDOW_SECONDS"`
	Burst         int `json:"burst" toml:"burst" env:"BURST"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// JWTSecret signs bearer tokens. Required outside of tests.
	JWTSecret string `json:"jwt_secret" toml:"jwt_secret" env:"JWT_SECRET"`

	// TokenTTLHours is the bearer token lifetime in hours.
	TokenTTLHours int `json:"token_ttl_hours" toml:"token_ttl_hours" env:"TOKEN_TTL_HOURS"`

	// InvitationTTLHours is the invitation token lifetime in hours.
	InvitationTTLHours int `json:"invitation_ttl_hours" toml:"invitation_ttl_hours" env:"INVITATION_TTL_HOURS"`

	// BcryptCost is the password hashing cost. 0 uses the library default.
	BcryptCost int `json:"bcrypt_cost" toml:"bcrypt_cost" env:"BCRYPT_COST"`

	// BootstrapAdmin, when set, is created (or kept) at startup.
	BootstrapAdmin BootstrapAdmin `json:"bootstrap_admin" toml:"bootstrap_admin" envPrefix:"BOOTSTRAP_ADMIN_"`
}

// BootstrapAdmin holds startup admin credentials.
type BootstrapAdmin struct {
	Email    string `json:"email" toml:"email" env:"EMAIL"`
	Password string `json:"-" toml:"password" env:"PASSWORD"`
}

// StoreConfig selects and configures the persistence driver.
type StoreConfig struct {
	// Driver names a registered store driver; "memory" keeps everything
	// in process.
	Driver string `json:"driver" toml:"driver" env:"DRIVER"`

	// Options are passed to the driver as-is. The sqlite driver reads
	// "path" from here.
	Options map[string]any `json:"options" toml:"options"`
}

// TLSConfig holds TLS-related settings.
type TLSConfig struct {
	// Mode is one of: off, static, selfsigned
	Mode string `json:"mode" toml:"mode" env:"MODE"`

	// CertFile and KeyFile for static mode
	CertFile string `json:"cert_file" toml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `json:"key_file" toml:"key_file" env:"KEY_FILE"`

	// SelfSignedDir caches generated certificates for selfsigned mode.
	SelfSignedDir string `json:"self_signed_dir" toml:"self_signed_dir" env:"SELF_SIGNED_DIR"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `json:"level" toml:"level" env:"LEVEL"`
}

// TokenTTL returns the bearer token lifetime as a duration.
func (c *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// InvitationTTL returns the invitation lifetime as a duration.
func (c *AuthConfig) InvitationTTL() time.Duration {
	return time.Duration(c.InvitationTTLHours) * time.Hour
}

// Window returns the rate limit window as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		ListenAddr:     ":5000",
		ExternalOrigin: "http://localhost:5000",
		Server: ServerConfig{
			CORSAllowedOrigins: []string{"*"},
			TrustedProxies:     []string{"127.0.0.0/8", "::1/128"},
			RateLimit: RateLimitConfig{
				WindowSeconds: 60,
				Burst:         20,
			},
		},
		Auth: AuthConfig{
			TokenTTLHours:      720, // 30 days
			InvitationTTLHours: 720,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		TLS: TLSConfig{
			Mode:          "off",
			SelfSignedDir: ".mepad/certs",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Redacted returns a copy safe to log: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = "***"
	}
	if out.Auth.BootstrapAdmin.Password != "" {
		out.Auth.BootstrapAdmin.Password = "***"
	}
	return &out
}
