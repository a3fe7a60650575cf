package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// envPrefix namespaces all environment variables read by Load.
const envPrefix = "MEPAD_"

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional). If provided
	// but the file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override everything else.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. Empty strings and zero values
// mean "unset".
type FlagOverrides struct {
	ListenAddr     string
	ExternalOrigin string
	StoreDriver    string
	TLSMode        string
	LogLevel       string
	AdminEmail     string
	AdminPassword  string
}

// Load loads configuration with the following precedence, lowest first:
//
//  1. Defaults
//  2. TOML config file values
//  3. MEPAD_* environment variables
//  4. CLI flags
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error. Unknown TOML keys produce a warning but do
// not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.ExternalOrigin != "" {
		cfg.ExternalOrigin = f.ExternalOrigin
	}
	if f.StoreDriver != "" {
		cfg.Store.Driver = f.StoreDriver
	}
	if f.TLSMode != "" {
		cfg.TLS.Mode = f.TLSMode
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.AdminEmail != "" {
		cfg.Auth.BootstrapAdmin.Email = f.AdminEmail
	}
	if f.AdminPassword != "" {
		cfg.Auth.BootstrapAdmin.Password = f.AdminPassword
	}
}

// validate checks enum-like fields and cross-field constraints.
func validate(cfg *Config) error {
	switch cfg.TLS.Mode {
	case "off", "static", "selfsigned":
	default:
		return fmt.Errorf("invalid tls.mode %q: must be one of off, static, selfsigned", cfg.TLS.Mode)
	}

	if cfg.TLS.Mode == "static" {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when tls.mode is static")
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("auth.token_ttl_hours must be positive")
	}
	if cfg.Auth.InvitationTTLHours <= 0 {
		return fmt.Errorf("auth.invitation_ttl_hours must be positive")
	}

	if cfg.Server.RateLimit.WindowSeconds <= 0 || cfg.Server.RateLimit.Burst <= 0 {
		return fmt.Errorf("server.rate_limit.window_seconds and burst must be positive")
	}

	if cfg.Auth.BootstrapAdmin.Email != "" && cfg.Auth.BootstrapAdmin.Password == "" {
		return fmt.Errorf("auth.bootstrap_admin.password is required when an admin email is set")
	}

	return nil
}

// LogLevel maps the configured level string to a slog.Level.
func (c *LoggingConfig) LogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
