package server

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the server's strand-server.toml configuration.
type Config struct {
	// Addr is the host:port the server listens on.
	Addr string `toml:"addr"`

	// DBPath is the sqlite file holding persisted sessions. Empty
	// means in-memory only; sessions do not survive a restart.
	DBPath string `toml:"db_path"`

	// TokenSecret signs session resume tokens. The STRAND_TOKEN_SECRET
	// environment variable overrides it.
	TokenSecret string `toml:"token_secret"`

	// TokenTTLHours bounds how long a resume token stays valid.
	TokenTTLHours int `toml:"token_ttl_hours"`

	// MaxInstructions bounds a single step; zero means unbounded.
	MaxInstructions int `toml:"max_instructions"`

	// AllowedOrigins lists browser origins accepted during the
	// websocket handshake. Requests without an Origin header
	// (non-browser clients) are always accepted.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8700",
		TokenTTLHours:   24,
		MaxInstructions: 1_000_000,
	}
}

// LoadConfig parses a toml config file, applying defaults for absent
// keys.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// tokenSecret resolves the signing secret, preferring the environment.
func (c Config) tokenSecret() []byte {
	if env := os.Getenv("STRAND_TOKEN_SECRET"); env != "" {
		return []byte(env)
	}
	return []byte(c.TokenSecret)
}

// tokenTTL returns the resume token lifetime.
func (c Config) tokenTTL() time.Duration {
	if c.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TokenTTLHours) * time.Hour
}
