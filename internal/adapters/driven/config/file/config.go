package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file values. Secrets should
// usually come from the environment rather than the config file.
const (
	EnvGhostAdminKey = "PERCH_GHOST_ADMIN_API_KEY"
	EnvOpenAIKey     = "PERCH_OPENAI_API_KEY"
	EnvChromaAPIKey  = "PERCH_CHROMA_API_KEY"
	EnvWebhookSecret = "PERCH_WEBHOOK_SECRET"
)

// Duration is a time.Duration that unmarshals from TOML strings such
// as "5m" or "90s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full service configuration.
type Config struct {
	Ghost   GhostConfig   `toml:"ghost"`
	Chroma  ChromaConfig  `toml:"chroma"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Sync    SyncConfig    `toml:"sync"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
}

// GhostConfig configures the Ghost Admin API connector.
type GhostConfig struct {
	// APIURL is the base URL of the Ghost instance,
	// e.g. "https://blog.example.com".
	APIURL string `toml:"api_url"`

	// AdminAPIKey is the Admin API key in "id:hexsecret" format.
	AdminAPIKey string `toml:"admin_api_key"`

	// PageSize is the listing page size. Zero uses the connector default.
	PageSize int `toml:"page_size"`

	// RequestsPerSecond throttles outbound requests. Zero uses the
	// connector default.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ChromaConfig configures the Chroma vector index.
type ChromaConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Tenant     string `toml:"tenant"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// OpenAIConfig configures the embedding provider.
type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// SyncConfig configures the reconciliation engine.
type SyncConfig struct {
	// PollInterval is how often a full pass runs. Zero uses the
	// scheduler default.
	PollInterval Duration `toml:"poll_interval"`

	// Concurrency bounds parallel index writes during a pass.
	Concurrency int `toml:"concurrency"`

	// ChunkSize is the word budget per indexed chunk.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the word overlap between chunks of a long
	// paragraph.
	ChunkOverlap int `toml:"chunk_overlap"`
}

// ServerConfig configures the network-facing surfaces.
type ServerConfig struct {
	// Address is the listen address for the HTTP transport,
	// e.g. ":8787". Empty disables HTTP and serves stdio only.
	Address string `toml:"address"`

	// WebhookSecret authenticates incoming content webhooks. Empty
	// disables the webhook endpoint.
	WebhookSecret string `toml:"webhook_secret"`
}

// StorageConfig configures local state persistence.
type StorageConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `toml:"backend"`

	// DataDir is where the SQLite database lives. Empty uses
	// ~/.perch/data.
	DataDir string `toml:"data_dir"`
}

// DefaultPath returns the default config file location,
// ~/.perch/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".perch", "config.toml"), nil
}

// Load reads the configuration at path. A missing file is not an
// error: defaults plus environment overrides apply. If path is empty,
// DefaultPath is used.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to path, creating parent directories
// as needed. The file is written with owner-only permissions because
// it may hold API keys.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGhostAdminKey); v != "" {
		c.Ghost.AdminAPIKey = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvChromaAPIKey); v != "" {
		c.Chroma.APIKey = v
	}
	if v := os.Getenv(EnvWebhookSecret); v != "" {
		c.Server.WebhookSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Chroma.BaseURL == "" {
		c.Chroma.BaseURL = "http://localhost:8000"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
}

// Validate checks that the required connection settings are present.
// Adapter-level defaults for timeouts and page sizes are applied by
// the adapters themselves.
func (c *Config) Validate() error {
	if c.Ghost.APIURL == "" {
		return errors.New("ghost.api_url is required")
	}
	if c.Ghost.AdminAPIKey == "" {
		return fmt.Errorf("ghost.admin_api_key is required (or set %s)", EnvGhostAdminKey)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (or set %s)", EnvOpenAIKey)
	}
	if c.Storage.Backend != "sqlite" && c.Storage.Backend != "memory" {
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"memory\", got %q", c.Storage.Backend)
	}
	return nil
}
