// Package config loads and serves the composer's runtime configuration:
// the control-plane server, the dispatcher target, the memory state
// directory, and the composition engine's timeout ceiling.
package config

import "time"

// ServerConfig controls the control-plane HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	CORSAllowed     []string      `koanf:"cors_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// APIKey, when non-empty, is compared against the bearer token on every
	// request. Empty means authentication is skipped (development mode).
	APIKey SensitiveString `koanf:"api_key"`
}

// CatalogConfig controls the library catalog's filesystem root.
type CatalogConfig struct {
	TemplateRoot string `koanf:"template_root" validate:"required"`
}

// ComposeConfig bounds a single composition job.
type ComposeConfig struct {
	OutputRoot        string        `koanf:"output_root"`
	MaxComposeSeconds time.Duration `koanf:"max_compose_seconds"`
}

// DispatchConfig controls how ComposeJob records are handed to the
// external worker. Transport selects the DispatchTransport: "http" sends
// a webhook via TemplateRepo/Token, "fs" drops each record into QueueDir
// for deployments with no external webhook endpoint.
type DispatchConfig struct {
	Transport      string          `koanf:"transport" validate:"oneof=http fs"`
	TemplateRepo   string          `koanf:"template_repo"`
	Token          SensitiveString `koanf:"dispatch_token"`
	QueueDir       string          `koanf:"queue_dir"`
	QueueDepth     int             `koanf:"queue_depth" validate:"gte=1"`
	AttemptLimit   int             `koanf:"attempt_limit" validate:"gte=1"`
	BaseBackoff    time.Duration   `koanf:"base_backoff"`
	MaxBackoff     time.Duration   `koanf:"max_backoff"`
	AttemptTimeout time.Duration   `koanf:"attempt_timeout"`
}

// MemoryConfig controls the rehydration store's location.
type MemoryConfig struct {
	StateDir string `koanf:"state_dir" validate:"required"`
}

// MonitoringConfig controls Prometheus metric collection and exposition.
// PushGatewayURL is optional: when set, the CLI's one-shot compose run
// pushes its metrics there after finishing, since a short-lived process
// has no one to scrape its own /metrics endpoint.
type MonitoringConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Path           string `koanf:"path" validate:"required"`
	PushGatewayURL string `koanf:"push_gateway_url"`
}

// Config is the fully resolved configuration for one process.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Compose    ComposeConfig    `koanf:"compose"`
	Dispatch   DispatchConfig   `koanf:"dispatch"`
	Memory     MemoryConfig     `koanf:"memory"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// Default returns the configuration used when no source overrides a field.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSAllowed:     nil,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			TemplateRoot: "./library",
		},
		Compose: ComposeConfig{
			OutputRoot:        "./output",
			MaxComposeSeconds: 120 * time.Second,
		},
		Dispatch: DispatchConfig{
			Transport:      "http",
			QueueDir:       ".dispatch-queue",
			QueueDepth:     64,
			AttemptLimit:   3,
			BaseBackoff:    500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			AttemptTimeout: 5 * time.Second,
		},
		Memory: MemoryConfig{
			StateDir: ".memory",
		},
		Monitoring: MonitoringConfig{
			Enabled:        false,
			Path:           "/metrics",
			PushGatewayURL: "",
		},
	}
}
