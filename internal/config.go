package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/identity"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Identity IdentityConfig    `yaml:"identity"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// StoreConfig selects the document store backend.
//
// DSN is a file path for sqlite, a go-sql-driver DSN for mysql and a
// connection URL for postgres.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(docstore.DriverSQLite, docstore.DriverMySQL, docstore.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// IdentityConfig holds token signing configuration.
type IdentityConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	Issuer         string        `yaml:"issuer"`
	IDTokenTTL     time.Duration `yaml:"id_token_ttl"`
	CustomTokenTTL time.Duration `yaml:"custom_token_ttl"`
}

// Validate validates the identity configuration.
func (c *IdentityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.IDTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.CustomTokenTTL, validation.Required, validation.Min(time.Minute)),
	)
}

// ProviderConfig converts c into identity provider settings.
func (c *IdentityConfig) ProviderConfig() identity.Config {
	return identity.Config{
		Secret:         c.JWTSecret,
		Issuer:         c.Issuer,
		IDTokenTTL:     c.IDTokenTTL,
		CustomTokenTTL: c.CustomTokenTTL,
	}
}

// EventsConfig holds change feed configuration.
type EventsConfig struct {
	// Buffer is the per-connection event queue length.
	Buffer int `yaml:"buffer"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Buffer, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
// The JWT secret has no default and must be supplied.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
			},
		},
		Store: StoreConfig{
			Driver: docstore.DriverSQLite,
			DSN:    "./scribe.db",
		},
		Identity: IdentityConfig{
			Issuer:         "scribe",
			IDTokenTTL:     time.Hour,
			CustomTokenTTL: time.Hour,
		},
		Events: EventsConfig{
			Buffer: 64,
		},
	}
}
