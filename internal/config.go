package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/humkit/internal/checker"
	"github.com/starford/humkit/internal/midiexport"
	"github.com/starford/humkit/internal/scoreservice"
	"github.com/starford/humkit/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Check   CheckConfig       `yaml:"check"`
	MIDI    MIDIConfig        `yaml:"midi"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Library, &c.SQLite, &c.Auth, &c.Check, &c.MIDI} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig locates the score library on disk.
type LibraryConfig struct {
	Path         string   `yaml:"path"`
	Extensions   []string `yaml:"extensions"`
	MaxScoreSize int      `yaml:"max_score_size"` // bytes
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.Required, validation.Length(1, 16))),
		validation.Field(&c.MaxScoreSize, validation.Min(0)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CheckConfig tunes batch validation.
type CheckConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Validate validates the check configuration.
func (c *CheckConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(256)),
	)
}

// MIDIConfig holds defaults for MIDI export.
type MIDIConfig struct {
	TicksPerQuarter int     `yaml:"ticks_per_quarter"`
	Tempo           float64 `yaml:"tempo"`
	Velocity        int     `yaml:"velocity"`
}

// Validate validates the MIDI configuration.
func (c *MIDIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TicksPerQuarter, validation.Min(0), validation.Max(32767)),
		validation.Field(&c.Tempo, validation.Min(0.0), validation.Max(1000.0)),
		validation.Field(&c.Velocity, validation.Min(0), validation.Max(127)),
	)
}

// Options converts the section into export options.
func (c *MIDIConfig) Options() midiexport.Options {
	return midiexport.Options{
		TicksPerQuarter: uint16(c.TicksPerQuarter),
		Tempo:           c.Tempo,
		Velocity:        uint8(c.Velocity),
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Path:         "./library",
			Extensions:   storage.DefaultExtensions,
			MaxScoreSize: scoreservice.DefaultMaxScoreSize,
		},
		SQLite: SQLiteConfig{
			Path: "./humkit.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Check: CheckConfig{
			Concurrency: checker.DefaultConcurrency,
		},
		MIDI: MIDIConfig{
			TicksPerQuarter: midiexport.DefaultTicksPerQuarter,
			Tempo:           midiexport.DefaultTempo,
			Velocity:        midiexport.DefaultVelocity,
		},
	}
}
