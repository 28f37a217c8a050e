package internal

import (
	"log/slog"
	"strings"
	"testing"

	pkgconfig "github.com/starford/humkit/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLibraryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LibraryConfig
		wantErr bool
	}{
		{"defaults", LibraryConfig{Path: "lib"}, false},
		{"no path", LibraryConfig{}, true},
		{"empty extension", LibraryConfig{Path: "lib", Extensions: []string{""}}, true},
		{"negative size", LibraryConfig{Path: "lib", MaxScoreSize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMIDIConfig(t *testing.T) {
	cfg := MIDIConfig{Velocity: 200}
	if err := cfg.Validate(); err == nil {
		t.Error("velocity above 127 should fail")
	}
	opts := NewDefaultConfig().MIDI.Options()
	if opts.TicksPerQuarter != 480 || opts.Tempo != 120 || opts.Velocity != 64 {
		t.Errorf("Options = %+v", opts)
	}
}

func TestCheckConfig_Validate(t *testing.T) {
	cfg := CheckConfig{Concurrency: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative concurrency should fail")
	}
}

func TestSampleConfigFile(t *testing.T) {
	t.Setenv("HUMKIT_PORT", "9090")
	t.Setenv("HUMKIT_LOG_LEVEL", "debug")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Library.Path != "./library" || len(cfg.Library.Extensions) != 3 {
		t.Errorf("library = %+v", cfg.Library)
	}
	if cfg.Auth.AuthEnabled() {
		t.Error("sample config should not enable auth")
	}
	if opts := cfg.MIDI.Options(); opts.TicksPerQuarter != 480 || opts.Velocity != 64 {
		t.Errorf("midi = %+v", opts)
	}
}
