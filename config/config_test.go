package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a config file into a temp dir, returning its path.
func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	return path
}

const validConfig = `
database_path: "atelier.db"
web:
  listen_address: "127.0.0.1:8080"
auth:
  jwt_secret: "test-secret"
  token_lifetime: "12h"
uploads:
  dir: "uploads"
  mirror_dir: "mirror"
notify:
  webhook_url: "https://example.com/hook"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got, want := cfg.DatabasePath, "atelier.db"; got != want {
		t.Errorf("database path got %q want %q", got, want)
	}
	if got, want := cfg.Auth.TokenLifetime, 12*time.Hour; got != want {
		t.Errorf("token lifetime got %v want %v", got, want)
	}
	// default applied
	if got, want := cfg.Auth.SigningLinkLifetime, 336*time.Hour; got != want {
		t.Errorf("signing link lifetime got %v want %v", got, want)
	}
	if got, want := cfg.Notify.ReminderSchedule, "0 8 * * *"; got != want {
		t.Errorf("reminder schedule got %q want %q", got, want)
	}
}

func TestLoadEnvSecretOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got, want := cfg.Auth.JWTSecret, "env-secret"; got != want {
		t.Errorf("jwt secret got %q want %q", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		errPart string
	}{
		{
			name:    "missing database path",
			mutate:  func(s string) string { return strings.Replace(s, `database_path: "atelier.db"`, "", 1) },
			errPart: "database_path",
		},
		{
			name:    "missing listen address",
			mutate:  func(s string) string { return strings.Replace(s, `listen_address: "127.0.0.1:8080"`, "", 1) },
			errPart: "listen_address",
		},
		{
			name:    "missing uploads dir",
			mutate:  func(s string) string { return strings.Replace(s, `dir: "uploads"`, "", 1) },
			errPart: "uploads.dir",
		},
		{
			name:    "bad token lifetime",
			mutate:  func(s string) string { return strings.Replace(s, `"12h"`, `"notaduration"`, 1) },
			errPart: "token_lifetime",
		},
		{
			name: "incomplete receipts settings",
			mutate: func(s string) string {
				return s + "\nreceipts:\n  url: \"https://ocr.example.com\"\n"
			},
			errPart: "receipts",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
