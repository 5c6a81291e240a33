package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/solatis/formatkeeper/internal/types"
)

const (
	testSecretA = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecretB = "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecretC = "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formatkeeper.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHMACSecrets(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    int
		wantErr bool
	}{
		{"none", nil, 0, false},
		{"single secret", map[string]string{"FK_HMAC_SECRET": testSecretA}, 1, false},
		{"numbered secrets", map[string]string{"FK_HMAC_SECRET_1": testSecretA, "FK_HMAC_SECRET_2": testSecretB}, 2, false},
		{"numbering stops at gap", map[string]string{"FK_HMAC_SECRET_1": testSecretA, "FK_HMAC_SECRET_3": testSecretB}, 1, false},
		{"invalid format", map[string]string{"FK_HMAC_SECRET": "invalid_format"}, 0, true},
		{"short secret_id", map[string]string{"FK_HMAC_SECRET": "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"}, 0, true},
		{"duplicate numbered", map[string]string{"FK_HMAC_SECRET_1": testSecretA, "FK_HMAC_SECRET_2": testSecretC}, 0, true},
		{"duplicate single and numbered", map[string]string{"FK_HMAC_SECRET": testSecretA, "FK_HMAC_SECRET_1": testSecretC}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"FK_HMAC_SECRET", "FK_HMAC_SECRET_1", "FK_HMAC_SECRET_2", "FK_HMAC_SECRET_3"} {
				t.Setenv(k, tt.env[k])
			}
			secrets, err := HMACSecrets()
			if (err != nil) != tt.wantErr {
				t.Fatalf("HMACSecrets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(secrets) != tt.want {
				t.Errorf("HMACSecrets() = %d secrets, want %d", len(secrets), tt.want)
			}
		})
	}
}

func TestParseHMACSecretWithID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantID  string
		wantErr bool
	}{
		{"valid", testSecretA, "0123456789abcdef0123456789abcdef", false},
		{"surrounding whitespace", "  " + testSecretA + "\n", "0123456789abcdef0123456789abcdef", false},
		{"missing colon", "0123456789abcdef0123456789abcdef", "", true},
		{"short id", "tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", "", true},
		{"non-hex id", "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w", "", true},
		{"bad base64", "0123456789abcdef0123456789abcdef:not-valid!!!", "", true},
		{"short secret", "0123456789abcdef0123456789abcdef:c2hvcnQ=", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, secret, err := ParseHMACSecretWithID(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHMACSecretWithID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if id != tt.wantID {
				t.Errorf("ParseHMACSecretWithID() id = %q, want %q", id, tt.wantID)
			}
			if len(secret) < 32 {
				t.Errorf("secret too short: %d bytes", len(secret))
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := Default()
	if cfg.Check != want.Check {
		t.Errorf("Check = %+v, want %+v", cfg.Check, want.Check)
	}
	if cfg.Server != want.Server {
		t.Errorf("Server = %+v, want %+v", cfg.Server, want.Server)
	}
	if cfg.DB.URL != "" {
		t.Errorf("DB.URL = %q, want empty", cfg.DB.URL)
	}
	if cfg.Check.Tolerances != types.DefaultTolerances {
		t.Errorf("Tolerances = %+v", cfg.Check.Tolerances)
	}
	if cfg.Server.Addr() != "0.0.0.0:50051" || cfg.Server.MaxDocumentBytes() != 32<<20 {
		t.Errorf("Addr() = %q, MaxDocumentBytes() = %d", cfg.Server.Addr(), cfg.Server.MaxDocumentBytes())
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `check:
  rules_file: thesis.yaml
  tolerance_pt: 0.25
  jobs: 2
server:
  port: 9090
  shutdown_timeout: 5s
db:
  url: sqlite:///tmp/fk.db
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Check.RulesFile != "thesis.yaml" || cfg.Check.Jobs != 2 || cfg.Check.Tolerances.Points != 0.25 {
			t.Errorf("Check = %+v", cfg.Check)
		}
		if cfg.Check.Tolerances.Centimeters != 0.01 {
			t.Errorf("unset tolerance_cm = %v, want default", cfg.Check.Tolerances.Centimeters)
		}
		if cfg.Server.Port != 9090 || cfg.Server.ShutdownTimeout != 5*time.Second {
			t.Errorf("Server = %+v", cfg.Server)
		}
		if cfg.DB.URL != "sqlite:///tmp/fk.db" {
			t.Errorf("DB.URL = %q", cfg.DB.URL)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("FK_SERVER_PORT", "8080")
		t.Setenv("FK_CHECK_CACHE", "false")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("Port = %d, want 8080", cfg.Server.Port)
		}
		if cfg.Check.Cache {
			t.Error("Cache = true, want false from environment")
		}
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantMsg string
	}{
		{"port range", map[string]string{"FK_SERVER_PORT": "70000"}, "", "port must be between"},
		{"jobs zero", map[string]string{"FK_CHECK_JOBS": "0"}, "", "jobs must be between"},
		{"jobs too many", map[string]string{"FK_CHECK_JOBS": "65"}, "", "jobs must be between"},
		{"negative tolerance", map[string]string{"FK_CHECK_TOLERANCE_CM": "-0.1"}, "", "tolerances must be non-negative"},
		{"secret in file", nil, "auth:\n  hmac_secrets:\n    abc: xyz\n", "HMAC secrets not allowed"},
		{"missing file", nil, "-", "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			switch tt.file {
			case "":
			case "-":
				path = filepath.Join(t.TempDir(), "missing.yaml")
			default:
				path = writeConfig(t, tt.file)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("LoadConfig() error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_ZeroToleranceAllowed(t *testing.T) {
	cfg := Default()
	cfg.Check.Tolerances = types.Tolerances{}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil for zero tolerances", err)
	}
}
