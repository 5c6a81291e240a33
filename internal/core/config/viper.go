package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; commands
// apply flag overrides after loading.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("check.rules_file", d.Check.RulesFile)
	v.SetDefault("check.default_style", d.Check.DefaultStyle)
	v.SetDefault("check.tolerance_pt", d.Check.Tolerances.Points)
	v.SetDefault("check.tolerance_cm", d.Check.Tolerances.Centimeters)
	v.SetDefault("check.tolerance_float", d.Check.Tolerances.Float)
	v.SetDefault("check.jobs", d.Check.Jobs)
	v.SetDefault("check.cache", d.Check.Cache)
	v.SetDefault("check.cache_dir", d.Check.CacheDir)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_document_mb", d.Server.MaxDocumentMB)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())
	v.SetDefault("db.url", d.DB.URL)

	// Bind environment variables with FK_ prefix
	v.SetEnvPrefix("FK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Check: CheckConfig{
			RulesFile:    v.GetString("check.rules_file"),
			DefaultStyle: v.GetString("check.default_style"),
			Jobs:         v.GetInt("check.jobs"),
			Cache:        v.GetBool("check.cache"),
			CacheDir:     v.GetString("check.cache_dir"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			MaxDocumentMB:   v.GetInt("server.max_document_mb"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		DB: DBConfig{URL: v.GetString("db.url")},
	}
	cfg.Check.Tolerances.Points = v.GetFloat64("check.tolerance_pt")
	cfg.Check.Tolerances.Centimeters = v.GetFloat64("check.tolerance_cm")
	cfg.Check.Tolerances.Float = v.GetFloat64("check.tolerance_float")

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges. Commands call it again after flag overrides.
func Validate(cfg *Config) error {
	tol := cfg.Check.Tolerances
	if tol.Points < 0 || tol.Centimeters < 0 || tol.Float < 0 {
		return fmt.Errorf("tolerances must be non-negative, got pt=%v cm=%v float=%v", tol.Points, tol.Centimeters, tol.Float)
	}
	if cfg.Check.Jobs < 1 || cfg.Check.Jobs > 64 {
		return fmt.Errorf("jobs must be between 1 and 64, got %d", cfg.Check.Jobs)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxDocumentMB <= 0 {
		return fmt.Errorf("max_document_mb must be positive, got %d", cfg.Server.MaxDocumentMB)
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", cfg.Server.ShutdownTimeout)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("auth.hmac_secret") || v.IsSet("auth.hmac_secrets") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use FK_HMAC_SECRET environment variable)")
	}
	return nil
}
