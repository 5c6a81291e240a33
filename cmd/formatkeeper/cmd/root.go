package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/formatkeeper/internal/core/config"
	"github.com/solatis/formatkeeper/internal/rules"
)

const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	logger *slog.Logger
)

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

var rootCmd = &cobra.Command{
	Use:           "formatkeeper",
	Short:         "formatkeeper checks .docx formatting against style rules",
	Long:          `formatkeeper checks Word documents against a declarative rule file and reports every paragraph, run and spacing mismatch.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "history database URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
}

// Execute runs the root command. Errors other than ExitError are printed.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		var exit *ExitError
		if !errors.As(err, &exit) || exit.Msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return err
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want json or text)", format)
	}
}

// loadConfig loads the config file and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DB.URL = dbURL
	}
	return cfg, nil
}

// loadRepository loads the rule file and logs its inheritance warnings.
func loadRepository(path, defaultStyle string) (*rules.Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("no rule file (use --rules or check.rules_file)")
	}
	spec, err := rules.LoadFile(path)
	if err != nil {
		return nil, err
	}
	repo := rules.NewRepository(spec, rules.Options{DefaultStyle: defaultStyle, Logger: logger})
	for _, w := range repo.Warnings() {
		logger.Warn("rule file warning", "file", path, "warning", w)
	}
	return repo, nil
}

func requireDB(cfg *config.Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("--db-url or db.url required")
	}
	return nil
}
