package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/formatkeeper/internal/core/auth"
	"github.com/solatis/formatkeeper/internal/core/config"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the check service",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Mint a new API key; it is printed once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("key name cannot be empty")
		}
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		secretID, err := auth.NewestSecretID(secrets)
		if err != nil {
			return err
		}
		key, hash, err := auth.GenerateAPIKey(secrets, secretID)
		if err != nil {
			return err
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if _, err := store.CreateAPIKey(cmd.Context(), name, secretID, hash); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.ListAPIKeys(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			lastUsed, state := "never", "active"
			if k.LastUsedAt.Valid {
				lastUsed = k.LastUsedAt.Time.Local().Format(time.DateTime)
			}
			if k.RevokedAt.Valid {
				state = "revoked"
			}
			rows = append(rows, []string{k.Name, k.CreatedAt.Local().Format(time.DateTime), lastUsed, state})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"NAME", "CREATED", "LAST USED", "STATE"}, rows))
		return nil
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke NAME",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RevokeAPIKey(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyListCmd, apikeyRevokeCmd)
}
