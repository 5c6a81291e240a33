package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/formatkeeper/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rule files",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a rule file and report inheritance problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := loadRepository(args[0], "")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range repo.Warnings() {
			fmt.Fprintf(out, "warning: %v\n", w)
		}
		spec := repo.Spec()
		fmt.Fprintf(out, "%s: ok, %d paragraph style(s), default %q, fingerprint %s\n",
			args[0], len(spec.Paragraph), repo.DefaultStyle(), repo.Fingerprint()[:12])
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show FILE STYLE",
	Short: "Print the effective rules of a style",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := loadRepository(args[0], "")
		if err != nil {
			return err
		}
		style := args[1]
		canonical, ok := repo.Canonical(style)
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%q is not mapped to a rule style; only global rules apply\n", style)
		} else if canonical != style {
			fmt.Fprintf(cmd.ErrOrStderr(), "%q resolves to %q\n", style, canonical)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(repo.Effective(style))); err != nil {
			return err
		}
		return enc.Close()
	},
}

var rulesSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of rule files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(rules.Schema())
		return err
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd, rulesShowCmd, rulesSchemaCmd)
}
