package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/dispensary-crm/internal/crm"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate segment rule tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a rules file parses and only names known segments and fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := crm.LoadClassifier(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules ok\n", args[0], len(classifier.Rules()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in rule table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := crm.MarshalRules(crm.DefaultRules())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	})

	return cmd
}
