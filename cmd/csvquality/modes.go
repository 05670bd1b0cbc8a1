package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

type modeEntry struct {
	Name            string   `yaml:"name"`
	RequiredColumns []string `yaml:"required_columns,flow"`
	Sample          string   `yaml:"sample,omitempty"`
}

func newModesCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List analysis modes and their required columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []modeEntry
			for _, m := range quality.Modes() {
				if !m.Analyzable() {
					continue
				}
				spec := quality.Spec(m)
				entries = append(entries, modeEntry{
					Name:            string(m),
					RequiredColumns: spec.RequiredColumns,
					Sample:          spec.SampleFile,
				})
			}

			out := cmd.OutOrStdout()
			if asYAML {
				data, err := yaml.Marshal(entries)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\n  %s\n", e.Name, strings.Join(e.RequiredColumns, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as YAML")
	return cmd
}
