package main

import (
	"github.com/anime-shed/stripreader/internal/analyzer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProfilesCommand() *cobra.Command {
	var profileFile string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Print the resolved analysis profiles as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := analyzer.LoadProfiles(profileFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(profiles); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&profileFile, "profile-file", "", "YAML file with additional or overridden profiles")
	return cmd
}
