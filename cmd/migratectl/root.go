package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	envName   string
	asUser    string
)

var rootCmd = &cobra.Command{
	Use:   "migratectl",
	Short: "CLI for the translation migration server",
	Long: `migratectl drives the translation migration engine: discover new
bundle versions in remote storage, preview their diffs against the live
translation store, apply them, and roll back when needed.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Migration server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&envName, "environment", "e", "", "Deployment environment (default: from MIGRATOR_ENVIRONMENT env or server default)")
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "Acting user sent to the server (default: from USER)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(migrationsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(translationsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedEnvironment returns the effective environment.
// Priority: --environment flag > MIGRATOR_ENVIRONMENT env var > unset.
func resolvedEnvironment() string {
	if envName != "" {
		return envName
	}
	return os.Getenv("MIGRATOR_ENVIRONMENT")
}

// resolvedUser returns the acting user for the X-Remote-User header.
func resolvedUser() string {
	if asUser != "" {
		return asUser
	}
	return os.Getenv("USER")
}
