package main

import (
	"github.com/spf13/cobra"
)

// AttachCLIFlags attaches command line flags to command
func AttachCLIFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().StringP("config", "c", "", "the config file to use")
	rootCmd.PersistentFlags().StringP("port", "p", "", "Port for api server to run")
	rootCmd.PersistentFlags().StringP("env", "e", "prod", "Environment.")
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Run in verbose mode")

	rootCmd.PersistentFlags().String("db.host", "localhost", "Database host")
	rootCmd.PersistentFlags().String("db.port", "5432", "Database port")
	rootCmd.PersistentFlags().String("db.name", "coverbay", "Database name")
	rootCmd.PersistentFlags().String("db.user", "postgres", "Database user")
	rootCmd.PersistentFlags().String("db.password", "", "Database password")

	rootCmd.PersistentFlags().Int("packageDepth", 1, "Directory depth used for package rollups")
	rootCmd.PersistentFlags().Bool("acceptEmptyReports", true, "Accept reports with no executable lines")
	rootCmd.PersistentFlags().Bool("archiveUploads", false, "Archive raw payloads alongside parsed reports")

	return nil
}
