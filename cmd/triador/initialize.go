package main

import (
	"github.com/spf13/cobra"
)

// initCmd trains the classifier from the already-sorted category folders
// without starting the server.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Train the classifier from already-sorted category folders",
	Long: `Scans every category folder in the working directory, hashes the contained
images and trains the classifier from scratch when the hash ledger is empty
or stale. Running it twice with no filesystem changes trains at most once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		engine, _, _, cleanup, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		return engine.Initialize(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
