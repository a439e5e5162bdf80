package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triador",
	Short: "Triage a folder of images into categories with an adaptive classifier",
	Long: strings.TrimSpace(`
Review one unsorted image at a time, get per-category confidence scores,
queue category assignments, undo mistakes, and commit the batch: files move
into their category folders and the classifier retrains on the newly labeled
images.
    `),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "triador.yaml", "Config file")
	rootCmd.MarkPersistentFlagFilename("config")
}
