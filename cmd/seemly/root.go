package main

import (
	"github.com/spf13/cobra"

	"github.com/seemly-ai/seemly/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "seemly",
	Short: "Content moderation service for user-submitted images",
	Long: `Seemly decides whether a user-submitted image is safe to display.

Each image runs through three kinds of scoring:
  - OCR text extraction followed by per-category text classification
  - keyword scanning over the extracted text
  - per-category visual moderation of the image itself

An ordered policy rule list fuses the scores into a single SAFE or
UNSAFE verdict with human-readable reasons.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "seemly.yaml", "config file path",
	)

	rootCmd.AddCommand(versionCmd)
}
