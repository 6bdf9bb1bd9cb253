package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seemly-ai/seemly/internal/config"
	"github.com/seemly-ai/seemly/internal/imagefile"
	"github.com/seemly-ai/seemly/internal/policy"
)

var checkCmd = &cobra.Command{
	Use:   "check <image-file>",
	Short: "Moderate one local image and print the verdict",
	Long: `Run the moderation pipeline on a local image file and print the
verdict as JSON. Uses the same config and collaborators as serve.

Examples:
  seemly check photo.jpg
  seemly check --config seemly.yaml screenshot.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger := newLogger(cfg.Logging.Level)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		info, err := imagefile.Sniff(data, cfg.Limits.MaxImageBytes)
		if err != nil {
			return err
		}

		orchestrator, err := buildOrchestrator(cfg, logger)
		if err != nil {
			return err
		}

		res := orchestrator.Moderate(cmd.Context(), data)

		reasons := res.Verdict.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		out := map[string]any{
			"outcome":  string(res.Verdict.Outcome),
			"reasons":  reasons,
			"scores":   res.Signals.Scores(),
			"degraded": res.Degraded,
			"image": map[string]any{
				"format": info.Format,
				"width":  info.Width,
				"height": info.Height,
			},
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if res.Verdict.Outcome == policy.OutcomeUnsafe {
			return fmt.Errorf("image is unsafe")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
