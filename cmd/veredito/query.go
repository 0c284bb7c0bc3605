/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewtec/veredito/internal/config"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <config.yaml> [annotator]",
	Short: "Inspect submitted annotations",
	Long: `Inspect the annotation store configured for the project.

Examples:
  # List annotators with a stored annotation set
  veredito query config.yaml

  # Dump one annotator's annotations as a table
  veredito query config.yaml A3`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		annStore, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()

		if len(args) < 2 {
			annotators, err := annStore.ListAnnotators(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range annotators {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		annotations, err := annStore.Load(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		columns := []string{"sample_id", "anomaly_presence", "type_correctness", "localization_score", "grounded_reasoning", "timestamp"}
		fmt.Fprintln(out, strings.Join(columns, "\t"))
		for _, ann := range annotations {
			score, err := json.Marshal(ann.LocalizationScore)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d\t%s\n",
				ann.SampleID, ann.AnomalyPresence, ann.TypeCorrectness,
				strings.Trim(string(score), `"`), ann.GroundedReasoning, ann.Timestamp)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
