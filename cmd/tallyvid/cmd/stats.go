package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tallyvid/tallyvid/internal/assemble"
	"github.com/tallyvid/tallyvid/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Recompute statistics over previously extracted scores",
	Long: `Recompute batch statistics from a results file, for example after
manually correcting individual score values. Accepts either a full result
object with a "scores" field or a bare array of score objects. Totals are
recomputed as the sum of the question values.

Examples:
  tallyvid stats results.json
  tallyvid stats results.json --questions 8 --format yaml`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("cannot read scores file: %w", err)
		}
		scores, err := decodeScores(data)
		if err != nil {
			return fmt.Errorf("cannot parse scores file: %w", err)
		}

		questions, _ := cmd.Flags().GetInt("questions")
		if questions <= 0 {
			questions = GetConfig().Pipeline.QuestionAmount
		}
		format, _ := cmd.Flags().GetString("format")

		statistics := pipeline.RecomputeStatistics(scores, questions)
		payload := struct {
			Scores     any `json:"scores" yaml:"scores"`
			Statistics any `json:"statistics" yaml:"statistics"`
		}{Scores: scores, Statistics: statistics}

		var out []byte
		switch format {
		case outputFormatYAML:
			out, err = yaml.Marshal(payload)
		default:
			out, err = json.MarshalIndent(payload, "", "  ")
			out = append(out, '\n')
		}
		if err != nil {
			return fmt.Errorf("failed to serialize statistics: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// decodeScores accepts a bare score array or a result object wrapping one.
func decodeScores(data []byte) ([]assemble.Score, error) {
	var scores []assemble.Score
	if err := json.Unmarshal(data, &scores); err == nil {
		return scores, nil
	}
	var wrapped struct {
		Scores []assemble.Score `json:"scores"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Scores, nil
}

func init() {
	statsCmd.Flags().Int("questions", 0, "number of questions per booklet (default from config)")
	statsCmd.Flags().String("format", outputFormatJSON, "output format (json, yaml)")

	rootCmd.AddCommand(statsCmd)
}
