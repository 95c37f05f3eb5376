package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tallyvid/tallyvid/internal/pipeline"
	"github.com/tallyvid/tallyvid/internal/table"
	"github.com/tallyvid/tallyvid/internal/utils"
)

// imageCmd scores a single still image, mainly for inspecting model behavior
// on one booklet photo without shooting a video.
var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Score a single booklet photo",
	Long: `Score one still image of a booklet: locate the score table, correct its
perspective and read the handwritten scores. Relevance filtering and
sharpness selection do not apply to still images.

Examples:
  tallyvid image booklet.jpg
  tallyvid image booklet.png --questions 8 --save-crop crop.png`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := utils.LoadImage(args[0])
		if err != nil {
			return fmt.Errorf("cannot load image: %w", err)
		}

		cfg := GetConfig()
		if cfg.Output.Format != outputFormatJSON && cfg.Output.Format != outputFormatYAML {
			return fmt.Errorf("invalid output format: %s (must be json or yaml)", cfg.Output.Format)
		}

		if cropPath, _ := cmd.Flags().GetString("save-crop"); cropPath != "" {
			crop, err := table.Extract(img)
			if err != nil {
				return fmt.Errorf("cannot extract table crop: %w", err)
			}
			if err := utils.SavePNG(cropPath, crop); err != nil {
				return err
			}
		}

		p, err := pipeline.NewBuilder().
			WithModelsDir(cfg.ModelsDir).
			WithThreads(cfg.Pipeline.NumThreads).
			WithIoUThreshold(cfg.Pipeline.IoUThreshold).
			WithQuestionAmount(cfg.Pipeline.QuestionAmount).
			WithNumRows(cfg.Pipeline.NumRows).
			Build()
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}
		defer p.Close()

		questions, _ := cmd.Flags().GetInt("questions")
		result, err := p.ProcessImage(img, pipeline.Options{QuestionAmount: questions})
		if errors.Is(err, table.ErrNotFound) {
			return errors.New("no score table found in the image")
		}
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}

		return writeResult(cmd, result, cfg.Output.Format, cfg.Output.File, cfg.Output.Timings)
	},
}

func init() {
	imageCmd.Flags().Int("questions", 0, "number of questions on the score table (default from config)")
	imageCmd.Flags().String("save-crop", "", "write the rectified table crop to this PNG file")

	rootCmd.AddCommand(imageCmd)
}
