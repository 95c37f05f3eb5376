package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tallyvid/tallyvid/internal/config"
	"github.com/tallyvid/tallyvid/internal/pipeline"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
)

// videoCmd represents the video command.
var videoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Process a video and extract booklet scores",
	Long: `Process a video of exam booklets: sample frames, select the sharpest
frame per booklet, locate the score table and read the handwritten scores.

By default every N-th frame is sampled (--stride) and frames showing a score
table are grouped per booklet. With --timestamps the listed positions (in
milliseconds) are decoded directly and relevance filtering is skipped.

Examples:
  tallyvid video exams.mp4
  tallyvid video exams.mp4 --questions 8 --stride 10
  tallyvid video exams.mp4 --timestamps 1500,6200,11800
  tallyvid video exams.mp4 --output results.json --timings`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		videoPath := args[0]
		if _, err := os.Stat(videoPath); err != nil {
			return fmt.Errorf("cannot access video file: %w", err)
		}

		cfg := GetConfig()
		if cfg.Output.Format != outputFormatJSON && cfg.Output.Format != outputFormatYAML {
			return fmt.Errorf("invalid output format: %s (must be json or yaml)", cfg.Output.Format)
		}

		timestamps, err := cmd.Flags().GetInt64Slice("timestamps")
		if err != nil {
			return err
		}
		noProgress, _ := cmd.Flags().GetBool("no-progress")

		p, err := pipeline.NewBuilder().
			WithModelsDir(cfg.ModelsDir).
			WithThreads(cfg.Pipeline.NumThreads).
			WithStride(cfg.Pipeline.Stride).
			WithIoUThreshold(cfg.Pipeline.IoUThreshold).
			WithQuestionAmount(cfg.Pipeline.QuestionAmount).
			WithNumRows(cfg.Pipeline.NumRows).
			Build()
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline: %w", err)
		}
		defer p.Close()

		opts := pipeline.Options{TimestampsMS: timestamps}
		if !noProgress {
			opts.Progress = newFrameProgress()
		}

		result, err := p.Process(cmd.Context(), videoPath, opts)
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}

		return writeResult(cmd, result, cfg.Output.Format, cfg.Output.File, cfg.Output.Timings)
	},
}

// newFrameProgress returns a ProgressFunc rendering a terminal progress bar.
// The bar is created on the first callback, when the frame count is known; a
// container without a frame count gets a spinner.
func newFrameProgress() pipeline.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(frameIndex int, frameCount int64) {
		if bar == nil {
			total := frameCount
			if total <= 0 {
				total = -1
			}
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetDescription("sampling frames"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionShowCount(),
			)
		}
		_ = bar.Set(frameIndex + 1)
	}
}

// writeResult serializes the result to the configured format and sink.
func writeResult(cmd *cobra.Command, result *pipeline.Result, format, file string, withTimings bool) error {
	payload := any(result)
	if !withTimings {
		payload = struct {
			Scores     any `json:"scores" yaml:"scores"`
			Statistics any `json:"statistics" yaml:"statistics"`
		}{Scores: result.Scores, Statistics: result.Statistics}
	}

	var out []byte
	var err error
	switch format {
	case outputFormatYAML:
		out, err = yaml.Marshal(payload)
	default:
		out, err = json.MarshalIndent(payload, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	if file == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(file, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	defaults := config.DefaultConfig()

	videoCmd.Flags().Int("stride", defaults.Pipeline.Stride, "sample every N-th frame")
	videoCmd.Flags().Float64("iou-threshold", defaults.Pipeline.IoUThreshold, "IoU threshold for detection NMS")
	videoCmd.Flags().Int("questions", defaults.Pipeline.QuestionAmount, "number of questions on the score table")
	videoCmd.Flags().Int("num-rows", defaults.Pipeline.NumRows, "score table rows including the total row")
	videoCmd.Flags().Int("threads", defaults.Pipeline.NumThreads, "intra-op threads per model session")
	videoCmd.Flags().Int64Slice("timestamps", nil, "millisecond positions to decode instead of sampling")
	videoCmd.Flags().String("format", defaults.Output.Format, "output format (json, yaml)")
	videoCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	videoCmd.Flags().Bool("timings", false, "include per-stage timings in the output")
	videoCmd.Flags().Bool("no-progress", false, "disable the progress bar")

	_ = viper.BindPFlag("pipeline.stride", videoCmd.Flags().Lookup("stride"))
	_ = viper.BindPFlag("pipeline.iou_threshold", videoCmd.Flags().Lookup("iou-threshold"))
	_ = viper.BindPFlag("pipeline.question_amount", videoCmd.Flags().Lookup("questions"))
	_ = viper.BindPFlag("pipeline.num_rows", videoCmd.Flags().Lookup("num-rows"))
	_ = viper.BindPFlag("pipeline.num_threads", videoCmd.Flags().Lookup("threads"))
	_ = viper.BindPFlag("output.format", videoCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output.file", videoCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.timings", videoCmd.Flags().Lookup("timings"))

	rootCmd.AddCommand(videoCmd)
}
