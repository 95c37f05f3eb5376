package config

// Config represents the complete configuration for the tallyvid application.
// It supports loading from configuration files, environment variables, and
// command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// PipelineConfig contains video processing settings.
type PipelineConfig struct {
	Stride         int     `mapstructure:"stride" yaml:"stride" json:"stride"`
	IoUThreshold   float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	QuestionAmount int     `mapstructure:"question_amount" yaml:"question_amount" json:"question_amount"`
	NumRows        int     `mapstructure:"num_rows" yaml:"num_rows" json:"num_rows"`
	NumThreads     int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	File    string `mapstructure:"file" yaml:"file" json:"file"`
	Timings bool   `mapstructure:"timings" yaml:"timings" json:"timings"`
}
