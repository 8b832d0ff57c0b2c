package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the inferd configuration file
// (~/.config/inferd/config.yaml). Numeric fields are pointers so "not set"
// can be told apart from zero values.
type Config struct {
	ModelPath string `yaml:"model_path"`

	CtxSize   *int64 `yaml:"ctx_size"`
	Threads   *int64 `yaml:"threads"`
	BatchSize *int64 `yaml:"batch_size"`

	// Sampling defaults
	Seed *int64   `yaml:"seed"`
	TopK *int64   `yaml:"top_k"`
	TopP *float64 `yaml:"top_p"`
	Temp *float64 `yaml:"temp"`

	// Vision CLI
	VisionCLI   string `yaml:"vision_cli"`
	VisionModel string `yaml:"vision_model"`
	VisionProj  string `yaml:"vision_proj"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inferd", "config.yaml")
}

// applyConfig applies config file defaults to command variables when the
// corresponding CLI flag was not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.ModelPath != "" && !c.IsSet("model") {
		modelPath = cfg.ModelPath
	}
	if cfg.CtxSize != nil && !c.IsSet("ctx-size") {
		ctxSize = *cfg.CtxSize
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		batchSize = *cfg.BatchSize
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		topP = *cfg.TopP
	}
	if cfg.Temp != nil && !c.IsSet("temp") && !c.IsSet("temperature") {
		temp = *cfg.Temp
	}
	if cfg.VisionCLI != "" && !c.IsSet("vision-cli") {
		visionCLI = cfg.VisionCLI
	}
	if cfg.VisionModel != "" && !c.IsSet("vision-model") {
		visionModel = cfg.VisionModel
	}
	if cfg.VisionProj != "" && !c.IsSet("vision-proj") {
		visionProj = cfg.VisionProj
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't
// exist or fails to parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
