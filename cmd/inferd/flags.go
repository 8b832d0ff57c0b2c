package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/smolchat/inferd/internal/logger"
)

var (
	modelPath string
	ctxSize   int64
	threads   int64
	batchSize int64

	seed int64
	topK int64
	topP float64
	temp float64

	visionCLI   string
	visionModel string
	visionProj  string

	logLevel  string
	logFormat string
	debug     bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to GGUF model file",
			Destination: &modelPath,
		},
		&cli.IntFlag{
			Name:        "ctx-size",
			Aliases:     []string{"ctx", "c"},
			Usage:       "context window size in tokens",
			Value:       2048,
			Destination: &ctxSize,
		},
		&cli.IntFlag{
			Name:        "threads",
			Aliases:     []string{"t"},
			Usage:       "number of CPU threads",
			Value:       4,
			Destination: &threads,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Aliases:     []string{"batch"},
			Usage:       "decode batch size",
			Value:       512,
			Destination: &batchSize,
		},
	}
}

func samplingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       -1,
			Destination: &seed,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "top-k sampling parameter",
			Value:       40,
			Destination: &topK,
		},
		&cli.FloatFlag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "top-p sampling parameter",
			Value:       0.9,
			Destination: &topP,
		},
		&cli.FloatFlag{
			Name:        "temp",
			Aliases:     []string{"temperature"},
			Usage:       "sampling temperature",
			Value:       0.7,
			Destination: &temp,
		},
	}
}

func visionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vision-cli",
			Usage:       "path to the multimodal llama.cpp CLI binary",
			Destination: &visionCLI,
		},
		&cli.StringFlag{
			Name:        "vision-model",
			Usage:       "path to the multimodal GGUF model",
			Destination: &visionModel,
		},
		&cli.StringFlag{
			Name:        "vision-proj",
			Usage:       "path to the multimodal projector GGUF",
			Destination: &visionProj,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Text(os.Stderr, level)
}
