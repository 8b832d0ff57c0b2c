// Package vision shells out to an external multimodal llama.cpp CLI for
// image-bearing tasks. The in-process runtime is text-only; images go through
// the llama-mtmd-cli binary instead.
package vision

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/smolchat/inferd/internal/logger"
)

// ErrNoImages is returned when a run is requested without any image paths.
var ErrNoImages = errors.New("vision: no images given")

// Runner invokes the multimodal CLI once per request.
type Runner struct {
	// CLIPath is the llama-mtmd-cli binary.
	CLIPath string
	// ModelPath is the main GGUF model.
	ModelPath string
	// ProjPath is the multimodal projector GGUF.
	ProjPath string

	Log logger.Logger
}

// Options are the per-run sampling knobs passed through to the CLI.
type Options struct {
	Temp      float64
	MaxTokens int
}

// Run executes the CLI against the given images and prompt and returns its
// combined output. The model's answer and any CLI chatter arrive interleaved;
// callers recover structure with the extractors, which tolerate surrounding
// noise.
func (r *Runner) Run(ctx context.Context, images []string, prompt string, opts Options) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}

	args := []string{
		"-m", r.ModelPath,
		"--mmproj", r.ProjPath,
	}
	for _, img := range images {
		args = append(args, "--image", img)
	}
	args = append(args,
		"-p", prompt,
		"--n-gpu-layers", "0",
		"--temp", strconv.FormatFloat(opts.Temp, 'g', -1, 64),
		"-n", strconv.Itoa(opts.MaxTokens),
	)

	if r.Log != nil {
		r.Log.Debug("running vision cli",
			"cli", r.CLIPath, "images", len(images), "max_tokens", opts.MaxTokens)
	}

	cmd := exec.CommandContext(ctx, r.CLIPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("vision: %s: %w", r.CLIPath, err)
	}
	return string(out), nil
}

// Version reports the CLI's version string, used at startup to verify the
// binary is runnable.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.CLIPath, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("vision: %s --version: %w", r.CLIPath, err)
	}
	return string(out), nil
}
