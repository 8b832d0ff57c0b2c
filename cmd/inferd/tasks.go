package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/smolchat/inferd/internal/logger"
	"github.com/smolchat/inferd/internal/runtime"
	"github.com/smolchat/inferd/internal/sampler"
	"github.com/smolchat/inferd/internal/service"
	"github.com/smolchat/inferd/internal/session"
	"github.com/smolchat/inferd/internal/vision"
)

var inputPath string

func inputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "input",
		Aliases:     []string{"i"},
		Usage:       "path to JSON request file (- for stdin)",
		Value:       "-",
		Destination: &inputPath,
	}
}

func readInput(v any) error {
	var r io.Reader = os.Stdin
	if inputPath != "" && inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func writeOutput(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func visionRunner(log logger.Logger) service.VisionRunner {
	if visionCLI == "" {
		return nil
	}
	return &vision.Runner{
		CLIPath:   visionCLI,
		ModelPath: visionModel,
		ProjPath:  visionProj,
		Log:       log,
	}
}

// newTextService loads the in-process model and wires the full task stack.
// The returned closer tears it down in reverse order.
func newTextService(log logger.Logger) (*service.Service, func(), error) {
	model, err := runtime.Load(runtime.Config{
		ModelPath:   modelPath,
		ContextSize: int(ctxSize),
		Threads:     int(threads),
		BatchSize:   int(batchSize),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	chain := sampler.New(sampler.Config{
		Seed: seed,
		TopK: int(topK),
		TopP: float32(topP),
		Temp: float32(temp),
	})
	sess := session.New(model, chain, log)
	svc := service.New(sess, visionRunner(log), log)

	// The session owns the model handle and releases it on Close.
	closer := func() {
		svc.Close()
		_ = sess.Close()
	}
	return svc, closer, nil
}

// newVisionService wires the task stack without loading the text model, for
// commands that only ever hit the vision CLI.
func newVisionService(log logger.Logger) (*service.Service, func(), error) {
	vis := visionRunner(log)
	if vis == nil {
		return nil, nil, fmt.Errorf("--vision-cli is required for this command")
	}
	svc := service.New(nil, vis, log)
	return svc, func() { svc.Close() }, nil
}

func personaCmd() *cli.Command {
	return &cli.Command{
		Name:  "persona",
		Usage: "Generate a one-sentence persona summary for a user profile",
		Flags: taskFlags(inputFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()

			var req struct {
				UserID     string   `json:"user_id"`
				Name       string   `json:"name"`
				Position   string   `json:"position"`
				Department string   `json:"department"`
				Language   string   `json:"language"`
				Samples    []string `json:"samples"`
			}
			if err := readInput(&req); err != nil {
				return err
			}

			svc, closer, err := newTextService(log)
			if err != nil {
				return err
			}
			defer closer()

			persona, err := svc.Persona(ctx, service.PersonaRequest{
				UserID:     req.UserID,
				Name:       req.Name,
				Position:   req.Position,
				Department: req.Department,
				Language:   req.Language,
				Samples:    req.Samples,
			})
			if err != nil {
				return err
			}
			return writeOutput(map[string]string{
				"user_id": req.UserID,
				"persona": persona,
			})
		},
	}
}

func detectCVCmd() *cli.Command {
	var images []string
	return &cli.Command{
		Name:  "detect-cv",
		Usage: "Extract structured metadata from CV page images",
		Flags: append(append(visionFlags(), loggingFlags()...),
			&cli.StringSliceFlag{
				Name:        "image",
				Usage:       "CV page image (repeatable)",
				Destination: &images,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()

			svc, closer, err := newVisionService(log)
			if err != nil {
				return err
			}
			defer closer()

			meta, err := svc.DetectCV(ctx, images)
			if err != nil {
				return err
			}
			return writeOutput(meta)
		},
	}
}

func draftCmd() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Draft an email reply matching a persona",
		Flags: taskFlags(inputFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()

			var req struct {
				Persona     string   `json:"persona"`
				Subject     string   `json:"subject"`
				Body        string   `json:"body"`
				Instruction string   `json:"instruction"`
				Images      []string `json:"images"`
			}
			if err := readInput(&req); err != nil {
				return err
			}

			svc, closer, err := newTextService(log)
			if err != nil {
				return err
			}
			defer closer()

			reply, err := svc.DraftReply(ctx, service.DraftRequest{
				Persona:     req.Persona,
				Subject:     req.Subject,
				Body:        req.Body,
				Instruction: req.Instruction,
				Images:      req.Images,
			})
			if err != nil {
				return err
			}
			return writeOutput(reply)
		},
	}
}

func classifyCmd() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify an email by urgency and priority",
		Flags: taskFlags(inputFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()

			var req struct {
				Subject string   `json:"subject"`
				Body    string   `json:"body"`
				Images  []string `json:"images"`
			}
			if err := readInput(&req); err != nil {
				return err
			}

			svc, closer, err := newTextService(log)
			if err != nil {
				return err
			}
			defer closer()

			result, err := svc.Classify(ctx, service.ClassifyRequest{
				Subject: req.Subject,
				Body:    req.Body,
				Images:  req.Images,
			})
			if err != nil {
				return err
			}
			return writeOutput(result)
		},
	}
}

// taskFlags assembles the full flag set shared by the text-model commands.
func taskFlags(extra ...cli.Flag) []cli.Flag {
	flags := commonModelFlags()
	flags = append(flags, samplingFlags()...)
	flags = append(flags, visionFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags, extra...)
	return flags
}
