// Package service exposes the four model-backed tasks: persona generation,
// CV metadata detection, email draft replies and email classification. It
// owns prompt construction, per-task token budgets and output recovery, so
// callers see structured results and never raw model text.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/smolchat/inferd/internal/extract"
	"github.com/smolchat/inferd/internal/logger"
	"github.com/smolchat/inferd/internal/prompt"
	"github.com/smolchat/inferd/internal/session"
	"github.com/smolchat/inferd/internal/vision"
)

// Per-task generation budgets, sized for small instruction-tuned models.
const (
	personaMaxTokens  = 256
	cvMaxTokens       = 800
	draftMaxTokens    = 1000
	classifyMaxTokens = 500
)

// Vision temperatures: extraction tasks run cold, drafting keeps the text
// model's default.
const (
	extractTemp = 0.3
	draftTemp   = 0.7
)

const personaCacheTTL = time.Hour

// Generator produces text for a prompt. *session.Session satisfies it.
type Generator interface {
	Generate(ctx context.Context, req session.Request) (session.Result, error)
}

// VisionRunner produces text for a prompt plus images. *vision.Runner
// satisfies it.
type VisionRunner interface {
	Run(ctx context.Context, images []string, prompt string, opts vision.Options) (string, error)
}

// Service dispatches tasks to the text generator or the vision runner and
// recovers structured results from their output.
type Service struct {
	gen      Generator
	vis      VisionRunner
	log      logger.Logger
	personas *ttlcache.Cache[string, string]
}

// New builds a Service. vis may be nil when no vision CLI is configured;
// image-bearing requests then fail with an error.
func New(gen Generator, vis VisionRunner, log logger.Logger) *Service {
	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](personaCacheTTL),
	)
	go cache.Start()
	return &Service{gen: gen, vis: vis, log: log, personas: cache}
}

// Close stops the persona cache's expiry loop.
func (s *Service) Close() {
	s.personas.Stop()
}

// PersonaRequest is the input for persona generation.
type PersonaRequest struct {
	UserID     string
	Name       string
	Position   string
	Department string
	Language   string
	Samples    []string
}

// Persona generates (or serves from cache) the one-sentence persona summary
// for a user. The returned sentence is always usable: extraction falls back
// to a deterministic rendering of the request fields when the model output
// has no qualifying line.
func (s *Service) Persona(ctx context.Context, req PersonaRequest) (string, error) {
	id := uuid.NewString()

	if item := s.personas.Get(req.UserID); item != nil {
		s.log.Debug("persona cache hit", "request_id", id, "user_id", req.UserID)
		return item.Value(), nil
	}

	p := prompt.Persona(prompt.PersonaInput{
		Name:       req.Name,
		Position:   req.Position,
		Department: req.Department,
		Language:   req.Language,
		Samples:    req.Samples,
	})

	s.log.Info("generating persona", "request_id", id, "user_id", req.UserID)
	res, err := s.gen.Generate(ctx, session.Request{Prompt: p, MaxTokens: personaMaxTokens})
	if err != nil {
		return "", fmt.Errorf("persona: %w", err)
	}
	s.log.Debug("persona generated",
		"request_id", id, "tokens", res.TokensEmitted, "stop", res.StopReason.String())

	persona := extract.Persona(res.Text, req.Name, extract.PersonaFallback{
		Name:       req.Name,
		Position:   req.Position,
		Department: req.Department,
		Language:   req.Language,
	})
	s.personas.Set(req.UserID, persona, ttlcache.DefaultTTL)
	return persona, nil
}

// DetectCV extracts CV metadata from resume page images via the vision
// runner.
func (s *Service) DetectCV(ctx context.Context, images []string) (extract.CVMetadata, error) {
	id := uuid.NewString()
	if s.vis == nil {
		return extract.CVMetadata{}, fmt.Errorf("detect cv: no vision runner configured")
	}

	s.log.Info("detecting cv", "request_id", id, "images", len(images))
	out, err := s.vis.Run(ctx, images, prompt.CVDetection(), vision.Options{
		Temp:      extractTemp,
		MaxTokens: cvMaxTokens,
	})
	if err != nil {
		return extract.CVMetadata{}, fmt.Errorf("detect cv: %w", err)
	}
	return extract.ParseCVMetadata(out), nil
}

// DraftRequest is the input for email draft generation.
type DraftRequest struct {
	Persona     string
	Subject     string
	Body        string
	Instruction string
	Images      []string
}

// DraftReply drafts an email reply. Requests with attachment images go
// through the vision runner; text-only requests use the in-process model.
// Parse failures degrade to a fallback built from the request subject.
func (s *Service) DraftReply(ctx context.Context, req DraftRequest) (extract.DraftReply, error) {
	id := uuid.NewString()
	p := prompt.DraftReply(req.Persona, req.Subject, req.Body, req.Instruction, len(req.Images) > 0)

	var raw string
	if len(req.Images) > 0 {
		if s.vis == nil {
			return extract.DraftReply{}, fmt.Errorf("draft reply: no vision runner configured")
		}
		s.log.Info("drafting reply with vision", "request_id", id, "images", len(req.Images))
		out, err := s.vis.Run(ctx, req.Images, p, vision.Options{
			Temp:      draftTemp,
			MaxTokens: draftMaxTokens,
		})
		if err != nil {
			return extract.DraftReply{}, fmt.Errorf("draft reply: %w", err)
		}
		raw = out
	} else {
		s.log.Info("drafting reply", "request_id", id)
		res, err := s.gen.Generate(ctx, session.Request{Prompt: p, MaxTokens: draftMaxTokens})
		if err != nil {
			return extract.DraftReply{}, fmt.Errorf("draft reply: %w", err)
		}
		raw = res.Text
	}

	return extract.ParseDraftReply(raw, req.Subject), nil
}

// ClassifyRequest is the input for email classification.
type ClassifyRequest struct {
	Subject string
	Body    string
	Images  []string
}

// Classify triages an email into the closed category set. The result's
// category is always a member of the set and its confidence always lies in
// [0, 1].
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (extract.Classification, error) {
	id := uuid.NewString()
	p := prompt.Classification(req.Subject, req.Body, len(req.Images) > 0)

	var raw string
	if len(req.Images) > 0 {
		if s.vis == nil {
			return extract.Classification{}, fmt.Errorf("classify: no vision runner configured")
		}
		s.log.Info("classifying with vision", "request_id", id, "images", len(req.Images))
		out, err := s.vis.Run(ctx, req.Images, p, vision.Options{
			Temp:      extractTemp,
			MaxTokens: classifyMaxTokens,
		})
		if err != nil {
			return extract.Classification{}, fmt.Errorf("classify: %w", err)
		}
		raw = out
	} else {
		s.log.Info("classifying", "request_id", id)
		res, err := s.gen.Generate(ctx, session.Request{Prompt: p, MaxTokens: classifyMaxTokens})
		if err != nil {
			return extract.Classification{}, fmt.Errorf("classify: %w", err)
		}
		raw = res.Text
	}

	return extract.ParseClassification(raw), nil
}
