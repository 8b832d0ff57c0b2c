package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/smolchat/inferd/internal/extract"
	"github.com/smolchat/inferd/internal/logger"
	"github.com/smolchat/inferd/internal/session"
	"github.com/smolchat/inferd/internal/vision"
)

type fakeGen struct {
	calls atomic.Int32
	text  string
	max   int
	err   error
}

func (g *fakeGen) Generate(_ context.Context, req session.Request) (session.Result, error) {
	g.calls.Add(1)
	g.max = req.MaxTokens
	if g.err != nil {
		return session.Result{}, g.err
	}
	return session.Result{Text: g.text, TokensEmitted: 5, StopReason: session.StopEndOfSequence}, nil
}

type fakeVis struct {
	out    string
	err    error
	images []string
	prompt string
	opts   vision.Options
}

func (v *fakeVis) Run(_ context.Context, images []string, prompt string, opts vision.Options) (string, error) {
	v.images = images
	v.prompt = prompt
	v.opts = opts
	return v.out, v.err
}

func newTestService(gen Generator, vis VisionRunner) *Service {
	return New(gen, vis, logger.Discard())
}

func TestPersonaUsesBudgetAndCaches(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{text: "John Doe (Engineer, R&D). Preferred language: English. Formal tone. Direct style."}
	svc := newTestService(gen, nil)
	defer svc.Close()

	req := PersonaRequest{
		UserID: "u1", Name: "John Doe", Position: "Engineer",
		Department: "R&D", Language: "English",
	}

	first, err := svc.Persona(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if gen.max != 256 {
		t.Errorf("persona budget = %d, want 256", gen.max)
	}
	if first != gen.text {
		t.Errorf("persona = %q", first)
	}

	second, err := svc.Persona(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Errorf("cached persona differs: %q vs %q", second, first)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Errorf("generator called %d times, want 1 (second hit cached)", n)
	}
}

func TestPersonaFallsBackOnUnusableOutput(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{text: "```\nnothing useful\n```"}
	svc := newTestService(gen, nil)
	defer svc.Close()

	got, err := svc.Persona(context.Background(), PersonaRequest{
		UserID: "u2", Name: "Jane Roe", Position: "Manager",
		Department: "Sales", Language: "German",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "Jane Roe (Manager, Sales). Preferred language: German. Professional tone inferred from writing samples. Direct communication style."
	if got != want {
		t.Fatalf("got %q, want fallback %q", got, want)
	}
}

func TestPersonaGeneratorError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	svc := newTestService(&fakeGen{err: sentinel}, nil)
	defer svc.Close()

	_, err := svc.Persona(context.Background(), PersonaRequest{UserID: "u3", Name: "X"})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}

func TestDetectCVRunsVisionCold(t *testing.T) {
	t.Parallel()

	vis := &fakeVis{out: "```json\n{\"name\":\"Jane\",\"position\":\"Dev\",\"skills\":[\"Go\"],\"experience\":\"3 years\",\"education\":\"BSc\"}\n```"}
	svc := newTestService(&fakeGen{}, vis)
	defer svc.Close()

	got, err := svc.DetectCV(context.Background(), []string{"/tmp/cv1.png"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Jane" || len(got.Skills) != 1 {
		t.Fatalf("metadata = %+v", got)
	}
	if vis.opts.Temp != 0.3 || vis.opts.MaxTokens != 800 {
		t.Errorf("vision opts = %+v, want temp 0.3, 800 tokens", vis.opts)
	}
	if !strings.Contains(vis.prompt, "CV/resume images") {
		t.Errorf("unexpected prompt %q", vis.prompt)
	}
}

func TestDetectCVWithoutRunner(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGen{}, nil)
	defer svc.Close()

	if _, err := svc.DetectCV(context.Background(), []string{"/tmp/cv1.png"}); err == nil {
		t.Fatal("expected error without a vision runner")
	}
}

func TestDraftReplyRoutesByAttachments(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{text: `{"subject": "Re: Hi", "draft_reply": "Hello back."}`}
	vis := &fakeVis{out: `{"subject": "Re: Hi", "draft_reply": "Saw the attachment."}`}
	svc := newTestService(gen, vis)
	defer svc.Close()

	plain, err := svc.DraftReply(context.Background(), DraftRequest{Subject: "Hi", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if plain.DraftReply != "Hello back." {
		t.Fatalf("text path reply = %+v", plain)
	}
	if gen.max != 1000 {
		t.Errorf("draft budget = %d, want 1000", gen.max)
	}

	withImg, err := svc.DraftReply(context.Background(), DraftRequest{
		Subject: "Hi", Body: "b", Images: []string{"/tmp/a.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if withImg.DraftReply != "Saw the attachment." {
		t.Fatalf("vision path reply = %+v", withImg)
	}
	if vis.opts.Temp != 0.7 || vis.opts.MaxTokens != 1000 {
		t.Errorf("vision opts = %+v, want temp 0.7, 1000 tokens", vis.opts)
	}
}

func TestDraftReplyFallbackOnGarbage(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGen{text: "no json at all"}, nil)
	defer svc.Close()

	got, err := svc.DraftReply(context.Background(), DraftRequest{Subject: "Standup notes"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "Re: Standup notes" {
		t.Fatalf("fallback subject = %q", got.Subject)
	}
}

func TestClassifyClampsAndValidates(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{text: `{"category": "Spam", "confidence": 1.7}`}
	svc := newTestService(gen, nil)
	defer svc.Close()

	got, err := svc.Classify(context.Background(), ClassifyRequest{Subject: "WIN NOW", Body: "click"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != extract.CategorySpam || got.Confidence != 1.0 {
		t.Fatalf("classification = %+v", got)
	}
	if gen.max != 500 {
		t.Errorf("classify budget = %d, want 500", gen.max)
	}
}

func TestClassifyVisionPath(t *testing.T) {
	t.Parallel()

	vis := &fakeVis{out: `{"category": "Normal Follow-up", "confidence": 0.9}`}
	svc := newTestService(&fakeGen{}, vis)
	defer svc.Close()

	got, err := svc.Classify(context.Background(), ClassifyRequest{
		Subject: "s", Body: "b", Images: []string{"/tmp/p.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != extract.CategoryFollowUp {
		t.Fatalf("classification = %+v", got)
	}
	if vis.opts.Temp != 0.3 || vis.opts.MaxTokens != 500 {
		t.Errorf("vision opts = %+v, want temp 0.3, 500 tokens", vis.opts)
	}
	if !strings.Contains(vis.prompt, "Note: The email contains attachments") {
		t.Error("attachment note missing from vision prompt")
	}
}
