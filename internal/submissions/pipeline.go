package submissions

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"resume-pipeline/internal/profile"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/shared/util"
)

const (
	reasonMissingPayload = "missing payload"
	reasonInternal       = "internal error"

	// persistTimeout bounds stage and failure writes, which outlive the run context.
	persistTimeout = 10 * time.Second
)

// TextExtractor turns the uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// ProfileExtractor structures plain text into a profile.
type ProfileExtractor interface {
	Extract(ctx context.Context, rawText string) (profile.Profile, error)
}

// Renderer maps a profile to LaTeX source.
type Renderer interface {
	Render(p profile.Profile) (string, error)
}

// Compiler turns LaTeX source into PDF bytes.
type Compiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// Pipeline runs the extraction, structuring, rendering and compile stages for
// one submission, persisting after each.
type Pipeline struct {
	Repo     Repo
	Text     TextExtractor
	Info     ProfileExtractor
	Renderer Renderer
	Compiler Compiler
	// PageCounter is optional; a failure to count pages leaves page_count at 0.
	PageCounter func(pdf []byte) (int, error)
	Now         func() time.Time
}

type run struct {
	p       *Pipeline
	ctx     context.Context
	id      string
	stage   Stage
	started time.Time
	fields  map[string]any
}

// Run executes the whole pipeline for a claimed submission. Stage failures are
// persisted as FAILED and never returned; the only error returned is one that
// prevented the claim itself, so the message may be redelivered.
func (p *Pipeline) Run(ctx context.Context, id, runToken string) error {
	claimed, err := p.Repo.ClaimRun(ctx, id, runToken)
	if err != nil {
		return fmt.Errorf("claim run %s: %w", id, err)
	}
	base := map[string]any{
		"submission_id": id,
		"request_id":    util.RequestIDFromContext(ctx),
	}
	if !claimed {
		metrics.IncClaimSkipped()
		telemetry.Info("submission.claim_skipped", base)
		return nil
	}

	metrics.IncPipelineRun()
	r := &run{p: p, ctx: ctx, id: id, stage: StageQueued, started: p.now(), fields: base}
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("submission.panic", r.with(map[string]any{
				"error": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			}))
			r.fail("panic", errors.New(reasonInternal))
		}
	}()
	r.execute()
	return nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (r *run) execute() {
	sub, err := r.p.Repo.Get(r.ctx, r.id)
	if err != nil {
		r.fail("load", fmt.Errorf("load submission: %w", err))
		return
	}
	if len(sub.Payload) == 0 {
		r.fail("load", errors.New(reasonMissingPayload))
		return
	}

	var text string
	if !r.step("extract_text", StageTextExtracted, func() (Update, error) {
		t, err := r.p.Text.Extract(r.ctx, sub.Payload, sub.MimeType)
		text = t
		return Update{RawText: &t}, err
	}) {
		return
	}

	var prof profile.Profile
	if !r.step("extract_info", StageInfoExtracted, func() (Update, error) {
		pr, err := r.p.Info.Extract(r.ctx, text)
		prof = pr
		return Update{Profile: &pr}, err
	}) {
		return
	}

	var source string
	if !r.step("render", StageRendered, func() (Update, error) {
		src, err := r.p.Renderer.Render(prof)
		source = src
		return Update{RenderedSource: &src}, err
	}) {
		return
	}

	if !r.step("compile", StageReady, func() (Update, error) {
		pdf, err := r.p.Compiler.Compile(r.ctx, source)
		if err != nil {
			return Update{}, err
		}
		if len(pdf) == 0 {
			return Update{}, errors.New("compiler returned an empty document")
		}
		return Update{CompiledPDF: pdf, PageCount: r.p.pageCount(pdf)}, nil
	}) {
		return
	}

	metrics.IncPipelineReady()
	elapsed := r.p.now().Sub(r.started)
	metrics.ObservePipelineDuration(elapsed)
	telemetry.Info("submission.ready", r.with(map[string]any{"duration_ms": elapsed.Milliseconds()}))
}

// step runs fn and persists its artifact as stage `to`. It reports whether the
// pipeline should continue.
func (r *run) step(name string, to Stage, fn func() (Update, error)) bool {
	started := r.p.now()
	u, err := fn()
	if err != nil {
		r.fail(name, err)
		return false
	}
	u.To = to
	ctx, cancel := r.persistCtx()
	err = r.p.Repo.Advance(ctx, r.id, r.stage, u)
	cancel()
	if err != nil {
		if errors.Is(err, ErrStageConflict) || errors.Is(err, ErrNotFound) {
			telemetry.Warn("submission.stage_conflict", r.with(map[string]any{
				"stage_transition": transition(r.stage, to),
				"error":            err.Error(),
			}))
			return false
		}
		r.fail(name, fmt.Errorf("persist %s: %w", to, err))
		return false
	}
	telemetry.Info("submission.stage", r.with(map[string]any{
		"stage_transition": transition(r.stage, to),
		"duration_ms":      r.p.now().Sub(started).Milliseconds(),
	}))
	r.stage = to
	return true
}

// fail persists FAILED with a sanitized reason. Errors writing it are only logged.
func (r *run) fail(step string, cause error) {
	reason := util.SanitizeReason(cause)
	metrics.IncPipelineFailure(step)
	telemetry.Error("submission.failed", r.with(map[string]any{
		"step":             step,
		"stage_transition": transition(r.stage, StageFailed),
		"failure_reason":   reason,
		"duration_ms":      r.p.now().Sub(r.started).Milliseconds(),
	}))
	ctx, cancel := r.persistCtx()
	defer cancel()
	if err := r.p.Repo.MarkFailed(ctx, r.id, r.stage, reason); err != nil {
		telemetry.Error("submission.mark_failed_error", r.with(map[string]any{"error": err.Error()}))
	}
}

// persistCtx detaches from the run context so a shutdown or invocation
// deadline mid-stage still lands the row in a terminal stage.
func (r *run) persistCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(util.DetachWithRequestID(r.ctx), persistTimeout)
}

func (r *run) with(extra map[string]any) map[string]any {
	out := make(map[string]any, len(r.fields)+len(extra))
	for k, v := range r.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (p *Pipeline) pageCount(pdf []byte) (n int) {
	if p.PageCounter == nil {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	n, err := p.PageCounter(pdf)
	if err != nil {
		return 0
	}
	return n
}

func transition(from, to Stage) string {
	return string(from) + "->" + string(to)
}
