package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/shared/util"
)

// Runner executes the pipeline for one claimed submission.
type Runner interface {
	Run(ctx context.Context, submissionID, runToken string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrInvalidMessage indicates a decoded message without a submission id or run token.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	RequestID string
	Err       error
}

func (e ErrInvalidMessage) Error() string {
	if e.Err == nil {
		return "invalid message"
	}
	return "invalid message: " + e.Err.Error()
}

func (e ErrInvalidMessage) Unwrap() error { return e.Err }

// ErrProcess indicates the run could not be claimed or started.
type ErrProcess struct {
	SubmissionID string
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process submission"
	}
	return "process submission: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Err: err}
	}
	return msg, meta, nil
}

// Unrecoverable reports whether redelivering the payload can never succeed.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		invalid ErrInvalidMessage
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &invalid)
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and runs a message payload.
func HandleMessage(ctx context.Context, runner Runner, body string) error {
	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}
	return Dispatch(ctx, runner, msg)
}

// Dispatch runs an already decoded message.
func Dispatch(ctx context.Context, runner Runner, msg queue.Message) error {
	if runner == nil {
		return errors.New("pipeline not configured")
	}
	if err := msg.Validate(); err != nil {
		return ErrInvalidMessage{RequestID: msg.RequestID, Err: err}
	}

	ctxWithRequest := util.WithRequestID(ctx, msg.RequestID)
	if err := runner.Run(ctxWithRequest, msg.SubmissionID, msg.RunToken); err != nil {
		return ErrProcess{SubmissionID: msg.SubmissionID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Process runs one delivery and reports whether it is done with: true once the
// run finished or the payload can never be processed, false when the broker
// should redeliver. fields carries transport ids into every log line.
func Process(ctx context.Context, runner Runner, body string, fields map[string]any) bool {
	if fields == nil {
		fields = map[string]any{}
	}
	metrics.IncWorkerMessage("received")

	msg, meta, err := ParseMessage(body)
	if err != nil {
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.decode_failed", fields)
		metrics.IncWorkerMessage("dropped")
		return Unrecoverable(err)
	}

	fields["submission_id"] = msg.SubmissionID
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}
	telemetry.Info("worker.submission.received", fields)

	if err := HandleMessage(WithParsedMessage(ctx, msg), runner, body); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.submission.failed", fields)
		metrics.IncWorkerMessage("failed")
		return false
	}

	telemetry.Info("worker.submission.completed", fields)
	metrics.IncWorkerMessage("completed")
	return true
}
