package workerproc

import (
	"context"
	"errors"
	"testing"

	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/util"
)

type recordingRunner struct {
	id, token, requestID string
	calls                int
	err                  error
}

func (r *recordingRunner) Run(ctx context.Context, submissionID, runToken string) error {
	r.calls++
	r.id = submissionID
	r.token = runToken
	r.requestID = util.RequestIDFromContext(ctx)
	return r.err
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage("   "); !errors.As(err, new(ErrEmptyBody)) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, meta, err := ParseMessage("{not json"); !errors.As(err, new(ErrDecode)) || meta.BodySHA == "" {
		t.Fatalf("expected ErrDecode with meta, got %v %+v", err, meta)
	}
	_, _, err := ParseMessage(`{"runToken":"t","requestId":"r1"}`)
	var invalid ErrInvalidMessage
	if !errors.As(err, &invalid) || !errors.Is(err, queue.ErrMissingSubmissionID) || invalid.RequestID != "r1" {
		t.Fatalf("expected missing submission id, got %v", err)
	}
	if !Unrecoverable(err) {
		t.Fatalf("invalid message should be unrecoverable")
	}
}

func TestHandleMessageRunsPipeline(t *testing.T) {
	runner := &recordingRunner{}
	body := `{"submissionId":"s1","runToken":"t1","requestId":"req-9","version":1}`

	if err := HandleMessage(context.Background(), runner, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if runner.calls != 1 || runner.id != "s1" || runner.token != "t1" || runner.requestID != "req-9" {
		t.Fatalf("unexpected run %+v", runner)
	}
}

func TestHandleMessageUsesParsedContext(t *testing.T) {
	runner := &recordingRunner{}
	ctx := WithParsedMessage(context.Background(), queue.Message{SubmissionID: "s2", RunToken: "t2"})

	if err := HandleMessage(ctx, runner, "ignored"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if runner.id != "s2" {
		t.Fatalf("expected parsed message to be used, got %q", runner.id)
	}
}

func TestHandleMessageWrapsRunError(t *testing.T) {
	cause := errors.New("db down")
	runner := &recordingRunner{err: cause}

	err := HandleMessage(context.Background(), runner, `{"submissionId":"s1","runToken":"t1"}`)
	var perr ErrProcess
	if !errors.As(err, &perr) || perr.SubmissionID != "s1" || !errors.Is(err, cause) {
		t.Fatalf("expected ErrProcess wrapping cause, got %v", err)
	}
	if Unrecoverable(err) {
		t.Fatalf("process errors should be retried")
	}
}

func TestProcessAckDecisions(t *testing.T) {
	good, err := queue.EncodeMessage(queue.Message{SubmissionID: "s1", RunToken: "t1", RequestID: "req-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tests := []struct {
		name      string
		body      string
		runErr    error
		wantAck   bool
		wantCalls int
	}{
		{name: "completed", body: string(good), wantAck: true, wantCalls: 1},
		{name: "run error is redelivered", body: string(good), runErr: errors.New("db down"), wantAck: false, wantCalls: 1},
		{name: "empty body dropped", body: "  ", wantAck: true},
		{name: "bad json dropped", body: "{oops", wantAck: true},
		{name: "missing token dropped", body: `{"submissionId":"s1"}`, wantAck: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{err: tt.runErr}
			fields := map[string]any{"sqs_message_id": "m1"}
			if got := Process(context.Background(), runner, tt.body, fields); got != tt.wantAck {
				t.Fatalf("Process ack = %v, want %v", got, tt.wantAck)
			}
			if runner.calls != tt.wantCalls {
				t.Fatalf("expected %d runs, got %d", tt.wantCalls, runner.calls)
			}
			if tt.wantCalls > 0 && runner.requestID != "req-1" {
				t.Fatalf("request id not propagated: %q", runner.requestID)
			}
		})
	}
}
