package submissions

import (
	"context"
	"time"
)

const DefaultPollInterval = 3 * time.Second

// State is the client-facing view of a stage.
type State string

const (
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// Status is what a polling client sees.
type Status struct {
	ID            string
	Stage         Stage
	State         State
	FailureReason string
	// RetryAfter is set only while processing.
	RetryAfter time.Duration
}

// Reporter answers status and artifact queries. It never writes.
type Reporter struct {
	Repo         Repo
	PollInterval time.Duration
}

func (r *Reporter) pollInterval() time.Duration {
	if r.PollInterval > 0 {
		return r.PollInterval
	}
	return DefaultPollInterval
}

// Status loads the submission and reports its state.
func (r *Reporter) Status(ctx context.Context, id string) (Status, error) {
	s, err := r.Repo.Get(ctx, id)
	if err != nil {
		return Status{}, err
	}
	return r.StatusOf(s), nil
}

// StatusOf maps an already loaded submission to its status.
func (r *Reporter) StatusOf(s Submission) Status {
	st := Status{ID: s.ID, Stage: s.Stage}
	switch s.Stage {
	case StageFailed:
		st.State = StateFailed
		if s.FailureReason != nil {
			st.FailureReason = *s.FailureReason
		}
	case StageReady:
		st.State = StateReady
	default:
		st.State = StateProcessing
		st.RetryAfter = r.pollInterval()
	}
	return st
}

// Artifact returns the compiled PDF, *FailedError or *NotReadyError.
func (r *Reporter) Artifact(ctx context.Context, id string) ([]byte, error) {
	s, err := r.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.ArtifactOf(s)
}

// ArtifactOf is Artifact for an already loaded submission.
func (r *Reporter) ArtifactOf(s Submission) ([]byte, error) {
	switch s.Stage {
	case StageReady:
		if len(s.CompiledPDF) == 0 {
			return nil, &NotReadyError{Stage: s.Stage, RetryAfter: r.pollInterval()}
		}
		return s.CompiledPDF, nil
	case StageFailed:
		st := r.StatusOf(s)
		return nil, &FailedError{Reason: st.FailureReason}
	default:
		return nil, &NotReadyError{Stage: s.Stage, RetryAfter: r.pollInterval()}
	}
}
