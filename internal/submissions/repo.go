package submissions

import (
	"context"
	"time"
)

// Repo defines persistence operations for submissions. Reads only see active rows.
type Repo interface {
	Create(ctx context.Context, s Submission) error
	Get(ctx context.Context, id string) (Submission, error)
	// ListByUser returns metadata only, newest first; payload and artifacts are not loaded.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error)
	// ClaimRun marks the run as started. It reports false when the token does not
	// match, the row has left QUEUED, or another run already claimed it.
	ClaimRun(ctx context.Context, id, runToken string) (bool, error)
	// Advance moves the row from `from` to u.To with its artifact in one write.
	Advance(ctx context.Context, id string, from Stage, u Update) error
	MarkFailed(ctx context.Context, id string, from Stage, reason string) error
	Deactivate(ctx context.Context, id, userID string) error
	DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
