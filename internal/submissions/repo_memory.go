package submissions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores submissions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Submission
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Submission),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the submission.
func (r *MemoryRepo) Create(ctx context.Context, s Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.Payload = append([]byte(nil), s.Payload...)
	r.byID[s.ID] = s
	return nil
}

// Get returns an active submission by ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok || !s.IsActive {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

// ListByUser returns the user's active submissions without blobs, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var items []Submission
	for _, s := range r.byID {
		if s.UserID != userID || !s.IsActive {
			continue
		}
		s.Payload, s.CompiledPDF, s.RawText, s.RenderedSource, s.Profile = nil, nil, nil, nil, nil
		items = append(items, s)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []Submission{}, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

// ClaimRun marks the run as started when token, stage and claim state allow it.
func (r *MemoryRepo) ClaimRun(ctx context.Context, id, runToken string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || !s.IsActive || s.RunToken != runToken || s.Stage != StageQueued || s.RunClaimedAt != nil {
		return false, nil
	}
	now := r.now()
	s.RunClaimedAt = &now
	s.UpdatedAt = now
	r.byID[id] = s
	return true, nil
}

// Advance applies u when the row is still at from.
func (r *MemoryRepo) Advance(ctx context.Context, id string, from Stage, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := u.validate(from); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if s.Stage != from {
		return ErrStageConflict
	}
	s.Stage = u.To
	if u.RawText != nil {
		s.RawText = u.RawText
	}
	if u.Profile != nil {
		s.Profile = u.Profile
	}
	if u.RenderedSource != nil {
		s.RenderedSource = u.RenderedSource
	}
	if u.CompiledPDF != nil {
		s.CompiledPDF = append([]byte(nil), u.CompiledPDF...)
	}
	if u.PageCount > 0 {
		s.PageCount = u.PageCount
	}
	s.UpdatedAt = r.now()
	r.byID[id] = s
	return nil
}

// MarkFailed moves the row from a non-terminal stage to FAILED with reason.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, from Stage, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !CanTransition(from, StageFailed) {
		return ErrInvalidTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if s.Stage != from {
		return ErrStageConflict
	}
	s.Stage = StageFailed
	s.FailureReason = &reason
	s.UpdatedAt = r.now()
	r.byID[id] = s
	return nil
}

// Deactivate soft-deletes a submission owned by userID.
func (r *MemoryRepo) Deactivate(ctx context.Context, id, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || !s.IsActive || s.UserID != userID {
		return ErrNotFound
	}
	s.IsActive = false
	s.UpdatedAt = r.now()
	r.byID[id] = s
	return nil
}

// DeactivateOlderThan soft-deletes every active submission created before cutoff.
func (r *MemoryRepo) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := r.now()
	for id, s := range r.byID {
		if s.IsActive && s.CreatedAt.Before(cutoff) {
			s.IsActive = false
			s.UpdatedAt = now
			r.byID[id] = s
			n++
		}
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
