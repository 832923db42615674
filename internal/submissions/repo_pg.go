package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-pipeline/internal/profile"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new submission together with its payload.
func (r *PGRepo) Create(ctx context.Context, s Submission) error {
	const query = `
INSERT INTO submissions (
	id, user_id, original_filename, mime_type, size_bytes, storage_key, payload,
	stage, run_token, is_active, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.FileName,
		s.MimeType,
		s.SizeBytes,
		nullString(s.StorageKey),
		s.Payload,
		string(s.Stage),
		s.RunToken,
		s.IsActive,
		createdAt,
	)
	return err
}

// Get returns an active submission by ID with all artifacts.
func (r *PGRepo) Get(ctx context.Context, id string) (Submission, error) {
	const query = `
SELECT id, user_id, original_filename, mime_type, size_bytes, storage_key, payload,
       raw_text, profile, rendered_source, compiled_pdf, page_count, stage, failure_reason,
       run_token, run_claimed_at, is_active, created_at, updated_at
FROM submissions
WHERE id = $1 AND is_active
LIMIT 1`
	var s Submission
	var storageKey, rawText, profileJSON, rendered, failure sql.NullString
	var stage string
	var claimedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.FileName,
		&s.MimeType,
		&s.SizeBytes,
		&storageKey,
		&s.Payload,
		&rawText,
		&profileJSON,
		&rendered,
		&s.CompiledPDF,
		&s.PageCount,
		&stage,
		&failure,
		&s.RunToken,
		&claimedAt,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}

	if s.Stage, err = ParseStage(stage); err != nil {
		return Submission{}, err
	}
	s.StorageKey = storageKey.String
	s.RawText = stringPtr(rawText)
	s.RenderedSource = stringPtr(rendered)
	s.FailureReason = stringPtr(failure)
	if claimedAt.Valid {
		t := claimedAt.Time
		s.RunClaimedAt = &t
	}
	if profileJSON.Valid && profileJSON.String != "" {
		var p profile.Profile
		if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
			return Submission{}, fmt.Errorf("decode profile: %w", err)
		}
		s.Profile = &p
	}
	return s, nil
}

// ListByUser returns submission metadata for a user, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	const query = `
SELECT id, user_id, original_filename, mime_type, size_bytes, page_count, stage, failure_reason,
       is_active, created_at, updated_at
FROM submissions
WHERE user_id = $1 AND is_active
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Submission{}
	for rows.Next() {
		var s Submission
		var stage string
		var failure sql.NullString
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.FileName,
			&s.MimeType,
			&s.SizeBytes,
			&s.PageCount,
			&stage,
			&failure,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if s.Stage, err = ParseStage(stage); err != nil {
			return nil, err
		}
		s.FailureReason = stringPtr(failure)
		items = append(items, s)
	}
	return items, rows.Err()
}

// ClaimRun stamps run_claimed_at once for the matching token.
func (r *PGRepo) ClaimRun(ctx context.Context, id, runToken string) (bool, error) {
	const query = `
UPDATE submissions
SET run_claimed_at = NOW(), updated_at = NOW()
WHERE id = $1 AND run_token = $2 AND stage = $3 AND run_claimed_at IS NULL AND is_active`
	res, err := r.DB.ExecContext(ctx, query, id, runToken, string(StageQueued))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Advance writes the stage and its artifact in one guarded statement.
func (r *PGRepo) Advance(ctx context.Context, id string, from Stage, u Update) error {
	if err := u.validate(from); err != nil {
		return err
	}
	const query = `
UPDATE submissions
SET stage = $3,
    raw_text = COALESCE($4, raw_text),
    profile = COALESCE($5::jsonb, profile),
    rendered_source = COALESCE($6, rendered_source),
    compiled_pdf = COALESCE($7, compiled_pdf),
    page_count = GREATEST(page_count, $8),
    updated_at = NOW()
WHERE id = $1 AND stage = $2`
	var profileJSON any
	if u.Profile != nil {
		b, err := json.Marshal(u.Profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		profileJSON = string(b)
	}
	var pdf any
	if u.CompiledPDF != nil {
		pdf = u.CompiledPDF
	}
	res, err := r.DB.ExecContext(ctx, query,
		id,
		string(from),
		string(u.To),
		nullableString(u.RawText),
		profileJSON,
		nullableString(u.RenderedSource),
		pdf,
		u.PageCount,
	)
	if err != nil {
		return err
	}
	return r.expectOneRow(ctx, res, id)
}

// MarkFailed moves the row to FAILED with reason when it is still at from.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, from Stage, reason string) error {
	if !CanTransition(from, StageFailed) {
		return ErrInvalidTransition
	}
	const query = `
UPDATE submissions
SET stage = $3, failure_reason = $4, updated_at = NOW()
WHERE id = $1 AND stage = $2`
	res, err := r.DB.ExecContext(ctx, query, id, string(from), string(StageFailed), reason)
	if err != nil {
		return err
	}
	return r.expectOneRow(ctx, res, id)
}

// expectOneRow distinguishes a missing row from a lost stage guard.
func (r *PGRepo) expectOneRow(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStageConflict
}

// Deactivate soft-deletes a submission owned by userID.
func (r *PGRepo) Deactivate(ctx context.Context, id, userID string) error {
	const query = `
UPDATE submissions
SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND is_active`
	res, err := r.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateOlderThan soft-deletes active submissions created before cutoff.
func (r *PGRepo) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
UPDATE submissions
SET is_active = FALSE, updated_at = NOW()
WHERE is_active AND created_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

var _ Repo = (*PGRepo)(nil)
