package submissions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/storage/object"
	"resume-pipeline/internal/shared/telemetry"
	"resume-pipeline/internal/shared/util"
)

const (
	DefaultMaxUploadBytes = 10 << 20 // 10MB
	defaultListLimit      = 10
	maxListLimit          = 100
)

var allowedExtensions = map[string]string{
	".pdf":  extract.MimePDF,
	".doc":  extract.MimeDOC,
	".docx": extract.MimeDOCX,
}

// Service is the intake and read surface for submissions.
type Service struct {
	Repo Repo
	// Store archives the original upload; nil skips archiving.
	Store    object.ObjectStore
	Queue    queue.Client
	Reporter *Reporter

	MaxUploadBytes int64
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) reporter() *Reporter {
	if s.Reporter != nil {
		return s.Reporter
	}
	return &Reporter{Repo: s.Repo}
}

// Submit validates and stores an upload, schedules its pipeline run and
// returns the new submission id without waiting for the run.
func (s *Service) Submit(ctx context.Context, ownerID, fileName, mediaType string, data []byte) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: owner id required", ErrInvalidInput)
	}
	mediaType, err := s.validateUpload(fileName, mediaType, data)
	if err != nil {
		return "", err
	}

	sub := Submission{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		FileName:  strings.TrimSpace(fileName),
		MimeType:  mediaType,
		SizeBytes: int64(len(data)),
		Payload:   data,
		Stage:     StageQueued,
		RunToken:  uuid.NewString(),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	sub.StorageKey = s.archive(ctx, sub)

	if err := s.Repo.Create(ctx, sub); err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}

	msg := queue.Message{
		SubmissionID: sub.ID,
		RunToken:     sub.RunToken,
		RequestID:    util.RequestIDFromContext(ctx),
		EnqueuedAt:   s.now().Format(time.RFC3339),
		Version:      queue.MessageVersion,
	}
	if s.Queue == nil {
		err = errors.New("no queue configured")
	} else {
		err = s.Queue.Send(ctx, msg)
	}
	if err != nil {
		reason := util.SanitizeReason(fmt.Errorf("%w: %v", ErrDispatch, err))
		if markErr := s.Repo.MarkFailed(util.DetachWithRequestID(ctx), sub.ID, StageQueued, reason); markErr != nil {
			telemetry.Error("submission.mark_failed_error", map[string]any{
				"submission_id": sub.ID,
				"error":         markErr.Error(),
			})
		}
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	telemetry.Info("submission.queued", map[string]any{
		"submission_id": sub.ID,
		"user_id":       ownerID,
		"mime_type":     sub.MimeType,
		"size_bytes":    sub.SizeBytes,
		"request_id":    msg.RequestID,
	})
	return sub.ID, nil
}

// archive copies the original into the object store. The row payload stays
// authoritative, so a failed copy only loses the archive key.
func (s *Service) archive(ctx context.Context, sub Submission) string {
	if s.Store == nil {
		return ""
	}
	blob, err := s.Store.Put(ctx, sub.UserID, sub.FileName, sub.MimeType, bytes.NewReader(sub.Payload))
	if err != nil {
		telemetry.Warn("submission.archive_failed", map[string]any{
			"submission_id": sub.ID,
			"error":         err.Error(),
		})
		return ""
	}
	return blob.Key
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// validateUpload applies the upload rules and returns the media type to store.
func (s *Service) validateUpload(fileName, mediaType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Message: "File is empty"}
	}
	if int64(len(data)) > s.maxUploadBytes() {
		return "", &ValidationError{Message: fmt.Sprintf("File size exceeds maximum limit of %dMB", s.maxUploadBytes()>>20)}
	}
	if _, err := util.SanitizeFileName(fileName); err != nil {
		return "", &ValidationError{Message: "Invalid file name"}
	}
	resolved := ResolveMediaType(fileName, mediaType, data)
	if resolved == "" {
		return "", &ValidationError{Message: "Invalid file type. Only PDF, DOC, and DOCX files are allowed"}
	}
	return resolved, nil
}

// ResolveMediaType returns the stored media type for an upload, or "" when the
// upload is not a PDF or Word document. The declared type wins, then content
// sniffing, then the file extension.
func ResolveMediaType(fileName, declared string, data []byte) string {
	if mt := allowedMediaType(declared); mt != "" {
		return mt
	}
	if len(data) > 0 {
		if mt := allowedMediaType(mimetype.Detect(data).String()); mt != "" {
			return mt
		}
	}
	if mt, ok := allowedExtensions[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return ""
}

func allowedMediaType(raw string) string {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch strings.ToLower(mt) {
	case extract.MimePDF:
		return extract.MimePDF
	case extract.MimeDOC:
		return extract.MimeDOC
	case extract.MimeDOCX:
		return extract.MimeDOCX
	default:
		return ""
	}
}

// Get returns the caller's submission, or ErrForbidden for someone else's.
func (s *Service) Get(ctx context.Context, userID, id string) (Submission, error) {
	if strings.TrimSpace(id) == "" {
		return Submission{}, fmt.Errorf("%w: submission id required", ErrInvalidInput)
	}
	sub, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.UserID != userID {
		return Submission{}, ErrForbidden
	}
	return sub, nil
}

// List returns the caller's active submissions, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Submission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Status reports the pipeline state of the caller's submission.
func (s *Service) Status(ctx context.Context, userID, id string) (Status, error) {
	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return Status{}, err
	}
	return s.reporter().StatusOf(sub), nil
}

// Artifact returns the compiled PDF of the caller's submission.
func (s *Service) Artifact(ctx context.Context, userID, id string) ([]byte, error) {
	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.reporter().ArtifactOf(sub)
}

// OpenOriginal streams the uploaded file, preferring the archived copy.
func (s *Service) OpenOriginal(ctx context.Context, userID, id string) (Submission, io.ReadCloser, error) {
	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return Submission{}, nil, err
	}
	if s.Store != nil && sub.StorageKey != "" {
		rc, err := s.Store.Open(ctx, sub.StorageKey)
		if err == nil {
			return sub, rc, nil
		}
		fields := map[string]any{"submission_id": sub.ID, "error": err.Error()}
		if errors.Is(err, object.ErrNotFound) {
			telemetry.Info("submission.archive_missing", fields)
		} else {
			telemetry.Warn("submission.archive_open_failed", fields)
		}
	}
	if len(sub.Payload) == 0 {
		return Submission{}, nil, ErrNotFound
	}
	return sub, io.NopCloser(bytes.NewReader(sub.Payload)), nil
}

// Delete soft-deletes the caller's submission.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.Repo.Deactivate(ctx, id, userID)
}
