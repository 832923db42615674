package submissions

import (
	"fmt"
	"time"

	"resume-pipeline/internal/profile"
)

// Stage is the persisted pipeline marker.
type Stage string

const (
	StageQueued        Stage = "QUEUED"
	StageTextExtracted Stage = "TEXT_EXTRACTED"
	StageInfoExtracted Stage = "INFO_EXTRACTED"
	StageRendered      Stage = "RENDERED"
	StageReady         Stage = "READY"
	StageFailed        Stage = "FAILED"
)

var forward = map[Stage]Stage{
	StageQueued:        StageTextExtracted,
	StageTextExtracted: StageInfoExtracted,
	StageInfoExtracted: StageRendered,
	StageRendered:      StageReady,
}

// ParseStage validates a stored stage value.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := forward[st]; ok || st == StageReady || st == StageFailed {
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageReady || s == StageFailed
}

// Next returns the forward successor of s.
func (s Stage) Next() (Stage, bool) {
	n, ok := forward[s]
	return n, ok
}

// CanTransition allows one step forward, or FAILED from any non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}

// Submission is one uploaded document and everything the pipeline derived from it.
type Submission struct {
	ID             string
	UserID         string
	FileName       string
	MimeType       string
	SizeBytes      int64
	StorageKey     string
	Payload        []byte
	RawText        *string
	Profile        *profile.Profile
	RenderedSource *string
	CompiledPDF    []byte
	PageCount      int
	Stage          Stage
	FailureReason  *string
	RunToken       string
	RunClaimedAt   *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update is the artifact written together with a forward stage change.
type Update struct {
	To             Stage
	RawText        *string
	Profile        *profile.Profile
	RenderedSource *string
	CompiledPDF    []byte
	PageCount      int
}

// validate checks the artifact matches the target stage.
func (u Update) validate(from Stage) error {
	if u.To == StageFailed || !CanTransition(from, u.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, u.To)
	}
	switch u.To {
	case StageTextExtracted:
		if u.RawText == nil {
			return fmt.Errorf("%w: raw text required", ErrInvalidTransition)
		}
	case StageInfoExtracted:
		if u.Profile == nil {
			return fmt.Errorf("%w: profile required", ErrInvalidTransition)
		}
	case StageRendered:
		if u.RenderedSource == nil {
			return fmt.Errorf("%w: rendered source required", ErrInvalidTransition)
		}
	case StageReady:
		if len(u.CompiledPDF) == 0 {
			return fmt.Errorf("%w: compiled pdf required", ErrInvalidTransition)
		}
	}
	return nil
}
