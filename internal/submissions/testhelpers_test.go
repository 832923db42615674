package submissions

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-pipeline/internal/extract"
)

// recordingRepo wraps MemoryRepo and keeps every stage each row passed through.
type recordingRepo struct {
	*MemoryRepo
	mu      sync.Mutex
	history map[string][]Stage
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{MemoryRepo: NewMemoryRepo(), history: map[string][]Stage{}}
}

func (r *recordingRepo) Create(ctx context.Context, s Submission) error {
	if err := r.MemoryRepo.Create(ctx, s); err != nil {
		return err
	}
	r.record(s.ID, s.Stage)
	return nil
}

func (r *recordingRepo) Advance(ctx context.Context, id string, from Stage, u Update) error {
	if err := r.MemoryRepo.Advance(ctx, id, from, u); err != nil {
		return err
	}
	r.record(id, u.To)
	return nil
}

func (r *recordingRepo) MarkFailed(ctx context.Context, id string, from Stage, reason string) error {
	if err := r.MemoryRepo.MarkFailed(ctx, id, from, reason); err != nil {
		return err
	}
	r.record(id, StageFailed)
	return nil
}

func (r *recordingRepo) record(id string, st Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[id] = append(r.history[id], st)
}

func (r *recordingRepo) stages(id string) []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stage(nil), r.history[id]...)
}

// seed stores a fresh QUEUED submission and returns it.
func seed(t *testing.T, repo Repo, id, owner string, payload []byte) Submission {
	t.Helper()
	sub := Submission{
		ID:        id,
		UserID:    owner,
		FileName:  "resume.pdf",
		MimeType:  extract.MimePDF,
		SizeBytes: int64(len(payload)),
		Payload:   payload,
		Stage:     StageQueued,
		RunToken:  "token-" + id,
		IsActive:  true,
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return sub
}

// assertMonotonic fails unless stages only moved forward one step at a time,
// with FAILED allowed once from any non-terminal stage.
func assertMonotonic(t *testing.T, stages []Stage) {
	t.Helper()
	for i := 1; i < len(stages); i++ {
		if !CanTransition(stages[i-1], stages[i]) {
			t.Fatalf("illegal transition %s -> %s in %v", stages[i-1], stages[i], stages)
		}
	}
}

// assertReasonMatchesStage checks that a failure reason exists exactly when FAILED.
func assertReasonMatchesStage(t *testing.T, s Submission) {
	t.Helper()
	hasReason := s.FailureReason != nil && *s.FailureReason != ""
	if (s.Stage == StageFailed) != hasReason {
		t.Fatalf("stage %s with failure reason %v", s.Stage, s.FailureReason)
	}
}

// buildTextPDF creates a one-page PDF with valid xref offsets; each line is
// drawn on its own row.
func buildTextPDF(lines ...string) []byte {
	var stream strings.Builder
	stream.WriteString("BT\n/F1 11 Tf\n14 TL\n72 720 Td\n")
	for _, line := range lines {
		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
		stream.WriteString("(" + escaped + ") Tj T*\n")
	}
	stream.WriteString("ET")
	content := stream.String()

	var b strings.Builder
	offsets := make([]int, 6)
	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(content)) + " >>\nstream\n" + content + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		s := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(s)) + s + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}
