package submissions

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageQueued, StageTextExtracted, true},
		{StageTextExtracted, StageInfoExtracted, true},
		{StageInfoExtracted, StageRendered, true},
		{StageRendered, StageReady, true},
		{StageQueued, StageFailed, true},
		{StageRendered, StageFailed, true},
		{StageQueued, StageInfoExtracted, false},
		{StageRendered, StageTextExtracted, false},
		{StageReady, StageFailed, false},
		{StageFailed, StageQueued, false},
		{StageReady, StageReady, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range []Stage{StageQueued, StageTextExtracted, StageInfoExtracted, StageRendered, StageReady, StageFailed} {
		got, err := ParseStage(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStage(%s) = %s, %v", s, got, err)
		}
	}
	if _, err := ParseStage("PARSING"); err == nil {
		t.Fatalf("expected unknown stage error")
	}
}

func TestUpdateRequiresArtifact(t *testing.T) {
	text := "x"
	tests := []struct {
		name string
		from Stage
		u    Update
		ok   bool
	}{
		{name: "text", from: StageQueued, u: Update{To: StageTextExtracted, RawText: &text}, ok: true},
		{name: "text missing", from: StageQueued, u: Update{To: StageTextExtracted}},
		{name: "profile missing", from: StageTextExtracted, u: Update{To: StageInfoExtracted}},
		{name: "source missing", from: StageInfoExtracted, u: Update{To: StageRendered}},
		{name: "pdf missing", from: StageRendered, u: Update{To: StageReady}},
		{name: "failed is not an advance", from: StageQueued, u: Update{To: StageFailed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.validate(tt.from)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}
