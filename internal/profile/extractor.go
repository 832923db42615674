package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-pipeline/internal/llm"
	"resume-pipeline/internal/shared/telemetry"
)

// ErrParse marks a completion reply that could not be turned into a profile.
var ErrParse = errors.New("failed to parse structured data from resume text")

// Extractor turns resume text into a Profile with one completion call.
type Extractor struct {
	LLM llm.Completer
	// Timeout bounds the completion call; zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// Extract builds the prompt, calls the completer once and decodes the reply.
func (e *Extractor) Extract(ctx context.Context, rawText string) (Profile, error) {
	if e.LLM == nil {
		return Profile{}, llm.ErrNotConfigured
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	reply, err := e.LLM.Complete(ctx, BuildPrompt(rawText))
	if err != nil {
		return Profile{}, fmt.Errorf("completion: %w", err)
	}
	return ParseReply(reply)
}

// ParseReply locates the outermost JSON object in reply and decodes it. A reply
// with no object at all yields an empty profile.
func ParseReply(reply string) (Profile, error) {
	body, ok := locateObject(reply)
	if !ok {
		telemetry.Warn("profile.no_json_object", map[string]any{"reply_chars": len(reply)})
		return Profile{}, nil
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := ValidateShape(doc); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	p.Skills = SanitizeSkills(p.Skills)
	return p, nil
}

func locateObject(reply string) ([]byte, bool) {
	first := strings.IndexByte(reply, '{')
	last := strings.LastIndexByte(reply, '}')
	if first < 0 || last <= first {
		return nil, false
	}
	return []byte(strings.TrimSpace(reply[first : last+1])), true
}
