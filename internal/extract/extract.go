package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedInput is returned for empty payloads and media types no decoder handles.
var ErrUnsupportedInput = errors.New("unsupported or empty input")

// Extractor turns an uploaded document into plain text.
type Extractor struct{}

// Extract resolves the document kind once and runs the matching decoder.
func (Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	return Text(ctx, data, mediaType)
}

// Text is the function form of Extractor.Extract.
func Text(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind, err := Resolve(data, mediaType)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindLegacyWord:
		text, err = extractLegacyDoc(data)
	case KindOOXMLWord:
		text, err = extractDOCX(data)
	default:
		return "", ErrUnsupportedInput
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", kind, err)
	}
	return text, nil
}
