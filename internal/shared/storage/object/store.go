package object

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Blob describes a stored object.
type Blob struct {
	Key         string
	SizeBytes   int64
	ContentType string
}

// ObjectStore archives uploaded originals and serves them back.
type ObjectStore interface {
	// Put stores r under a fresh key in the owner's namespace.
	Put(ctx context.Context, ownerID, fileName, contentType string, r io.Reader) (Blob, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SniffContentType peeks at r when contentType is empty and returns a reader
// that still yields the full stream.
func SniffContentType(contentType string, r io.Reader) (string, io.Reader, error) {
	if contentType != "" {
		return contentType, r, nil
	}
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// HeaderSafeName reduces an uploaded file name to printable ASCII so it can
// travel in object metadata and Content-Disposition headers.
func HeaderSafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "original"
	}
	return name
}
