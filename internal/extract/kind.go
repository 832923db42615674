package extract

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePDF   = "application/pdf"
	MimeDOC   = "application/msword"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip   = "application/zip"
	mimeOctet = "application/octet-stream"
)

// Kind is the closed set of decoders a payload can be routed to.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindLegacyWord
	KindOOXMLWord
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindLegacyWord:
		return "doc"
	case KindOOXMLWord:
		return "docx"
	default:
		return "unknown"
	}
}

var (
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// Resolve picks the decoder for data. Empty or generic media types are sniffed
// from the content; Word types are routed by container rather than by label.
func Resolve(data []byte, mediaType string) (Kind, error) {
	if len(data) == 0 {
		return KindUnknown, ErrUnsupportedInput
	}
	mt := normalizeMediaType(mediaType)
	if mt == "" || mt == mimeOctet {
		mt = normalizeMediaType(mimetype.Detect(data).String())
	}

	switch mt {
	case MimePDF:
		return KindPDF, nil
	case MimeDOC, MimeDOCX:
		switch {
		case bytes.HasPrefix(data, cfbMagic):
			return KindLegacyWord, nil
		case bytes.HasPrefix(data, zipMagic):
			return KindOOXMLWord, nil
		}
	case mimeZip:
		if zipHasWordDocument(data) {
			return KindOOXMLWord, nil
		}
	}
	return KindUnknown, ErrUnsupportedInput
}

func normalizeMediaType(mediaType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
}

func zipHasWordDocument(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == docxBodyPart {
			return true
		}
	}
	return false
}
