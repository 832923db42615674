package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	pdfData := buildTextPDF("hello")
	docxData := buildDocx(t, "hello")
	cfbData := append(append([]byte{}, cfbMagic...), make([]byte, 504)...)

	cases := []struct {
		name      string
		data      []byte
		mediaType string
		want      Kind
		wantErr   bool
	}{
		{"pdf", pdfData, "application/pdf", KindPDF, false},
		{"pdf with params", pdfData, "Application/PDF; charset=binary", KindPDF, false},
		{"docx", docxData, MimeDOCX, KindOOXMLWord, false},
		{"doc label on zip container", docxData, MimeDOC, KindOOXMLWord, false},
		{"docx label on cfb container", cfbData, MimeDOCX, KindLegacyWord, false},
		{"doc", cfbData, MimeDOC, KindLegacyWord, false},
		{"sniffed pdf", pdfData, "", KindPDF, false},
		{"sniffed octet-stream pdf", pdfData, "application/octet-stream", KindPDF, false},
		{"zip with word body", docxData, "application/zip", KindOOXMLWord, false},
		{"plain text", []byte("hello"), "text/plain", KindUnknown, true},
		{"word label on text", []byte("hello"), MimeDOC, KindUnknown, true},
		{"empty payload", nil, "application/pdf", KindUnknown, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.data, tc.mediaType)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedInput) {
					t.Fatalf("expected ErrUnsupportedInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestTextPDF(t *testing.T) {
	text, err := Text(context.Background(), buildTextPDF("Jane Doe, jane@x.com"), MimePDF)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(text, "jane@x.com") {
		t.Fatalf("expected email in text, got %q", text)
	}
}

func TestScanPDFContent(t *testing.T) {
	text, err := scanPDFContent(buildTextPDF("Fallback (scan) works"))
	if err != nil {
		t.Fatalf("scanPDFContent: %v", err)
	}
	if text != "Fallback (scan) works" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n(Hello) Tj\n0 -14 Td\n[(Wor) -20 (ld)] TJ\nT*\n(\\101\\102) Tj\nET")
	if got := textFromContentStream(stream); got != "Hello World\nAB" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestTextDOCX(t *testing.T) {
	text, err := Text(context.Background(), buildDocx(t, "Jane Doe", "Engineer at Acme"), MimeDOCX)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "Jane Doe\nEngineer at Acme" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextZipWithoutWordBodyRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	if _, err := Text(context.Background(), buf.Bytes(), "application/zip"); !errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
}

func TestTextMalformedLegacyDoc(t *testing.T) {
	data := append(append([]byte{}, cfbMagic...), make([]byte, 100)...)
	_, err := Text(context.Background(), data, MimeDOC)
	if err == nil || errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("expected decoder error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "extract doc:") {
		t.Fatalf("expected kind prefix, got %v", err)
	}
}

func TestTextCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Text(ctx, buildTextPDF("x"), MimePDF); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStripDocxXML(t *testing.T) {
	raw := `<w:document xmlns:w="w"><w:body><w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t><w:br/><w:t>C</w:t></w:r></w:p></w:body></w:document>`
	if got := stripDocxXML(raw); got != "A\tB\nC" {
		t.Fatalf("unexpected text %q", got)
	}
}
