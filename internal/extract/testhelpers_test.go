package extract

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"testing"
	"unicode/utf16"
)

// buildTextPDF creates a one-page PDF with valid xref offsets showing text in Helvetica.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

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
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(padOffset(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func padOffset(n int) string {
	s := strconv.Itoa(n)
	return strings.Repeat("0", 10-len(s)) + s
}

// buildDocx zips a minimal word package whose body has one paragraph per entry.
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/document.xml":   `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type wordPiece struct {
	text       string
	compressed bool
}

// buildWordStreams lays out a WordDocument stream (FIB followed by piece text)
// and a table stream holding a CLX for the pieces.
func buildWordStreams(useTable1 bool, pieces ...wordPiece) (word, table []byte) {
	const (
		csw       = 14
		cslw      = 22
		cbRgFcLcb = 93
	)
	fibLen := fibBaseSize + 2 + csw*2 + 2 + cslw*4 + 2 + cbRgFcLcb*8
	word = make([]byte, fibLen)
	binary.LittleEndian.PutUint16(word[0:], fibIdent)
	if useTable1 {
		binary.LittleEndian.PutUint16(word[0x0A:], fibFlagWhichTblStm)
	}
	pos := fibBaseSize
	binary.LittleEndian.PutUint16(word[pos:], csw)
	pos += 2 + csw*2
	binary.LittleEndian.PutUint16(word[pos:], cslw)
	rgLw := pos + 2
	pos = rgLw + cslw*4
	binary.LittleEndian.PutUint16(word[pos:], cbRgFcLcb)
	pairOff := pos + 2 + clxPairIndex*8

	var cps []uint32
	var fcs []uint32
	cp := uint32(0)
	for _, p := range pieces {
		cps = append(cps, cp)
		if p.compressed {
			fcs = append(fcs, uint32(len(word))*2|fcCompressedBit)
			word = append(word, []byte(p.text)...)
			cp += uint32(len(p.text))
			continue
		}
		fcs = append(fcs, uint32(len(word)))
		units := utf16.Encode([]rune(p.text))
		for _, u := range units {
			word = binary.LittleEndian.AppendUint16(word, u)
		}
		cp += uint32(len(units))
	}
	cps = append(cps, cp)
	binary.LittleEndian.PutUint32(word[rgLw+12:], cp)

	var plc []byte
	for _, c := range cps {
		plc = binary.LittleEndian.AppendUint32(plc, c)
	}
	for _, fc := range fcs {
		plc = append(plc, 0, 0)
		plc = binary.LittleEndian.AppendUint32(plc, fc)
		plc = append(plc, 0, 0)
	}

	// a Prc ahead of the Pcdt exercises the skip path
	clx := []byte{clxtPrc, 2, 0, 0xAA, 0xBB, clxtPcdt}
	clx = binary.LittleEndian.AppendUint32(clx, uint32(len(plc)))
	clx = append(clx, plc...)

	table = append([]byte("padding!"), clx...)
	binary.LittleEndian.PutUint32(word[pairOff:], 8)
	binary.LittleEndian.PutUint32(word[pairOff+4:], uint32(len(clx)))
	return word, table
}
