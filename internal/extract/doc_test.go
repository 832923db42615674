package extract

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestDecodeWordStreams(t *testing.T) {
	cases := []struct {
		name      string
		useTable1 bool
		pieces    []wordPiece
		want      string
	}{
		{
			name:   "unicode piece",
			pieces: []wordPiece{{text: "Jane Doe\rjane@x.com\r"}},
			want:   "Jane Doe\njane@x.com",
		},
		{
			name:      "compressed and unicode pieces from 1Table",
			useTable1: true,
			pieces:    []wordPiece{{text: "Caf\xe9 ", compressed: true}, {text: "Zoë"}},
			want:      "Café Zoë",
		},
		{
			name:   "field codes dropped",
			pieces: []wordPiece{{text: "See \x13 HYPERLINK \"x\" \x14site\x15 now"}},
			want:   "See site now",
		},
		{
			name:   "cell marks become tabs",
			pieces: []wordPiece{{text: "a\x07b\x07"}},
			want:   "a\tb",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			word, table := buildWordStreams(tc.useTable1, tc.pieces...)
			var t0, t1 []byte
			if tc.useTable1 {
				t1 = table
			} else {
				t0 = table
			}
			got, err := decodeWordStreams(word, t0, t1)
			if err != nil {
				t.Fatalf("decodeWordStreams: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeWordStreamsErrors(t *testing.T) {
	word, table := buildWordStreams(false, wordPiece{text: "hello"})

	encrypted := append([]byte{}, word...)
	binary.LittleEndian.PutUint16(encrypted[0x0A:], fibFlagEncrypted)

	badSig := append([]byte{}, word...)
	badSig[0] = 0

	cases := map[string]func() error{
		"bad signature": func() error { _, err := decodeWordStreams(badSig, table, nil); return err },
		"wrong table":   func() error { _, err := decodeWordStreams(word, nil, table); return err },
		"truncated clx": func() error { _, err := decodeWordStreams(word, table[:12], nil); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, errMalformedDoc) {
				t.Fatalf("expected errMalformedDoc, got %v", err)
			}
		})
	}

	if _, err := decodeWordStreams(encrypted, table, nil); err == nil || errors.Is(err, errMalformedDoc) {
		t.Fatalf("expected encryption error, got %v", err)
	}
}
