package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

const (
	fibIdent           = 0xA5EC
	fibFlagEncrypted   = 0x0100
	fibFlagWhichTblStm = 0x0200
	fibBaseSize        = 32
	// index of the fcClx/lcbClx pair in FibRgFcLcb97
	clxPairIndex = 33

	clxtPrc  = 0x01
	clxtPcdt = 0x02

	fcCompressedBit = 0x40000000
	fcMask          = 0x3FFFFFFF
)

var errMalformedDoc = errors.New("malformed word document")

func extractLegacyDoc(data []byte) (string, error) {
	r, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open cfb: %w", err)
	}

	var word, table0, table1 []byte
	for entry, nerr := r.Next(); nerr == nil; entry, nerr = r.Next() {
		var dst *[]byte
		switch entry.Name {
		case "WordDocument":
			dst = &word
		case "0Table":
			dst = &table0
		case "1Table":
			dst = &table1
		default:
			continue
		}
		b, err := io.ReadAll(entry)
		if err != nil {
			return "", fmt.Errorf("read %s stream: %w", entry.Name, err)
		}
		*dst = b
	}
	if word == nil {
		return "", fmt.Errorf("%w: WordDocument stream not found", errMalformedDoc)
	}
	return decodeWordStreams(word, table0, table1)
}

type piece struct {
	cpStart, cpEnd uint32
	fc             uint32
	compressed     bool
}

// decodeWordStreams reads the FIB, locates the piece table in the table stream
// it selects and concatenates the main document text.
func decodeWordStreams(word, table0, table1 []byte) (string, error) {
	u16 := func(b []byte, off int) (uint16, bool) {
		if off < 0 || off+2 > len(b) {
			return 0, false
		}
		return binary.LittleEndian.Uint16(b[off:]), true
	}
	u32 := func(b []byte, off int) (uint32, bool) {
		if off < 0 || off+4 > len(b) {
			return 0, false
		}
		return binary.LittleEndian.Uint32(b[off:]), true
	}

	ident, ok := u16(word, 0)
	if !ok || ident != fibIdent {
		return "", fmt.Errorf("%w: bad FIB signature", errMalformedDoc)
	}
	flags, _ := u16(word, 0x0A)
	if flags&fibFlagEncrypted != 0 {
		return "", errors.New("encrypted word documents are not supported")
	}
	table := table0
	if flags&fibFlagWhichTblStm != 0 {
		table = table1
	}
	if len(table) == 0 {
		return "", fmt.Errorf("%w: table stream missing", errMalformedDoc)
	}

	pos := fibBaseSize
	csw, ok := u16(word, pos)
	if !ok {
		return "", fmt.Errorf("%w: truncated FIB", errMalformedDoc)
	}
	pos += 2 + int(csw)*2
	cslw, ok := u16(word, pos)
	if !ok {
		return "", fmt.Errorf("%w: truncated FIB", errMalformedDoc)
	}
	rgLw := pos + 2
	var ccpText uint32
	if cslw >= 4 {
		ccpText, _ = u32(word, rgLw+12)
	}
	pos = rgLw + int(cslw)*4
	cbRgFcLcb, ok := u16(word, pos)
	if !ok || int(cbRgFcLcb) <= clxPairIndex {
		return "", fmt.Errorf("%w: FIB has no piece table reference", errMalformedDoc)
	}
	pairOff := pos + 2 + clxPairIndex*8
	fcClx, ok1 := u32(word, pairOff)
	lcbClx, ok2 := u32(word, pairOff+4)
	if !ok1 || !ok2 || lcbClx == 0 || uint64(fcClx)+uint64(lcbClx) > uint64(len(table)) {
		return "", fmt.Errorf("%w: piece table out of range", errMalformedDoc)
	}

	pieces, err := parseClx(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	remaining := ccpText
	for _, p := range pieces {
		if p.cpEnd <= p.cpStart {
			continue
		}
		count := p.cpEnd - p.cpStart
		if ccpText > 0 {
			if remaining == 0 {
				break
			}
			if count > remaining {
				count = remaining
			}
			remaining -= count
		}
		text, err := decodePiece(word, p, count)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return cleanWordText(sb.String()), nil
}

func parseClx(clx []byte) ([]piece, error) {
	for i := 0; i < len(clx); {
		switch clx[i] {
		case clxtPrc:
			if i+3 > len(clx) {
				return nil, fmt.Errorf("%w: truncated Prc", errMalformedDoc)
			}
			cb := int(int16(binary.LittleEndian.Uint16(clx[i+1:])))
			if cb < 0 {
				return nil, fmt.Errorf("%w: negative Prc size", errMalformedDoc)
			}
			i += 3 + cb
		case clxtPcdt:
			if i+5 > len(clx) {
				return nil, fmt.Errorf("%w: truncated Pcdt", errMalformedDoc)
			}
			lcb := int(binary.LittleEndian.Uint32(clx[i+1:]))
			start := i + 5
			if lcb < 16 || start+lcb > len(clx) {
				return nil, fmt.Errorf("%w: PlcPcd out of range", errMalformedDoc)
			}
			return parsePlcPcd(clx[start : start+lcb])
		default:
			return nil, fmt.Errorf("%w: unexpected clxt 0x%02x", errMalformedDoc, clx[i])
		}
	}
	return nil, fmt.Errorf("%w: no piece table", errMalformedDoc)
}

// parsePlcPcd splits a PlcPcd into n+1 character positions followed by n 8-byte piece descriptors.
func parsePlcPcd(plc []byte) ([]piece, error) {
	if (len(plc)-4)%12 != 0 {
		return nil, fmt.Errorf("%w: PlcPcd size %d", errMalformedDoc, len(plc))
	}
	n := (len(plc) - 4) / 12
	pcdBase := 4 * (n + 1)
	out := make([]piece, 0, n)
	for k := 0; k < n; k++ {
		raw := binary.LittleEndian.Uint32(plc[pcdBase+8*k+2:])
		out = append(out, piece{
			cpStart:    binary.LittleEndian.Uint32(plc[4*k:]),
			cpEnd:      binary.LittleEndian.Uint32(plc[4*(k+1):]),
			fc:         raw & fcMask,
			compressed: raw&fcCompressedBit != 0,
		})
	}
	return out, nil
}

func decodePiece(word []byte, p piece, count uint32) (string, error) {
	if p.compressed {
		off := uint64(p.fc / 2)
		end := off + uint64(count)
		if end > uint64(len(word)) {
			return "", fmt.Errorf("%w: piece beyond stream", errMalformedDoc)
		}
		b, err := charmap.Windows1252.NewDecoder().Bytes(word[off:end])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	off := uint64(p.fc)
	end := off + 2*uint64(count)
	if end > uint64(len(word)) {
		return "", fmt.Errorf("%w: piece beyond stream", errMalformedDoc)
	}
	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(word[off+2*uint64(i):])
	}
	return string(utf16.Decode(units)), nil
}

// cleanWordText maps Word control characters to whitespace and drops field codes,
// keeping field results.
func cleanWordText(s string) string {
	var sb strings.Builder
	var inCode []bool
	for _, r := range s {
		switch r {
		case 0x13:
			inCode = append(inCode, true)
			continue
		case 0x14:
			if len(inCode) > 0 {
				inCode[len(inCode)-1] = false
			}
			continue
		case 0x15:
			if len(inCode) > 0 {
				inCode = inCode[:len(inCode)-1]
			}
			continue
		}
		if len(inCode) > 0 && inCode[len(inCode)-1] {
			continue
		}
		switch {
		case r == '\r', r == 0x0B, r == 0x0C:
			sb.WriteByte('\n')
		case r == 0x07:
			sb.WriteByte('\t')
		case r == '\t', r == '\n':
			sb.WriteRune(r)
		case r < 0x20:
		default:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
