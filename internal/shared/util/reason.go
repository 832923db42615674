package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxReasonLen = 500

// SanitizeReason flattens an error into a single line of at most 500 bytes,
// cut on a rune boundary, for persisting as a user-visible failure reason.
func SanitizeReason(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, err.Error())
	msg = strings.TrimSpace(msg)
	if len(msg) > maxReasonLen {
		cut := maxReasonLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = strings.TrimSpace(msg[:cut])
	}
	if msg == "" {
		msg = "unknown error"
	}
	return msg
}
