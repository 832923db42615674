package render

import "strings"

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`%`, `\%`,
	`#`, `\#`,
	`_`, `\_`,
	`&`, `\&`,
	`$`, `\$`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
	"\u2022", `$\bullet$`,
	"\u25AA", `$\blacksmallsquare$`,
)

// Escape makes free text safe for LaTeX in a single pass. Blank input and the
// literal "null" escape to "".
func Escape(s string) string {
	if isBlank(s) {
		return ""
	}
	return latexEscaper.Replace(s)
}

func escapePtr(s *string) string {
	if s == nil {
		return ""
	}
	return Escape(*s)
}

func isBlank(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || strings.EqualFold(t, "null")
}
