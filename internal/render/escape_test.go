package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"null", ""},
		{"NULL", ""},
		{"R&D", `R\&D`},
		{"100%", `100\%`},
		{"C#", `C\#`},
		{"snake_case", `snake\_case`},
		{"$5", `\$5`},
		{"{x}", `\{x\}`},
		{`a\b`, `a\textbackslash{}b`},
		{"~^", `\textasciitilde{}\textasciicircum{}`},
		{"• item", `$\bullet$ item`},
		{"▪ item", `$\blacksmallsquare$ item`},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, Escape(tc.in))
		})
	}
}

// escapeTokens strips every sequence Escape emits, longest first.
var escapeTokens = strings.NewReplacer(
	`$\blacksmallsquare$`, "",
	`\textasciicircum{}`, "",
	`\textasciitilde{}`, "",
	`\textbackslash{}`, "",
	`$\bullet$`, "",
	`\{`, "", `\}`, "", `\%`, "", `\#`, "", `\_`, "", `\&`, "", `\$`, "",
)

func TestEscapeLeavesNoReservedCharacters(t *testing.T) {
	inputs := []string{
		`\{}%#_&$~^`,
		`\\textbackslash{}`,
		"mixed {braces} and 50% of $money$ in C# & F#_x ~ ^ •▪",
		`}}}{{{\\\`,
	}
	for _, in := range inputs {
		out := escapeTokens.Replace(Escape(in))
		require.False(t, strings.ContainsAny(out, `\{}%#_&$~^`), "input %q left %q", in, out)
	}
}
