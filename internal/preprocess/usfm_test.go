package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const alignedTitus = `\id TIT
\usfm 3.0
\c 1
\p
\v 1 \zaln-s |x-strong="G39720" x-occurrence="1"\*\w Paul|x-occurrence="1"\w*\zaln-e\*, a servant of God.
\q1
\v 2 \k-s | x-tw="rc://*/tw/dict/bible/kt/hope"\*\w in|x-occurrence="1"\w* hope\k-e\* of eternal life.
`

func TestCleanUSFMStripsAlignment(t *testing.T) {
	out, report := CleanUSFM("tit", alignedTitus)
	assert.Empty(t, report.Errors)
	assert.Contains(t, out, "\\v 1 Paul, a servant of God.\n")
	assert.Contains(t, out, "\\q1\n")
	assert.Contains(t, out, "\\v 2 in hope of eternal life.\n")
	for _, token := range []string{`\w`, `\k-s`, `\k-e`, `\z`} {
		assert.NotContains(t, out, token)
	}
}

func TestCleanUSFMIdempotent(t *testing.T) {
	inputs := []string{
		alignedTitus,
		"\\id GEN\n\\c 1\n\\p\n\\v 1 \\w In|strong=\"H1\"\\w* the beginning\n\n\\v 2 more\n",
		"\\id JHN\n\\c 1\n\\qMissing space\n\\v 1 text\n",
		"\\id MAT\n\\c 1\n\\v 1 text\n",
	}
	for _, in := range inputs {
		once, _ := CleanUSFM(strings.Fields(in)[1], in)
		twice, _ := CleanUSFM(strings.Fields(in)[1], once)
		assert.Equal(t, once, twice, in)
	}
}

func TestCleanUSFMReports(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		errors []string
		warns  []string
	}{
		{
			name:   "merge conflict",
			text:   "\\id GEN\n<<<<<<< HEAD\n\\v 1 a\n",
			errors: []string{"GEN - There appears to be 1 unresolved conflicts in USFM file (See '<<<<<<<')"},
		},
		{
			name:  "doubled space",
			text:  "\\id GEN\n\\v 1 a  b\n",
			warns: []string{"GEN - One unusual '␣␣' in USFM file"},
		},
		{
			name:   "bad q marker",
			text:   "\\id GEN\n\\qx\n",
			errors: []string{"GEN - 1 badly formed \\q markers"},
		},
		{
			name:  "missing usfm 3 line",
			text:  "\\id GEN\n\\v 1 \\k-s | x-tw=\"a\"\\*\\w a|b\\w*\\k-e\\*\n",
			warns: []string{"GEN - '\\usfm 3.0' line seems missing"},
		},
		{
			name:   "unclosed word",
			text:   "\\id GEN\n\\v 1 \\w a|b and more\n",
			errors: []string{"GEN :1 - Missing \\w* closure"},
		},
		{
			name:  "deprecated s5",
			text:  "\\id GEN\n\\s5\n\\v 1 a\n",
			warns: []string{"GEN - \\s5 fields should be coded as \\ts\\* milestones"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, report := CleanUSFM("GEN", tt.text)
			for _, e := range tt.errors {
				assert.Contains(t, report.Errors, e)
			}
			for _, w := range tt.warns {
				assert.Contains(t, report.Warnings, w)
			}
		})
	}
}

func TestCleanUSFMKeepsValidBareMarkers(t *testing.T) {
	in := "\\id GEN\n\\c 1\n\\q\n\\v 1 a\n\\p\n\\v 2 b\n\\qt text\\qt*\n"
	out, report := CleanUSFM("GEN", in)
	assert.Empty(t, report.Errors)
	assert.Equal(t, in, out)
}
