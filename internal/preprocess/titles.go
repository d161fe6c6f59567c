package preprocess

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CheckTitle trims a title and returns it with any warnings about its
// whitespace, content and punctuation. A single final newline is not
// reported.
func CheckTitle(title, ref string) (string, []string) {
	var warnings []string
	if strings.TrimLeftFunc(title, unicode.IsSpace) != title {
		warnings = append(warnings, fmt.Sprintf("%s: Unexpected whitespace at beginning of %q", ref, title))
	}
	if body := strings.TrimSuffix(title, "\n"); strings.TrimRightFunc(body, unicode.IsSpace) != body {
		warnings = append(warnings, fmt.Sprintf("%s: Unexpected whitespace at end of %q", ref, title))
	}
	title = strings.TrimSpace(title)
	if strings.Contains(title, "  ") {
		warnings = append(warnings, fmt.Sprintf("%s: Doubled spaces in '%s'", ref, title))
	}
	if title == "" {
		warnings = append(warnings, fmt.Sprintf("%s: Missing title text", ref))
	}
	for _, c := range `.[]:"` {
		if strings.ContainsRune(title, c) {
			warnings = append(warnings, fmt.Sprintf("%s: Unexpected '%c' in '%s'", ref, c, title))
		}
	}
	warnings = append(warnings, CheckPunctuationPairs(title, ref, false)...)
	return title, warnings
}

var punctuationPairs = [][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}, {"**_", "_**"}}

var listPoint = regexp.MustCompile(`\s\d\) `)

// markdownRuns are checked longest first; only the first odd count is
// reported.
var markdownRuns = []string{"___", "***", "__", "**"}

// CheckPunctuationPairs warns about unbalanced or mis-nested brackets and
// odd counts of markdown emphasis runs. With points set, "1) " style list
// numbering is not counted as an unopened parenthesis.
func CheckPunctuationPairs(text, ref string, points bool) []string {
	var warnings []string
	foundAny := false
	for _, pair := range punctuationPairs {
		start, end := pair[0], pair[1]
		starts, ends := strings.Count(text, start), strings.Count(text, end)
		if starts > 0 || ends > 0 {
			foundAny = true
		}
		switch {
		case starts > ends:
			warnings = append(warnings, fmt.Sprintf("%s: Possible missing closing '%s' (found %s '%s' but %s '%s')",
				ref, end, thousands(starts), start, thousands(ends), end))
		case ends > starts:
			if points {
				ends -= len(listPoint.FindAllString(text, -1))
			}
			if ends > starts {
				warnings = append(warnings, fmt.Sprintf("%s: Possible missing opening '%s' (found %s '%s' but %s '%s')",
					ref, start, thousands(starts), start, thousands(ends), end))
			}
		}
	}
	if foundAny {
		warnings = append(warnings, checkNesting(text, ref)...)
	}
	for _, run := range markdownRuns {
		n := strings.Count(text, run)
		if n%2 != 0 {
			warnings = append(warnings, fmt.Sprintf("%s: Seem to have have mismatched '%s' pairs in '%s'", ref, run, snippet(text)))
			break
		}
	}
	return warnings
}

func checkNesting(text, ref string) []string {
	var warnings []string
	lines := strings.Split(text, "\n")
	var open []rune
	line := 1
	runes := []rune(text)
	for i, c := range runes {
		switch c {
		case '(', '[', '{':
			open = append(open, c)
		case ')', ']', '}':
			want := map[rune]rune{')': '(', ']': '[', '}': '{'}[c]
			if len(open) > 0 && open[len(open)-1] == want {
				open = open[:len(open)-1]
				continue
			}
			if c == ')' && i > 0 && unicode.IsDigit(runes[i-1]) && i < len(runes)-1 && (runes[i+1] == ' ' || runes[i+1] == '\t') {
				continue
			}
			after := ""
			if len(open) > 0 {
				after = fmt.Sprintf(" after recent '%c'", open[len(open)-1])
			}
			warnings = append(warnings, fmt.Sprintf("%s line %s: Possible nesting error, found unexpected '%c'%s near %s",
				ref, thousands(line), c, after, lines[line-1]))
		case '\n':
			line++
		}
	}
	if len(open) > 0 {
		quoted := make([]string, len(open))
		for i, c := range open {
			quoted[i] = "'" + string(c) + "'"
		}
		warnings = append(warnings, fmt.Sprintf("%s: Seem to have the following unclosed field(s): %s", ref, strings.Join(quoted, ", ")))
	}
	return warnings
}

// snippet shortens long text to its first and last forty characters.
func snippet(text string) string {
	if utf8.RuneCountInString(text) < 85 {
		return text
	}
	r := []rune(text)
	return string(r[:40]) + " …… " + string(r[len(r)-40:])
}
