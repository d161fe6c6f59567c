package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTitle(t *testing.T) {
	title, warnings := CheckTitle("  Hello  world\n", "ref")
	assert.Equal(t, "Hello  world", title)
	assert.Contains(t, warnings, `ref: Unexpected whitespace at beginning of "  Hello  world\n"`)
	assert.Contains(t, warnings, "ref: Doubled spaces in 'Hello  world'")

	title, warnings = CheckTitle("Intro\n", "ref")
	assert.Equal(t, "Intro", title)
	assert.Empty(t, warnings)

	_, warnings = CheckTitle("", "ref")
	assert.Contains(t, warnings, "ref: Missing title text")

	_, warnings = CheckTitle("A: B", "ref")
	assert.Contains(t, warnings, "ref: Unexpected ':' in 'A: B'")
}

func TestCheckPunctuationPairs(t *testing.T) {
	warnings := CheckPunctuationPairs("see (this", "r", false)
	assert.Contains(t, warnings, "r: Possible missing closing ')' (found 1 '(' but 0 ')')")
	assert.Contains(t, warnings, "r: Seem to have the following unclosed field(s): '('")

	assert.Empty(t, CheckPunctuationPairs("Steps: 1) first 2) second", "r", true))
	assert.Contains(t, CheckPunctuationPairs("Steps: 1) first 2) second", "r", false),
		"r: Possible missing opening '(' (found 0 '(' but 2 ')')")

	assert.Contains(t, CheckPunctuationPairs("**bold* text", "r", false),
		"r: Seem to have have mismatched '**' pairs in '**bold* text'")
}
