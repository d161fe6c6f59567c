package preprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exodus = `\id EXO unfoldingWord Literal Text
\usfm 3.0
\ide UTF-8
\h Exodus
\toc1 The Book of Exodus
\toc2 Exodus
\toc3 Exo
\mt Exodus

\c 1
\p
\v 1 These are the names of the sons of Israel who came to Egypt with Jacob.
\v 2 Reuben, Simeon, Levi, and Judah,
\v 3 Issachar, Zebulun, and Benjamin,
`

const leviticus = `\id LEV unfoldingWord Literal Text
\usfm 3.0
\ide UTF-8
\h Leviticus
\toc1 The Book of Leviticus
\toc2 Leviticus
\toc3 Lev
\mt Leviticus

\c 1
\p
\v 1 Yahweh called to Moses and spoke to him from the tent of meeting, saying,
\v 2 Speak to the people of Israel and say to them,
`

func TestBibleTwoBooks(t *testing.T) {
	res, out := runSubject(t, "Bible", "en_ult", map[string]string{
		"manifest.yaml": `dublin_core:
  identifier: ult
  title: unfoldingWord Literal Text
  subject: Bible
  format: text/usfm
  language:
    identifier: en
projects:
  - identifier: exo
    title: Exodus
    path: ./02-EXO.usfm
  - identifier: lev
    title: Leviticus
    path: ./03-LEV.usfm
`,
		"02-EXO.usfm": exodus,
		"03-LEV.usfm": leviticus,
	})
	assert.Equal(t, 2, res.FilesWritten)
	assert.Empty(t, res.Warnings)
	for _, name := range []string{"02-EXO.usfm", "03-LEV.usfm"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(100), name)
	}
	assert.NoFileExists(t, filepath.Join(out, "01-GEN.usfm"))
	assert.NoFileExists(t, filepath.Join(out, "67-REV.usfm"))
}

func TestBibleDirectoryOfFiles(t *testing.T) {
	res, out := runSubject(t, "Bible", "en_ulb", map[string]string{
		"manifest.yaml":     "dublin_core:\n  identifier: ulb\n  format: usfm\nprojects:\n  - identifier: ulb\n    path: ./books\n",
		"books/en-EXO.usfm": exodus,
		"books/extra.usfm":  "\\id XXX\n",
	})
	assert.Equal(t, 2, res.FilesWritten)
	assert.FileExists(t, filepath.Join(out, "02-EXO.usfm"))
	assert.FileExists(t, filepath.Join(out, "extra.usfm"))
}

func TestBibleFragments(t *testing.T) {
	res, out := runSubject(t, "Bible", "en_gen_text_ulb", map[string]string{
		"manifest.yaml": `dublin_core:
  identifier: ulb
  title: Unlocked Literal Bible
  format: usfm
projects:
  - identifier: gen
    title: Genesis
    path: ./
`,
		"front/title.txt": "Genesis\n",
		"01/title.txt":    "Genesis 1\n",
		"01/01.txt":       `In the \w beginning|x-strong="H7225"\w* God created the heavens and the earth.`,
		"01/02.txt":       `\k-s | x-tw="rc://*/tw/dict/bible/kt/god"\*\w The earth|x-strong="H776"\w* was formless.\k-e\*`,
		"02/title.txt":    "Chapter Two\n",
		"02/01.txt":       "Thus the heavens and the earth were completed.",
		"02/02.txt":       "\\c 2\nOn the seventh day God finished his work.",
	})
	assert.Equal(t, 1, res.FilesWritten)
	book := readOut(t, out, "01-GEN.usfm")

	assert.True(t, strings.HasPrefix(book, "\\id GEN Unlocked Literal Bible\n\\ide UTF-8\n\\h Genesis\n"))
	assert.Contains(t, book, "\\toc3 gen\n")
	assert.Equal(t, 1, strings.Count(book, "\\c 1\n"))
	assert.Equal(t, 1, strings.Count(book, "\\c 2\n"))
	assert.Equal(t, 2, strings.Count(book, "\\v 1 "))
	assert.Equal(t, 2, strings.Count(book, "\\v 2 "))
	assert.Contains(t, book, "\\c 2\n\\cl Chapter Two\n")
	assert.NotContains(t, book, "\\cl Genesis")
	assert.Contains(t, book, "\\v 1 In the beginning God created the heavens and the earth.\n")
	assert.Contains(t, book, "\\v 2 The earth was formless.\n")
	for _, token := range []string{`\w`, `\k-s`, `\k-e`, `\z`} {
		assert.NotContains(t, book, token)
	}

	again, report := CleanUSFM("GEN", book)
	assert.Equal(t, book, again)
	assert.Empty(t, report.Errors)
}
