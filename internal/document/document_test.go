package document

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *Index {
	ix := NewIndex()
	ix.Titles["01-GEN.html"] = "Genesis"
	ix.Titles["kt.html"] = "Key Terms"
	ix.Chapters["01-GEN.html"] = Anchors("tq-chapter-gen-001", "tq-chapter-gen-002")
	ix.Chapters["kt.html"] = Terms(map[string]string{"god": "God", "abba": "Abba"})
	ix.BookCodes["01-GEN.html"] = "gen"
	return ix
}

func TestIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleIndex()

	require.NoError(t, WriteIndex(dir, want))

	got, err := ReadIndex(filepath.Join(dir, IndexFilename))
	require.NoError(t, err)
	assert.Equal(t, want.Titles, got.Titles)
	assert.Equal(t, want.Chapters, got.Chapters)
	assert.Equal(t, want.BookCodes, got.BookCodes)
}

func TestChapterListShapes(t *testing.T) {
	data, err := json.Marshal(Anchors("a", "b"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	data, err = json.Marshal(Terms(map[string]string{"x": "X"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"X"}`, string(data))

	data, err = json.Marshal(ChapterList{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var c ChapterList
	require.NoError(t, json.Unmarshal([]byte(`{"b":"beta","a":"Alpha"}`), &c))
	assert.True(t, c.IsTerms())
	assert.Equal(t, []string{"a", "b"}, c.SortedTerms())
}

func TestSortedTermsCaseInsensitive(t *testing.T) {
	c := Terms(map[string]string{"zeal": "zeal", "adam": "Adam", "babel": "babel"})
	assert.Equal(t, []string{"adam", "babel", "zeal"}, c.SortedTerms())
}

func TestIndexValidate(t *testing.T) {
	ix := NewIndex()
	ix.Chapters["02-EXO.html"] = Anchors("x")
	err := ix.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingTitle))

	_, err = ix.Marshal()
	assert.True(t, errors.Is(err, ErrMissingTitle))
}

func TestIndexMerge(t *testing.T) {
	base := sampleIndex()
	other := NewIndex()
	other.Titles["01-GEN.html"] = "Genesis (updated)"
	other.Titles["02-EXO.html"] = "Exodus"
	base.Merge(other)

	assert.Equal(t, "Genesis (updated)", base.Titles["01-GEN.html"])
	assert.Equal(t, "Exodus", base.Titles["02-EXO.html"])
	assert.Equal(t, "gen", base.BookCodes["01-GEN.html"])
}

func TestReadIndexMissing(t *testing.T) {
	_, err := ReadIndex(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseTOC(t *testing.T) {
	src := []byte(`title: "Table of Contents"
sections:
  - title: "Introduction"
    sections:
      - title: "Welcome"
        link: ta-intro
      - title: "Empty"
        sections:
  - title: "Finding Answers"
    link: finding-answers
`)
	toc, err := ParseTOC(src)
	require.NoError(t, err)
	require.Len(t, toc.Sections, 2)

	intro := toc.Sections[0]
	assert.Equal(t, "", intro.Link)
	assert.True(t, intro.HasSections)
	require.Len(t, intro.Sections, 2)
	assert.True(t, intro.Sections[1].HasSections)
	assert.Empty(t, intro.Sections[1].Sections)
	assert.False(t, toc.Sections[1].HasSections)

	var visited []string
	toc.Walk(func(n *TOCNode, depth int) {
		visited = append(visited, n.Title)
		if n.Title == "Welcome" {
			assert.Equal(t, 2, depth)
		}
	})
	assert.Equal(t, []string{"Introduction", "Welcome", "Empty", "Finding Answers"}, visited)
}

func TestParseTOCBad(t *testing.T) {
	_, err := ParseTOC([]byte("sections:\n  - [unclosed"))
	assert.True(t, errors.Is(err, ErrBadTOC))
}

func TestReadTOCMissing(t *testing.T) {
	toc, err := ReadTOC(filepath.Join(t.TempDir(), "toc.yaml"))
	require.NoError(t, err)
	assert.Nil(t, toc)
}

func TestHTMLName(t *testing.T) {
	assert.Equal(t, "01-GEN.html", HTMLName("01-GEN.md"))
	assert.Equal(t, "kt.html", HTMLName("kt.md"))
}

func TestTOCMarshalRoundTrip(t *testing.T) {
	toc := &TOC{
		Title: "Table of Contents",
		Sections: []*TOCNode{
			{Title: "01-01", Link: "01-01"},
			{Title: "Group", HasSections: true},
		},
	}
	data, err := toc.Marshal()
	require.NoError(t, err)

	back, err := ParseTOC(data)
	require.NoError(t, err)
	require.Len(t, back.Sections, 2)
	assert.Equal(t, "01-01", back.Sections[0].Link)
	assert.False(t, back.Sections[0].HasSections)
	assert.True(t, back.Sections[1].HasSections)
	assert.Empty(t, back.Sections[1].Sections)
}
