package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
)

// lastStory is the highest OBS story number; story 00 is the optional
// introduction.
const lastStory = 50

type obsNotes struct {
	base
}

func (o *obsNotes) Run(ctx context.Context) (Result, error) {
	content := filepath.Join(o.opts.SourceDir, "content")
	for _, p := range o.rc().Projects() {
		if !isDir(content) {
			o.warnf("Unable to find 'content/' folder for '%s'", p.Identifier)
			continue
		}
		for n := 0; n <= lastStory; n++ {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if err := o.story(content, fmt.Sprintf("%02d", n)); err != nil {
				return Result{}, err
			}
		}
	}
	return o.result(nil), nil
}

// story writes NN.md from either a content/NN/ folder of frame notes or a
// single content/NN.md file, plus NN-toc.yaml for the folder form.
func (o *obsNotes) story(content, number string) error {
	var markdown string
	toc := &document.TOC{Title: "Table of Contents"}

	folder := filepath.Join(content, number)
	if isDir(folder) {
		for _, name := range listDir(folder, false) {
			if !strings.HasSuffix(name, ".md") {
				o.warnf("Unexpected '%s' file in 'content/%s/'", name, number)
				continue
			}
			text, err := readText(filepath.Join(folder, name))
			if err != nil {
				o.errorf("Error reading content/%s/%s: %v", number, name, err)
				continue
			}
			id := number + "-" + stem(name)
			markdown += fmt.Sprintf("\n# <a id=\"%s\"/> %s\n\n%s\n\n", id, id, text)
			toc.Sections = append(toc.Sections, &document.TOCNode{Title: id, Link: id})
		}
	} else if text, err := readText(filepath.Join(content, number+".md")); err == nil {
		markdown = text
	} else if number != "00" {
		o.warnf("Unable to find story %s text", number)
	}

	if markdown != "" {
		markdown = FixObsNotesLinks(markdown, o.links())
		if n := strings.Count(markdown, "rc://"); n > 0 {
			o.warnf("Story number %s still has %d 'rc://' links!", number, n)
		}
		if err := o.emit(number+".md", markdown); err != nil {
			return err
		}
	}
	if len(toc.Sections) > 0 {
		data, err := toc.Marshal()
		if err != nil {
			return err
		}
		if err := o.writeAux(number+"-toc.yaml", string(data)); err != nil {
			return err
		}
	}
	return nil
}
