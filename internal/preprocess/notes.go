package preprocess

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
)

type notes struct {
	base
}

func (n *notes) Run(ctx context.Context) (Result, error) {
	ix := document.NewIndex()
	style := helpsStyle{prefix: "tn", levels: 2, allowJSON: true}
	for idx, p := range n.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !bible.IsBook(p.Identifier) {
			continue
		}
		code := strings.ToLower(p.Identifier)
		upper := strings.ToUpper(code)

		copied, err := n.copyTSV(p, upper)
		if err != nil {
			return Result{}, err
		}
		if copied != "" {
			indexBook(ix, copied, code, nil)
			continue
		}

		md, anchors, ok := n.compileBook(p, style)
		if !ok {
			continue
		}
		md = FixNotesLinks(md, n.links())
		if strings.Contains(md, "rc://") {
			n.warnf("Unable to all process 'rc://' links in %s", upper)
		}
		name := numberedName(code, idx, "md", true)
		if err := n.emit(name, md); err != nil {
			return Result{}, err
		}
		indexBook(ix, name, code, anchors)
	}
	return n.result(ix), nil
}

// copyTSV passes a book-level TSV file through unchanged. It returns the
// output name, or "" when the book has no TSV.
func (n *notes) copyTSV(p *rc.Project, upper string) (string, error) {
	name, _ := bible.Filename(upper, "tsv")
	candidates := []string{
		filepath.Join(n.opts.SourceDir, "tn_"+upper+".tsv"),
		filepath.Join(n.opts.SourceDir, name),
	}
	if path := n.projectPath(p); strings.EqualFold(filepath.Ext(path), ".tsv") {
		candidates = append([]string{path}, candidates...)
	}
	for _, src := range candidates {
		if !isFile(src) {
			continue
		}
		if err := n.copyFile(src, name); err != nil {
			return "", err
		}
		n.written++
		return name, nil
	}
	return "", nil
}
