package preprocess

import (
	"context"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
	"github.com/unfoldingWord/door43-job-handler/internal/document"
)

type questions struct {
	base
}

func (q *questions) Run(ctx context.Context) (Result, error) {
	ix := document.NewIndex()
	style := helpsStyle{prefix: "tq", levels: 3}
	for idx, p := range q.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !bible.IsBook(p.Identifier) {
			continue
		}
		md, anchors, ok := q.compileBook(p, style)
		if !ok {
			continue
		}
		name := numberedName(strings.ToLower(p.Identifier), idx, "md", true)
		if err := q.emit(name, FixNotesLinks(md, q.links())); err != nil {
			return Result{}, err
		}
		indexBook(ix, name, p.Identifier, anchors)
	}
	return q.result(ix), nil
}
