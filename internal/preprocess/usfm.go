package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
)

// USFMReport collects what CleanUSFM found wrong with a book.
type USFMReport struct {
	Warnings []string
	Errors   []string
}

func (r *USFMReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *USFMReport) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// oneOr renders a count the way the checks report it.
func oneOr(n int) string {
	if n == 1 {
		return "One"
	}
	return thousands(n)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

var (
	usfm2Pairs = [][2]string{
		{`\add `, `\add*`}, {`\addpn `, `\addpn*`}, {`\bd `, `\bd*`}, {`\bdit `, `\bdit*`},
		{`\bk `, `\bk*`}, {`\dc `, `\dc*`}, {`\em `, `\em*`}, {`\fig `, `\fig*`},
		{`\it `, `\it*`}, {`\k `, `\k*`}, {`\nd `, `\nd*`}, {`\ndx `, `\ndx*`},
		{`\no `, `\no*`}, {`\ord `, `\ord*`}, {`\pn `, `\pn*`}, {`\pro `, `\pro*`},
		{`\qt `, `\qt*`}, {`\sc `, `\sc*`}, {`\sig `, `\sig*`}, {`\sls `, `\sls*`},
		{`\tl `, `\tl*`}, {`\w `, `\w*`}, {`\wg `, `\wg*`}, {`\wh `, `\wh*`},
		{`\wj `, `\wj*`}, {`\ca `, `\ca*`}, {`\va `, `\va*`}, {`\f `, `\f*`},
		{`\x `, `\x*`},
	}
	usfm3Pairs = [][2]string{
		{`\fw `, `\fw*`}, {`\jmp `, `\jmp*`}, {`\lik `, `\lik*`}, {`\litl `, `\litl*`},
		{`\liv `, `\liv*`}, {`\png `, `\png*`}, {`\rb `, `\rb*`}, {`\sup `, `\sup*`},
		{`\wa `, `\wa*`}, {`\xop `, `\xop*`}, {`\xta `, `\xta*`},
		{`\qt-s\*`, `\qt-e\*`}, {`\qt1-s\*`, `\qt1-e\*`}, {`\qt2-s\*`, `\qt2-e\*`},
		{`\k-s `, `\k-e\*`}, {`\ts-s\*`, `\ts-e\*`}, {`\zaln-s `, `\zaln-e\*`},
	}
	unusualSequences = []string{"␣", "  ", " .", " ,", " :", " ?", " !", "..", "::", "??", "!!"}
)

// uselessMarker matches a paragraph or poetry marker that only precedes
// another break.
type uselessMarker struct {
	first, second string
	re            *regexp.Regexp
}

var uselessMarkers = func() []uselessMarker {
	var out []uselessMarker
	for _, first := range []string{"p", "m", "q", "q1"} {
		for _, second := range []string{"s", "ts", "q", "p", "r", "d"} {
			out = append(out, uselessMarker{
				first:  first,
				second: second,
				re:     regexp.MustCompile(`\\` + first + ` *\n*?\\` + second),
			})
		}
	}
	return out
}()

var verseThenParagraph = func() map[string]*regexp.Regexp {
	out := map[string]*regexp.Regexp{}
	for _, m := range []string{"p", "m", "q", "q1", "q2"} {
		out[m] = regexp.MustCompile(`\\v \d{1,3}\s*?\\` + m + ` `)
	}
	return out
}()

var (
	validBareQ  = regexp.MustCompile(`\\q([1234acdmrst]?)\n`)
	hiddenQ     = regexp.MustCompile(`\\QQQ([1234acdmrst]?)\n`)
	badQ        = regexp.MustCompile(`\\q([^ 1234acdmrst\n])`)
	badQNumber  = regexp.MustCompile(`\\(q[1234])([^ \n])`)
	validBareP  = regexp.MustCompile(`\\p\n`)
	badP        = regexp.MustCompile(`\\p([^ chimoren\n])`)
	closedKS    = regexp.MustCompile(`\\k-s ([^\\]+?)\\\*`)
	closedZalnS = regexp.MustCompile(`\\zaln-s ([^\\]+?)\\\*`)
	zFragment   = regexp.MustCompile(`\\z[^\s\\]*(\\\*)?`)

	verseOnOwnLine = regexp.MustCompile(`([^\n])\\v `)
	leadingPunct   = regexp.MustCompile(`\n([,.;:?])`)
	s5OnOwnLine    = regexp.MustCompile(`([^\n])\\s5`)
)

// CleanUSFM checks a book's USFM and strips the alignment and word-level
// markup the renderer cannot handle. Running it on its own output changes
// nothing.
func CleanUSFM(book, text string) (string, USFMReport) {
	var r USFMReport
	book = strings.ToUpper(book)
	if !bible.IsBook(book) {
		r.errorf("Unable to determine book code -- got %q", book)
	}
	checkUSFM(book, text, &r)

	usfm3 := strings.Contains(text, `\usfm 3`)
	pre := strings.ReplaceAll(text, "\\ts\\*\n", "")
	pre = strings.ReplaceAll(pre, `\ts\*`, "")

	if usfm3 {
		pre = closedKS.ReplaceAllString(pre, "")
		pre = closedZalnS.ReplaceAllString(pre, "")
	} else {
		pre = repairMarkers(book, pre, &r)
		checkMilestones(book, pre, &r)
	}
	pre = strings.ReplaceAll(pre, `\k-e\*`, "")
	pre = strings.ReplaceAll(pre, `\zaln-e\*`, "")

	out, changed := reflow(book, pre, usfm3, &r)
	if changed || (!usfm3 && pre != text) {
		out = normalize(out)
	}
	return out, r
}

// checkUSFM reports problems visible in the raw text.
func checkUSFM(book, text string, r *USFMReport) {
	for _, conflict := range []string{"<<<<<<<", ">>>>>>>", "======="} {
		if n := strings.Count(text, conflict); n > 0 {
			r.errorf("%s - There appears to be %d unresolved conflicts in USFM file (See '%s')", book, n, conflict)
			break
		}
	}
	for _, illegal := range []string{`\\`, "**"} {
		if n := strings.Count(text, illegal); n > 0 {
			r.errorf("%s - %s unexpected '%s' in USFM file", book, oneOr(n), illegal)
		}
	}
	for _, unusual := range unusualSequences {
		if n := strings.Count(text, unusual); n > 0 {
			r.warnf("%s - %s unusual '%s' in USFM file", book, oneOr(n), strings.ReplaceAll(unusual, " ", "␣"))
		}
	}
	for _, pair := range usfm2Pairs {
		opener, closer := pair[0], pair[1]
		if a, b := strings.Count(text, opener), strings.Count(text, closer); a != b {
			r.errorf("%s - Mismatched '%s' (%s) and '%s' (%s) field counts", book, opener, thousands(a), closer, thousands(b))
		}
		if n := strings.Count(text, opener+closer) + strings.Count(text, opener+" "+closer); n > 0 {
			r.warnf("%s - %s empty '%s%s' field%s", book, oneOr(n), opener, closer, plural(n))
		}
	}
	for _, m := range uselessMarkers {
		if n := len(m.re.FindAllStringIndex(text, -1)); n > 0 {
			s := plural(n)
			r.warnf("%s - %s useless \\%s marker%s before \\%s marker%s", book, oneOr(n), m.first, s, m.second, s)
		}
	}
	for _, pair := range usfm3Pairs {
		opener, closer := pair[0], pair[1]
		if a, b := strings.Count(text, opener), strings.Count(text, closer); a != b {
			r.warnf("%s - Mismatched '%s' (%s) and '%s' (%s) field counts", book, opener, thousands(a), closer, thousands(b))
		}
	}
	for _, m := range []string{"p", "m", "q", "q1", "q2"} {
		if n := len(verseThenParagraph[m].FindAllStringIndex(text, -1)); n > 0 {
			r.warnf("%s - %s unexpected \\%s marker%s immediately following verse number", book, oneOr(n), m, plural(n))
		}
	}
	if strings.Contains(text, `\s5`) {
		r.warnf("%s - \\s5 fields should be coded as \\ts\\* milestones", book)
	}

	c, v := "0", "0"
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, `\c `):
			c, v = line[3:], "0"
		case strings.HasPrefix(line, `\v `):
			v = strings.SplitN(line[3:], " ", 2)[0]
		case strings.HasPrefix(line, `\s5`) && strings.TrimSpace(line[3:]) != "":
			r.errorf("%s %s:%s - unexpected text '%s' on \\s5 line", book, c, v, line[3:])
		case strings.HasPrefix(line, `\ts\*`) && strings.TrimSpace(line[5:]) != "":
			r.errorf("%s %s:%s - unexpected text '%s' on \\ts\\* line", book, c, v, line[5:])
		}
	}
}

// repairMarkers fixes \q and \p markers missing their following space,
// leaving valid bare markers alone.
func repairMarkers(book, text string, r *USFMReport) string {
	text = validBareQ.ReplaceAllString(text, "\\QQQ${1}\n")
	n1 := len(badQ.FindAllStringIndex(text, -1))
	text = badQ.ReplaceAllString(text, `\q ${1}`)
	n2 := len(badQNumber.FindAllStringIndex(text, -1))
	text = badQNumber.ReplaceAllString(text, `\${1} ${2}`)
	if n1+n2 > 0 {
		r.errorf("%s - %s badly formed \\q markers", book, thousands(n1+n2))
	}
	text = hiddenQ.ReplaceAllString(text, "\\q${1}\n")

	text = validBareP.ReplaceAllString(text, "\\PPP\n")
	if n := len(badP.FindAllStringIndex(text, -1)); n > 0 {
		text = badP.ReplaceAllString(text, `\p ${1}`)
		r.errorf("%s - %s badly formed \\p markers", book, thousands(n))
	}
	return strings.ReplaceAll(text, "\\PPP\n", "\\p\n")
}

// checkMilestones warns about alignment milestones in a file that does
// not declare USFM 3.
func checkMilestones(book, text string, r *USFMReport) {
	ks := strings.Count(text, `\k-s\*`)
	if ks == 0 {
		ks = strings.Count(text, `\k-s`)
	}
	ke := strings.Count(text, `\k-e\*`)
	if ke == 0 {
		ke = strings.Count(text, `\k-e`)
	}
	zs := strings.Count(text, `\zaln-s`)
	ze := strings.Count(text, `\zaln-e`)
	if ks+ke+zs+ze > 0 {
		r.warnf("%s - '\\usfm 3.0' line seems missing", book)
	}
	if closed, want := strings.Count(text, `\*`), ks+ke+zs+ze; closed < want {
		r.warnf("%s - %s unclosed \\k or \\zaln milestone markers", book, thousands(want-closed))
	}
}

// reflow cleans the text line by line. Blank lines are dropped. A line
// that changed is joined onto the previous one so no marker is left on a
// line of its own. changed reports whether any line was altered.
func reflow(book, text string, usfm3 bool, r *USFMReport) (string, bool) {
	var b strings.Builder
	changed, joining := false, false
	c, v := "", ""
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, `\c `) {
			c = line[3:]
		} else if strings.HasPrefix(line, `\v `) {
			v = strings.SplitN(line[3:], " ", 2)[0]
		}
		ref := fmt.Sprintf("%s %s:%s", book, c, v)

		adjusted := stripMilestones(line, ref, usfm3, r)
		if strings.Contains(adjusted, `\w `) && strings.HasSuffix(adjusted, `\w`) {
			adjusted += "*"
		}
		adjusted = removeWordFields(ref, `\w`, adjusted, r)
		adjusted = removeWordFields(ref, `\+w`, adjusted, r)
		for _, seq := range []string{`\w `, "\\w\t", `\+w `, "\\+w\t"} {
			if strings.Contains(adjusted, seq) {
				r.warnf("%s - Unprocessed '%s' in line", ref, seq)
				adjusted = strings.ReplaceAll(adjusted, seq, "")
			}
		}
		if strings.HasSuffix(adjusted, `\w`) {
			adjusted = strings.TrimSuffix(adjusted, `\w`)
		}
		if strings.Contains(adjusted, `\z`) {
			if ix := strings.Index(adjusted, `\zaln-s`); ix >= 0 {
				adjusted = adjusted[:ix]
			}
			if strings.Contains(adjusted, `\z`) {
				r.warnf("%s - Remaining \\z field", ref)
				adjusted = zFragment.ReplaceAllString(adjusted, "")
			}
		}
		if strings.TrimSpace(adjusted) == "" {
			if adjusted != line {
				changed = true
			}
			continue
		}

		if adjusted != line {
			if !strings.HasPrefix(adjusted, `\v `) && !strings.HasPrefix(adjusted, `\f `) {
				b.WriteByte(' ')
			}
			b.WriteString(adjusted)
			joining, changed = true, true
			continue
		}
		if joining {
			b.WriteByte('\n')
			joining = false
		}
		b.WriteString(line + "\n")
	}
	if joining {
		b.WriteByte('\n')
	}
	return b.String(), changed
}

// stripMilestones removes keyterm milestones that were not closed on the
// line they open.
func stripMilestones(line, ref string, usfm3 bool, r *USFMReport) string {
	if !strings.Contains(line, `\k`) {
		return line
	}
	adjusted := line
	if ix := strings.Index(adjusted, `\k-s`); ix >= 0 {
		if usfm3 {
			r.warnf("%s - Non-closed \\k-s milestone", ref)
		}
		if iw := strings.Index(adjusted[ix:], `\w `); iw > 0 {
			adjusted = adjusted[:ix] + adjusted[ix+iw:]
		} else {
			adjusted = adjusted[:ix]
		}
	}
	for _, m := range []string{`\k-s`, `\k-e`} {
		if strings.Contains(adjusted, m) {
			r.warnf("%s - Remaining %s field", ref, m)
			adjusted = strings.ReplaceAll(adjusted, m+`\*`, "")
			adjusted = strings.ReplaceAll(adjusted, m, "")
		}
	}
	return adjusted
}

// removeWordFields reduces each closed "\w word|attrs\w*" field to the
// word. An unclosed field is reported and its opening marker dropped.
func removeWordFields(ref, marker, text string, r *USFMReport) string {
	open, close := marker+" ", marker+"*"
	from := 0
	for {
		ix := strings.Index(text[from:], open)
		if ix < 0 {
			return text
		}
		ix += from
		end := strings.Index(text[ix:], close)
		if end < 0 {
			r.errorf("%s - Missing %s* closure", ref, marker)
			text = text[:ix] + text[ix+len(open):]
			from = ix
			continue
		}
		end += ix
		word := strings.SplitN(text[ix+len(open):end], "|", 2)[0]
		text = text[:ix] + word + text[end+len(close):]
		from = ix
	}
}

// normalize applies the file-wide tidy-up after lines were rejoined.
func normalize(text string) string {
	text = verseOnOwnLine.ReplaceAllString(text, "${1}\n\\v ")
	text = strings.ReplaceAll(text, "\n ", " ")
	text = strings.ReplaceAll(text, "\n\\va ", " \\va ")
	text = leadingPunct.ReplaceAllString(text, "${1}")
	text = s5OnOwnLine.ReplaceAllString(text, "${1}\n\\s5")
	for strings.Contains(text, "\n\n") {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}
	text = strings.ReplaceAll(text, ` ," `, `, "`)
	text = strings.ReplaceAll(text, ` " `, ` "`)
	text = strings.ReplaceAll(text, ` ' `, ` '`)
	text = strings.TrimLeft(text, " ")
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}
