package preprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
)

// LinkContext is what the link fixers need to build absolute URLs.
type LinkContext struct {
	Owner    string
	Language string
	Host     string
}

func (l LinkContext) host() string {
	if l.Host == "" {
		return DefaultHost
	}
	return l.Host
}

// base URL of a repository, escaped for use in a regexp replacement.
func (l LinkContext) repoURL(repo string) string {
	return escapeRepl(fmt.Sprintf("https://%s/%s/", l.host(), l.Owner)) + repo
}

func escapeRepl(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

var (
	rcWildcardTA = regexp.MustCompile(`(?i)rc://\*/ta/([^/]+)/([^\s)\]$]+)`)
	rcTA         = regexp.MustCompile(`(?i)rc://([^/]+)/ta/([^/]+)/([^\s)\]$]+)`)
	rcWildcard   = regexp.MustCompile(`(?i)rc://\*/([^/]+)/([^/]+)/([^\s)\]$]+)`)
	rcAny        = regexp.MustCompile(`(?i)rc://([^/]+)/([^/]+)/([^/]+)/([^\s)\]$]+)`)

	bareSection  = regexp.MustCompile(`\]\(([^# :/)]+)\)`)
	bareURL      = regexp.MustCompile(`(?i)([^"(\[])((http|https|ftp)://[A-Z0-9/?&_.:=#-]+[A-Z0-9/?&_:=#-])`)
	bareWWW      = regexp.MustCompile(`(?i)([^A-Z0-9"(/])(www\.[A-Z0-9/?&_.:=#-]+[A-Z0-9/?&_:=#-])`)
	sameManual   = regexp.MustCompile(`\]\(\.\./([^/)]+)/01\.md\)`)
	bracketedTA  = regexp.MustCompile(`\[\[https://([^ ]+?)/src/branch/master/([^ .]+?)/01\.md\]\]`)
	bracketedDoc = regexp.MustCompile(`\[\[https://([^ ]+?)/src/branch/master/([^ .]+?)\.md\]\]`)
)

// fixRCLinks rewrites rc:// references to the owner's repositories on the
// git host. Academy targets point at the article's 01.md; a "*" language
// means the resource language.
func fixRCLinks(content string, l LinkContext) string {
	lang := escapeRepl(l.Language)
	content = rcWildcardTA.ReplaceAllString(content, l.repoURL(lang+"_ta/src/branch/master/${2}/01.md"))
	content = rcTA.ReplaceAllString(content, l.repoURL("${1}_ta/src/branch/master/${3}/01.md"))
	content = rcWildcard.ReplaceAllString(content, l.repoURL(lang+"_${1}/src/branch/master/${3}.md"))
	return rcAny.ReplaceAllString(content, l.repoURL("${1}_${2}/src/branch/master/${4}.md"))
}

// fixBareLinks anchors section-name links and turns bare URLs into
// markdown links.
func fixBareLinks(content string) string {
	content = bareSection.ReplaceAllString(content, "](#${1})")
	content = bareURL.ReplaceAllString(content, "${1}[${2}](${2})")
	return bareWWW.ReplaceAllString(content, "${1}[${2}](http://${2})")
}

// FixAcademyLinks rewrites links inside an academy manual. manuals lists
// the project identifiers in output order, so cross-manual links resolve to
// the numbered manual pages.
func FixAcademyLinks(content string, l LinkContext, manuals []string) string {
	content = fixRCLinks(content, l)
	content = sameManual.ReplaceAllString(content, "](#${1})")
	for i, id := range manuals {
		re := regexp.MustCompile(`\]\(\.\./\.\./` + regexp.QuoteMeta(id) + `/([^/)]+)/01\.md\)`)
		content = re.ReplaceAllString(content, fmt.Sprintf("](%02d-%s.html#${1})", i+1, escapeRepl(id)))
	}
	return fixBareLinks(content)
}

// FixNotesLinks rewrites links inside translation notes and questions.
// Double-bracketed links become labelled markdown links.
func FixNotesLinks(content string, l LinkContext) string {
	content = fixBareLinks(fixRCLinks(content, l))
	content = bracketedTA.ReplaceAllStringFunc(content, func(m string) string {
		g := bracketedTA.FindStringSubmatch(m)
		return fmt.Sprintf("[%s:%s](https://%s/src/branch/master/%s/01.md)", repoType(g[1]), g[2], g[1], g[2])
	})
	return bracketedDoc.ReplaceAllStringFunc(content, func(m string) string {
		g := bracketedDoc.FindStringSubmatch(m)
		return fmt.Sprintf("[%s:%s](https://%s/src/branch/master/%s.md)", repoType(g[1]), g[2], g[1], g[2])
	})
}

// repoType is the upper-cased resource suffix of a repository path, e.g.
// "TA" for ".../en_ta".
func repoType(repoPath string) string {
	parts := strings.Split(repoPath, "_")
	return strings.ToUpper(parts[len(parts)-1])
}

// FixWordsLinks rewrites links inside one translation-words term. Links to
// a term of the same section become in-page anchors; links to other
// sections point at that section's page.
func FixWordsLinks(content, section string, l LinkContext) string {
	content = fixRCLinks(content, l)
	for _, s := range wordSections {
		re := regexp.MustCompile(`\]\(\.\./` + s.id + `/([^/)]+)\.md\)`)
		if s.id == section {
			content = re.ReplaceAllString(content, "](#${1})")
			continue
		}
		content = re.ReplaceAllString(content, "]("+s.id+".html#${1})")
	}
	return fixBareLinks(content)
}

// FixObsNotesLinks rewrites the academy references in OBS notes.
func FixObsNotesLinks(content string, l LinkContext) string {
	content = rcWildcardTA.ReplaceAllString(content, l.repoURL(escapeRepl(l.Language)+"_ta/src/branch/master/${2}/01.md"))
	return rcTA.ReplaceAllString(content, l.repoURL("${1}_ta/src/branch/master/${3}/01.md"))
}

var (
	lexiconEntry    = regexp.MustCompile(`\]\(\.\./([^/)]+)/01\.md\)`)
	lexiconGlossary = regexp.MustCompile(`\(//en-uhal/([^\s)\]]+)\)`)
	lexiconCitation = regexp.MustCompile(`(^|[^\[\w])((?:[1-3] ?)?[A-Z][a-z]{1,2}) (\d{1,3}):(\d{1,3})`)
)

// GlossaryURL is where cross-lexicon glossary references resolve.
const GlossaryURL = "https://git.door43.org/unfoldingWord/en_uhal/src/branch/master/content/"

// FixLexiconLinks rewrites links between lexicon entries, references to
// the Hebrew-Aramaic glossary and "Book C:V" citations. Citations are
// rewritten one at a time until none remain unlinked.
func FixLexiconLinks(content string, l LinkContext) string {
	content = lexiconEntry.ReplaceAllString(content, "](${1}.html)")
	content = lexiconGlossary.ReplaceAllString(content, "("+GlossaryURL+"${1}/01.md)")

	pos := 0
	for pos < len(content) {
		loc := lexiconCitation.FindStringSubmatchIndex(content[pos:])
		if loc == nil {
			break
		}
		prefix := content[pos+loc[2] : pos+loc[3]]
		book := content[pos+loc[4] : pos+loc[5]]
		chapter := content[pos+loc[6] : pos+loc[7]]
		verse := content[pos+loc[8] : pos+loc[9]]
		name, ok := bible.Filename(strings.ReplaceAll(book, " ", ""), "usfm")
		if !ok {
			pos += loc[4] + 1
			continue
		}
		url := fmt.Sprintf("https://%s/%s/%s_ult/src/branch/master/%s#%s:%s",
			l.host(), l.Owner, l.Language, name, chapter, verse)
		link := fmt.Sprintf("%s[%s %s:%s](%s)", prefix, book, chapter, verse, url)
		content = content[:pos+loc[0]] + link + content[pos+loc[1]:]
		pos += loc[0] + len(link)
	}
	return content
}
