// Package subject routes a resource subject, as declared in a manifest, to
// the preprocessor and templater variants that handle it.
package subject

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by factories given a Kind outside the set.
var ErrUnknownKind = errors.New("unknown content kind")

// Kind is a content-type variant.
type Kind int

const (
	Default Kind = iota
	OBS
	ObsNotes
	Bible
	Academy
	Questions
	Words
	Notes
	Lexicon
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Default:
		return "default"
	case OBS:
		return "obs"
	case ObsNotes:
		return "obs_notes"
	case Bible:
		return "bible"
	case Academy:
		return "ta"
	case Questions:
		return "tq"
	case Words:
		return "tw"
	case Notes:
		return "tn"
	case Lexicon:
		return "lexicon"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= Default && k <= Lexicon
}

// Unknown wraps ErrUnknownKind for k.
func Unknown(k Kind) error {
	return fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

// Subjects whose notes and questions variants get an extra CSS class.
var (
	notesSubjects     = map[string]bool{"OBS_Study_Notes": true, "OBS_Translation_Notes": true}
	questionsSubjects = map[string]bool{"OBS_Study_Questions": true, "OBS_Translation_Questions": true}
)

var preprocessors = map[string]Kind{
	"Open_Bible_Stories":        OBS,
	"OBS_Study_Notes":           ObsNotes,
	"OBS_Study_Questions":       ObsNotes,
	"OBS_Translation_Notes":     ObsNotes,
	"OBS_Translation_Questions": ObsNotes,
	"Bible":                     Bible,
	"Aligned_Bible":             Bible,
	"Greek_New_Testament":       Bible,
	"Hebrew_Old_Testament":      Bible,
	"Translation_Academy":       Academy,
	"Translation_Questions":     Questions,
	"Translation_Words":         Words,
	"Translation_Notes":         Notes,
	"TSV_Translation_Notes":     Notes,
	"Greek_Lexicon":             Lexicon,
	"Hebrew-Aramaic_Lexicon":    Lexicon,
}

var templaters = map[string]Kind{
	"Generic_Markdown":          OBS,
	"Open_Bible_Stories":        OBS,
	"Greek_Lexicon":             OBS,
	"Hebrew-Aramaic_Lexicon":    OBS,
	"OBS_Study_Questions":       OBS,
	"OBS_Study_Notes":           ObsNotes,
	"OBS_Translation_Notes":     ObsNotes,
	"OBS_Translation_Questions": ObsNotes,
	"Translation_Academy":       Academy,
	"Translation_Questions":     Questions,
	"Translation_Words":         Words,
	"Translation_Notes":         Notes,
	"TSV_Translation_Notes":     Notes,
	"Bible":                     Bible,
	"Aligned_Bible":             Bible,
	"Greek_New_Testament":       Bible,
	"Hebrew_Old_Testament":      Bible,
}

// Preprocessor maps a subject to its preprocessor kind. Unrecognised
// subjects map to Default with ok false.
func Preprocessor(subject string) (Kind, bool) {
	k, ok := preprocessors[subject]
	if !ok {
		return Default, false
	}
	return k, true
}

// Templater maps a subject to its templater kind. Unrecognised subjects
// map to Bible with ok false.
func Templater(subject string) (Kind, bool) {
	k, ok := templaters[subject]
	if !ok {
		return Bible, false
	}
	return k, true
}

// ExtraClasses returns additional body classes for a subject.
func ExtraClasses(subject string) []string {
	switch {
	case notesSubjects[subject]:
		return []string{"tn"}
	case questionsSubjects[subject]:
		return []string{"tq"}
	}
	return nil
}
