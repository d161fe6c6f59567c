package subject

import (
	"errors"
	"testing"
)

func TestPreprocessor(t *testing.T) {
	tests := []struct {
		subject string
		want    Kind
		ok      bool
	}{
		{"Open_Bible_Stories", OBS, true},
		{"OBS_Study_Questions", ObsNotes, true},
		{"Aligned_Bible", Bible, true},
		{"Hebrew_Old_Testament", Bible, true},
		{"Translation_Academy", Academy, true},
		{"Translation_Questions", Questions, true},
		{"Translation_Words", Words, true},
		{"TSV_Translation_Notes", Notes, true},
		{"Hebrew-Aramaic_Lexicon", Lexicon, true},
		{"Generic_Markdown", Default, false},
		{"", Default, false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := Preprocessor(tt.subject)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Preprocessor(%q) = %v, %v; want %v, %v", tt.subject, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTemplater(t *testing.T) {
	tests := []struct {
		subject string
		want    Kind
		ok      bool
	}{
		{"Generic_Markdown", OBS, true},
		{"Greek_Lexicon", OBS, true},
		{"OBS_Study_Questions", OBS, true},
		{"OBS_Translation_Questions", ObsNotes, true},
		{"Translation_Academy", Academy, true},
		{"Translation_Notes", Notes, true},
		{"Bible", Bible, true},
		{"Something_Else", Bible, false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := Templater(tt.subject)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Templater(%q) = %v, %v; want %v, %v", tt.subject, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtraClasses(t *testing.T) {
	if got := ExtraClasses("OBS_Study_Notes"); len(got) != 1 || got[0] != "tn" {
		t.Errorf("notes classes = %v", got)
	}
	if got := ExtraClasses("OBS_Translation_Questions"); len(got) != 1 || got[0] != "tq" {
		t.Errorf("questions classes = %v", got)
	}
	if got := ExtraClasses("Bible"); got != nil {
		t.Errorf("bible classes = %v", got)
	}
}

func TestKindValid(t *testing.T) {
	for k := Default; k <= Lexicon; k++ {
		if !k.Valid() || k.String() == "unknown" {
			t.Errorf("kind %d should be valid", k)
		}
	}
	if Kind(42).Valid() {
		t.Error("Kind(42) should be invalid")
	}
	if !errors.Is(Unknown(Kind(42)), ErrUnknownKind) {
		t.Error("Unknown should wrap ErrUnknownKind")
	}
}
