package bible

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		code   string
		number string
		name   string
		ok     bool
	}{
		{"gen", "01", "Genesis", true},
		{"GEN", "01", "Genesis", true},
		{"mal", "39", "Malachi", true},
		{"mat", "41", "Matthew", true},
		{"1sa", "09", "1 Samuel", true},
		{"rev", "67", "Revelation", true},
		{"frt", "A0", "Front Matter", true},
		{"xyz", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			b, ok := Lookup(tt.code)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.code, ok, tt.ok)
			}
			if b.Number != tt.number {
				t.Errorf("number = %q, want %q", b.Number, tt.number)
			}
			if b.Name != tt.name {
				t.Errorf("name = %q, want %q", b.Name, tt.name)
			}
		})
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 66 {
		t.Fatalf("expected 66 canonical books, got %d", len(all))
	}
	if all[0].Code != "gen" || all[65].Code != "rev" {
		t.Errorf("unexpected ordering: first=%s last=%s", all[0].Code, all[65].Code)
	}
}

func TestVerseCount(t *testing.T) {
	if n, ok := VerseCount("psa", 119); !ok || n != 176 {
		t.Errorf("VerseCount(psa, 119) = %d, %v", n, ok)
	}
	if n, ok := VerseCount("gen", 1); !ok || n != 31 {
		t.Errorf("VerseCount(gen, 1) = %d, %v", n, ok)
	}
	if _, ok := VerseCount("gen", 51); ok {
		t.Error("expected no chapter 51 in Genesis")
	}
	if _, ok := VerseCount("frt", 1); ok {
		t.Error("expected no verse counts for front matter")
	}
}

func TestFilename(t *testing.T) {
	name, ok := Filename("exo", "usfm")
	if !ok || name != "02-EXO.usfm" {
		t.Errorf("Filename(exo) = %q, %v", name, ok)
	}
	if _, ok := Filename("nope", "md"); ok {
		t.Error("expected unknown code to fail")
	}
}
