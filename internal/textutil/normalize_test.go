package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeScript(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "The Quick", "the quick"},
		{"punctuation", "Hello, world!", "hello world"},
		{"apostrophe", "Don't", "dont"},
		{"hyphen and underscore", "well-known_fact", "wellknownfact"},
		{"brackets and symbols", "{x}=(y)~`z`$#", "xyz"},
		{"trim", "  spaced out.  ", "spaced out"},
		{"kept characters", `"quoted" & more`, `"quoted" & more`},
		{"only punctuation", "...!?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeScript(tt.in); got != tt.want {
				t.Fatalf("NormalizeScript(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestScriptTokens(t *testing.T) {
	got := ScriptTokens("  The   quick,\tbrown\nfox. ")
	want := []string{"the", "quick", "brown", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ScriptTokens = %v, want %v", got, want)
	}
	if tokens := ScriptTokens("-- ; --"); len(tokens) != 0 {
		t.Fatalf("expected no tokens for punctuation-only text, got %v", tokens)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		" intro: part 1/2? ":  "intro- part 1-2",
		"   ":                 "",
		"a\tb   c":           "a b c",
		"..hidden":            "hidden",
		"<|>":                 "",
		"keynote*final.draft": "keynote-final.draft",
	}
	for input, want := range tests {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDerivedFileName(t *testing.T) {
	if got := DerivedFileName("/tmp/my: talk.mp3", "transcript", ".json"); got != "my- talk.json" {
		t.Fatalf("DerivedFileName = %q", got)
	}
	if got := DerivedFileName("dir/???.json", "plan", ".srt"); got != "plan.srt" {
		t.Fatalf("expected fallback name, got %q", got)
	}
	if got := DerivedFileName("", "plan", ".yaml"); got != "plan.yaml" {
		t.Fatalf("expected fallback for empty source, got %q", got)
	}
}
