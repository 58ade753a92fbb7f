package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// scriptPunctuation removes the characters ignored when matching script text
// against transcript words.
var scriptPunctuation = strings.NewReplacer(
	".", "",
	",", "",
	"'", "",
	"#", "",
	"!", "",
	"?", "",
	"$", "",
	";", "",
	":", "",
	"{", "",
	"}", "",
	"=", "",
	"-", "",
	"_", "",
	"`", "",
	"~", "",
	"(", "",
	")", "",
)

// NormalizeScript lowercases text, strips ignored punctuation and trims the
// result.
func NormalizeScript(text string) string {
	if text == "" {
		return ""
	}
	// Casers keep internal state and are not safe to share between goroutines.
	lowered := cases.Lower(language.Und).String(text)
	return strings.TrimSpace(scriptPunctuation.Replace(lowered))
}

// ScriptTokens normalizes text and splits it on whitespace. Empty tokens are
// dropped, so text made only of punctuation yields no tokens.
func ScriptTokens(text string) []string {
	normalized := NormalizeScript(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
