package textutil

import (
	"path/filepath"
	"strings"
)

var unsafeNameChars = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns a label into a single safe path segment. The result
// is empty when nothing usable remains.
func SanitizeFileName(name string) string {
	name = unsafeNameChars.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	return strings.TrimLeft(name, ". ")
}

// DerivedFileName names an output after source with its extension replaced by
// ext, falling back to fallback when the source stem sanitizes to nothing.
func DerivedFileName(source, fallback, ext string) string {
	base := filepath.Base(strings.TrimSpace(source))
	stem := SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = fallback
	}
	return stem + ext
}
