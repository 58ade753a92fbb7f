// Package textutil provides text processing helpers shared by the aligner and
// the CLI.
//
// The primary use cases are:
//   - Normalizing script text and transcript words so they compare equal
//     regardless of case and punctuation
//   - Splitting normalized script text into match tokens
//   - Sanitizing filenames derived from user input
//
// Normalization lowercases with golang.org/x/text/cases, removes a fixed set of
// punctuation characters, and trims surrounding whitespace. The punctuation set
// is deliberately narrow: characters outside it (for example '"' or '&') are
// kept and must match literally.
package textutil
