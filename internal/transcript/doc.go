// Package transcript defines the word-level transcript returned by the speech
// service and a SQLite-backed cache of those transcripts.
//
// Word timestamps are integer milliseconds exactly as the speech service
// reports them; conversion to seconds happens in the scene aligner. The cache
// is keyed by the SHA-256 digest of the uploaded audio so re-running the CLI on
// the same file skips the upload and polling round trip.
package transcript
