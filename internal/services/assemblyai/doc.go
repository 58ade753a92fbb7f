// Package assemblyai drives the AssemblyAI speech-to-text REST API.
//
// Transcribe uploads raw audio, creates a transcription job and polls it at a
// fixed interval until the job completes or fails. There is no backoff and no
// attempt cap; only a terminal job status or context cancellation ends the
// loop. Failures are wrapped with services markers so the workflow can report
// a single user-facing message.
package assemblyai
