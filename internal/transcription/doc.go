// Package transcription implements the HTTP client for the transcription
// backend and the streamer that batches decoded audio into backend calls.
// The client bounds concurrent requests with a semaphore; the streamer owns
// packet decoding, batch accumulation with size and idle-timeout flushing,
// and the running transcript buffer.
package transcription
