// Package audio turns the client's compressed audio stream into PCM.
// It implements Ogg container framing with stream-start alignment, delegates
// packet decoding to an injected Opus codec, and provides WAV encoding for
// on-disk session recordings.
package audio
