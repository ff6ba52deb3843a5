package audio

import (
	"bytes"
	"fmt"
)

// Codec decodes one compressed audio packet into mono PCM samples. The
// concrete codec is injected; the decoder in this package only owns container
// framing and stream alignment.
type Codec interface {
	Decode(packet []byte) ([]float32, error)
}

// DecodeError reports a well-formed-but-corrupt packet. Callers surface it as
// a protocol error event; the stream itself stays usable.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Opus header packet magic signatures, carried in the first pages of a stream.
var (
	opusHeadMagic = []byte("OpusHead")
	opusTagsMagic = []byte("OpusTags")
)

// MetricsRecorder receives per-packet decode observations. Satisfied by
// *metrics.Metrics; nil disables recording.
type MetricsRecorder interface {
	RecordPacketDecoded()
	RecordPacketGated()
	RecordDecodeError()
}

// FrameDecoder turns a stream of Ogg-framed Opus packets into PCM sample
// batches.
//
// Until the first page carrying the beginning-of-stream flag is observed,
// every packet is dropped silently: a reconnecting client may replay buffered
// pages from its previous connection, and feeding those into a fresh codec
// state corrupts the output.
type FrameDecoder struct {
	codec   Codec
	metrics MetricsRecorder
	started bool

	packetsDropped uint64
	packetsDecoded uint64
}

// NewFrameDecoder creates a frame decoder around the given codec. metrics
// may be nil.
func NewFrameDecoder(codec Codec, metrics MetricsRecorder) *FrameDecoder {
	return &FrameDecoder{codec: codec, metrics: metrics}
}

// Append feeds one compressed packet to the decoder and returns any PCM
// produced. The returned slice is empty for dropped packets and for header
// pages (OpusHead/OpusTags).
func (d *FrameDecoder) Append(packet []byte) ([]float32, error) {
	if !d.started {
		if !HasBeginOfStreamMarker(packet) {
			d.packetsDropped++
			if d.metrics != nil {
				d.metrics.RecordPacketGated()
			}
			return nil, nil
		}
		d.started = true
	}

	page, err := ParsePage(packet)
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordDecodeError()
		}
		return nil, &DecodeError{Reason: "invalid container page", Err: err}
	}

	var pcm []float32
	for _, p := range page.Packets {
		if isHeaderPacket(p) {
			continue
		}

		samples, err := d.codec.Decode(p)
		if err != nil {
			if d.metrics != nil {
				d.metrics.RecordDecodeError()
			}
			return nil, &DecodeError{Reason: "corrupt audio packet", Err: err}
		}
		pcm = append(pcm, samples...)
	}

	d.packetsDecoded++
	if d.metrics != nil {
		d.metrics.RecordPacketDecoded()
	}
	return pcm, nil
}

// Started reports whether a valid stream start has been observed.
func (d *FrameDecoder) Started() bool {
	return d.started
}

// Stats returns the number of packets dropped before stream start and the
// number decoded since.
func (d *FrameDecoder) Stats() (dropped, decoded uint64) {
	return d.packetsDropped, d.packetsDecoded
}

func isHeaderPacket(p []byte) bool {
	return bytes.HasPrefix(p, opusHeadMagic) || bytes.HasPrefix(p, opusTagsMagic)
}
