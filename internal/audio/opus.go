package audio

import (
	"fmt"

	"github.com/pion/opus"
)

// maxFrameBytes is sized for the largest Opus frame this service accepts:
// 120ms of mono audio at 48kHz, two bytes per sample.
const maxFrameBytes = 5760 * 2

// OpusCodec decodes raw Opus packets using the pure-Go pion decoder.
type OpusCodec struct {
	decoder opus.Decoder
	out     []byte
}

// NewOpusCodec creates a new Opus codec instance. One instance serves one
// stream; the decoder carries inter-frame state.
func NewOpusCodec() *OpusCodec {
	return &OpusCodec{
		decoder: opus.NewDecoder(),
		out:     make([]byte, maxFrameBytes),
	}
}

// Decode decodes one Opus packet into mono float32 PCM in [-1, 1]. The
// returned slice covers exactly the packet's own frame duration at the
// stream's coded sample rate; the scratch buffer's tail is never included.
func (c *OpusCodec) Decode(packet []byte) ([]float32, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	bandwidth, _, err := c.decoder.Decode(packet, c.out)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}

	n, err := packetSampleCount(packet, bandwidthSampleRate(bandwidth))
	if err != nil {
		return nil, err
	}
	if n > len(c.out)/2 {
		n = len(c.out) / 2
	}

	// The pion decoder writes S16LE into the scratch buffer.
	samples := make([]float32, n)
	for i := range samples {
		s := int16(c.out[i*2]) | int16(c.out[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}

	return samples, nil
}

// packetSampleCount derives a packet's PCM sample count from its TOC byte:
// per-frame duration (RFC 6716 section 3.1) times the frame count, at the
// given sample rate.
func packetSampleCount(packet []byte, rate int) (int, error) {
	toc := packet[0]
	config := toc >> 3

	// Frame duration in quarter-milliseconds.
	var quarterMs int
	switch {
	case config < 12: // SILK-only
		quarterMs = [4]int{40, 80, 160, 240}[config&0x3]
	case config < 16: // hybrid
		quarterMs = [2]int{40, 80}[config&0x1]
	default: // CELT-only
		quarterMs = [4]int{10, 20, 40, 80}[config&0x3]
	}

	var frames int
	switch toc & 0x3 {
	case 0:
		frames = 1
	case 1, 2:
		frames = 2
	default:
		if len(packet) < 2 {
			return 0, fmt.Errorf("truncated multi-frame packet")
		}
		frames = int(packet[1] & 0x3F)
		if frames == 0 {
			return 0, fmt.Errorf("multi-frame packet with zero frames")
		}
	}

	return frames * quarterMs * rate / 4000, nil
}

// bandwidthSampleRate maps the decoded bandwidth to its coded sample rate.
func bandwidthSampleRate(b opus.Bandwidth) int {
	switch b {
	case opus.BandwidthNarrowband:
		return 8000
	case opus.BandwidthMediumband:
		return 12000
	case opus.BandwidthWideband:
		return 16000
	case opus.BandwidthSuperwideband:
		return 24000
	case opus.BandwidthFullband:
		return 48000
	default:
		return 16000
	}
}
