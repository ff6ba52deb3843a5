package audio

import (
	"encoding/binary"
	"fmt"
)

// Ogg page framing constants
const (
	pageHeaderSize = 27

	// Header type flags (byte 5 of the page header)
	FlagContinued     = 0x01
	FlagBeginOfStream = 0x02
	FlagEndOfStream   = 0x04
)

var capturePattern = [4]byte{'O', 'g', 'g', 'S'}

// Page represents one parsed Ogg page.
type Page struct {
	HeaderType uint8
	GranulePos uint64
	Serial     uint32
	Sequence   uint32
	Packets    [][]byte
}

// IsBeginOfStream reports whether the beginning-of-stream flag is set.
func (p *Page) IsBeginOfStream() bool {
	return p.HeaderType&FlagBeginOfStream != 0
}

// IsEndOfStream reports whether the end-of-stream flag is set.
func (p *Page) IsEndOfStream() bool {
	return p.HeaderType&FlagEndOfStream != 0
}

// HasBeginOfStreamMarker reports whether a raw packet looks like the first
// page of a fresh Ogg stream without fully parsing it. Used to discard stale
// packets replayed from a previous connection.
func HasBeginOfStreamMarker(data []byte) bool {
	if len(data) < 6 {
		return false
	}
	if [4]byte(data[0:4]) != capturePattern {
		return false
	}
	return data[5]&FlagBeginOfStream != 0
}

// ParsePage parses a single Ogg page: header, lacing table, and the packet
// payloads described by it.
//
// Packets spanning page boundaries are treated as complete within their page;
// the clients this service talks to flush one page per transmit and never
// split packets.
func ParsePage(data []byte) (*Page, error) {
	if len(data) < pageHeaderSize {
		return nil, fmt.Errorf("page too short: expected at least %d bytes, got %d", pageHeaderSize, len(data))
	}

	if [4]byte(data[0:4]) != capturePattern {
		return nil, fmt.Errorf("invalid capture pattern: 0x%02x%02x%02x%02x", data[0], data[1], data[2], data[3])
	}

	if version := data[4]; version != 0 {
		return nil, fmt.Errorf("unsupported stream structure version: %d", version)
	}

	page := &Page{
		HeaderType: data[5],
		GranulePos: binary.LittleEndian.Uint64(data[6:14]),
		Serial:     binary.LittleEndian.Uint32(data[14:18]),
		Sequence:   binary.LittleEndian.Uint32(data[18:22]),
	}

	segmentCount := int(data[26])
	if len(data) < pageHeaderSize+segmentCount {
		return nil, fmt.Errorf("lacing table truncated: expected %d segment entries, got %d bytes",
			segmentCount, len(data)-pageHeaderSize)
	}

	lacing := data[pageHeaderSize : pageHeaderSize+segmentCount]
	body := data[pageHeaderSize+segmentCount:]

	var bodySize int
	for _, l := range lacing {
		bodySize += int(l)
	}
	if len(body) < bodySize {
		return nil, fmt.Errorf("page body truncated: lacing table describes %d bytes, got %d", bodySize, len(body))
	}

	// Walk the lacing table: a packet ends at every segment shorter than 255.
	var packet []byte
	offset := 0
	for _, l := range lacing {
		packet = append(packet, body[offset:offset+int(l)]...)
		offset += int(l)
		if l < 255 {
			page.Packets = append(page.Packets, packet)
			packet = nil
		}
	}
	// A trailing 255 segment means the packet continues on the next page.
	// See the note above: treat it as complete.
	if len(packet) > 0 {
		page.Packets = append(page.Packets, packet)
	}

	return page, nil
}
