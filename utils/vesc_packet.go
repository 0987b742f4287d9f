package utils

import (
	"encoding/binary"
	"fmt"
)

// VESC UART framing. A packet is:
//
//	0x02 <len:1> <payload> <crc16:2> 0x03   for payloads up to 255 bytes
//	0x03 <len:2> <payload> <crc16:2> 0x03   for longer payloads
//
// The CRC is CRC-16/XMODEM (poly 0x1021, init 0) over the payload only.
const (
	startShort = 0x02
	startLong  = 0x03
	packetEnd  = 0x03

	// MaxPayload bounds accepted payload sizes. The firmware caps its
	// own buffers at 512 bytes.
	MaxPayload = 512
)

// Crc16 computes CRC-16/XMODEM over data.
func Crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// EncodePacket wraps a command payload in VESC framing.
func EncodePacket(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayload)
	}

	var out []byte
	if len(payload) <= 255 {
		out = make([]byte, 0, len(payload)+5)
		out = append(out, startShort, byte(len(payload)))
	} else {
		out = make([]byte, 0, len(payload)+6)
		out = append(out, startLong, byte(len(payload)>>8), byte(len(payload)))
	}
	out = append(out, payload...)
	crc := Crc16(payload)
	out = append(out, byte(crc>>8), byte(crc), packetEnd)
	return out, nil
}

// PacketDeframer reassembles VESC packets from a raw serial byte stream.
// Partial reads are buffered across Feed calls; bytes that cannot start a
// valid packet (noise, framing slips, CRC failures) are skipped one at a
// time until a valid start byte lines up again.
type PacketDeframer struct {
	buf []byte

	// Dropped counts bytes discarded while hunting for a valid frame.
	Dropped int
}

// Feed appends data to the stream buffer and returns all complete,
// CRC-valid payloads found.
func (d *PacketDeframer) Feed(data []byte) [][]byte {
	d.buf = append(d.buf, data...)

	var payloads [][]byte
	for {
		payload, consumed := d.scan()
		if consumed == 0 {
			break
		}
		d.buf = d.buf[consumed:]
		if payload != nil {
			payloads = append(payloads, payload)
		}
	}

	// Bound memory if the stream never produces a valid frame.
	if len(d.buf) > 2*MaxPayload {
		drop := len(d.buf) - 2*MaxPayload
		d.buf = d.buf[drop:]
		d.Dropped += drop
	}
	return payloads
}

// scan attempts to extract one packet from the head of the buffer. It
// returns the payload (nil if the head byte had to be discarded) and the
// number of bytes consumed; 0 consumed means more data is needed.
func (d *PacketDeframer) scan() ([]byte, int) {
	if len(d.buf) == 0 {
		return nil, 0
	}

	var headerLen, payloadLen int
	switch d.buf[0] {
	case startShort:
		if len(d.buf) < 2 {
			return nil, 0
		}
		headerLen = 2
		payloadLen = int(d.buf[1])
	case startLong:
		if len(d.buf) < 3 {
			return nil, 0
		}
		headerLen = 3
		payloadLen = int(d.buf[1])<<8 | int(d.buf[2])
	default:
		d.Dropped++
		return nil, 1
	}

	if payloadLen == 0 || payloadLen > MaxPayload {
		d.Dropped++
		return nil, 1
	}

	total := headerLen + payloadLen + 3
	if len(d.buf) < total {
		return nil, 0
	}

	payload := d.buf[headerLen : headerLen+payloadLen]
	crc := uint16(d.buf[headerLen+payloadLen])<<8 | uint16(d.buf[headerLen+payloadLen+1])
	if d.buf[total-1] != packetEnd || Crc16(payload) != crc {
		d.Dropped++
		return nil, 1
	}

	out := make([]byte, payloadLen)
	copy(out, payload)
	return out, total
}

// payloadReader reads big-endian scaled integers out of a VESC payload,
// accumulating the first error instead of returning one per field.
type payloadReader struct {
	b   []byte
	off int
	err error
}

func (r *payloadReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.b) {
		r.err = fmt.Errorf("payload truncated at offset %d", r.off)
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *payloadReader) i16() int16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.b) {
		r.err = fmt.Errorf("payload truncated at offset %d", r.off)
		return 0
	}
	v := int16(binary.BigEndian.Uint16(r.b[r.off:]))
	r.off += 2
	return v
}

func (r *payloadReader) i32() int32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.b) {
		r.err = fmt.Errorf("payload truncated at offset %d", r.off)
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.b[r.off:]))
	r.off += 4
	return v
}

func (r *payloadReader) f16(scale float64) float64 { return float64(r.i16()) / scale }
func (r *payloadReader) f32(scale float64) float64 { return float64(r.i32()) / scale }

// payloadWriter is the encode-side counterpart of payloadReader.
type payloadWriter struct {
	b []byte
}

func (w *payloadWriter) u8(v uint8) { w.b = append(w.b, v) }

func (w *payloadWriter) i16(v int16) {
	w.b = append(w.b, byte(uint16(v)>>8), byte(uint16(v)))
}

func (w *payloadWriter) i32(v int32) {
	w.b = append(w.b, byte(uint32(v)>>24), byte(uint32(v)>>16), byte(uint32(v)>>8), byte(uint32(v)))
}

func (w *payloadWriter) f16(v, scale float64) { w.i16(int16(v * scale)) }
func (w *payloadWriter) f32(v, scale float64) { w.i32(int32(v * scale)) }
