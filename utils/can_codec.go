package utils

import (
	"fmt"
	"math"

	"go.einride.tech/can"
)

// EncodeFrame builds a transmit-ready frame from physical signal values.
// Signals not present in values fall back to their CSV defaults.
func (m *FrameMap) EncodeFrame(frameName string, values map[string]float64) (can.Frame, error) {
	fd, err := m.FrameByName(frameName)
	if err != nil {
		return can.Frame{}, err
	}

	data := make([]byte, fd.DLC)
	for i := range fd.Signals {
		s := &fd.Signals[i]
		v, ok := values[s.Name]
		if !ok {
			v = s.Default
		}
		v = clamp(v, s.Min, s.Max)

		raw := int64(math.Round((v - s.Offset) / s.Factor))
		raw = clampRaw(raw, s.BitLength, s.Signed)
		u := rawToUnsigned(raw, s.BitLength)

		if s.Endianness == "big" {
			setBitsBig(data, s.StartBit, s.BitLength, u)
		} else {
			setBitsLittle(data, s.StartBit, s.BitLength, u)
		}
	}

	var f can.Frame
	f.ID = fd.ID
	f.IsExtended = fd.Extended
	f.Length = uint8(fd.DLC)
	copy(f.Data[:], data)
	return f, nil
}

// DecodeFrame resolves a received frame against the map and returns the
// frame name with its physical signal values.
func (m *FrameMap) DecodeFrame(frame can.Frame) (string, map[string]float64, error) {
	fd, err := m.FrameByID(frame.ID)
	if err != nil {
		return "", nil, err
	}
	if int(frame.Length) < fd.DLC {
		return "", nil, fmt.Errorf("frame 0x%X expects DLC %d, got %d", frame.ID, fd.DLC, frame.Length)
	}

	data := frame.Data[:fd.DLC]
	out := make(map[string]float64, len(fd.Signals))
	for i := range fd.Signals {
		s := &fd.Signals[i]
		var u uint64
		if s.Endianness == "big" {
			u = getBitsBig(data, s.StartBit, s.BitLength)
		} else {
			u = getBitsLittle(data, s.StartBit, s.BitLength)
		}
		raw := unsignedToRawInt64(u, s.BitLength, s.Signed)
		out[s.Name] = float64(raw)*s.Factor + s.Offset
	}
	return fd.Name, out, nil
}
