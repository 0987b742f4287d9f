package utils

// Little-endian signals are packed into a uint64 view of the payload
// (byte 0 = least significant). Big-endian signals are byte-aligned and
// handled directly on the byte slice.

func getBitsLittle(data []byte, startBit, bitLen int) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return 0
	}
	var payload uint64
	for i := 0; i < len(data) && i < 8; i++ {
		payload |= uint64(data[i]) << (8 * i)
	}
	mask := maskBits(bitLen)
	return (payload >> startBit) & mask
}

func setBitsLittle(data []byte, startBit, bitLen int, value uint64) {
	if bitLen <= 0 || bitLen > 64 {
		return
	}
	var payload uint64
	for i := 0; i < len(data) && i < 8; i++ {
		payload |= uint64(data[i]) << (8 * i)
	}
	mask := maskBits(bitLen)
	payload &^= mask << startBit
	payload |= (value & mask) << startBit
	for i := 0; i < len(data) && i < 8; i++ {
		data[i] = byte(payload >> (8 * i))
	}
}

func getBitsBig(data []byte, startBit, bitLen int) uint64 {
	startByte := startBit / 8
	numBytes := bitLen / 8
	var v uint64
	for i := 0; i < numBytes && startByte+i < len(data); i++ {
		v = v<<8 | uint64(data[startByte+i])
	}
	return v
}

func setBitsBig(data []byte, startBit, bitLen int, value uint64) {
	startByte := startBit / 8
	numBytes := bitLen / 8
	for i := 0; i < numBytes && startByte+i < len(data); i++ {
		shift := 8 * (numBytes - 1 - i)
		data[startByte+i] = byte(value >> shift)
	}
}

func maskBits(bitLen int) uint64 {
	if bitLen >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bitLen) - 1
}

func unsignedToRawInt64(u uint64, bitLen int, signed bool) int64 {
	if !signed || bitLen >= 64 {
		return int64(u)
	}
	signBit := uint64(1) << (bitLen - 1)
	if (u & signBit) == 0 {
		return int64(u)
	}
	twos := (^u + 1) & maskBits(bitLen)
	return -int64(twos)
}

func rawToUnsigned(raw int64, bitLen int) uint64 {
	return uint64(raw) & maskBits(bitLen)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRaw(raw int64, bitLen int, signed bool) int64 {
	if bitLen <= 0 || bitLen > 63 {
		return raw
	}
	if !signed {
		max := int64(1)<<bitLen - 1
		if raw < 0 {
			return 0
		}
		if raw > max {
			return max
		}
		return raw
	}
	min := -int64(1) << (bitLen - 1)
	max := int64(1)<<(bitLen-1) - 1
	if raw < min {
		return min
	}
	if raw > max {
		return max
	}
	return raw
}
