package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrc16Xmodem(t *testing.T) {
	// CRC-16/XMODEM check value.
	require.Equal(t, uint16(0x31C3), Crc16([]byte("123456789")))
	require.Equal(t, uint16(0), Crc16(nil))
}

func TestEncodePacketShortFrame(t *testing.T) {
	payload := EncodeSetDuty(0.5)
	require.Equal(t, []byte{CommSetDuty, 0x00, 0x00, 0xC3, 0x50}, payload)

	pkt, err := EncodePacket(payload)
	require.NoError(t, err)
	require.Equal(t, byte(0x02), pkt[0])
	require.Equal(t, byte(len(payload)), pkt[1])
	require.Equal(t, byte(0x03), pkt[len(pkt)-1])
	require.Equal(t, len(payload)+5, len(pkt))
}

func TestEncodePacketLongFrame(t *testing.T) {
	payload := make([]byte, 300)
	payload[0] = CommGetValues

	pkt, err := EncodePacket(payload)
	require.NoError(t, err)
	require.Equal(t, byte(0x03), pkt[0])
	require.Equal(t, 300, int(pkt[1])<<8|int(pkt[2]))

	var d PacketDeframer
	out := d.Feed(pkt)
	require.Len(t, out, 1)
	require.True(t, bytes.Equal(payload, out[0]))
}

func TestEncodePacketRejectsBadSizes(t *testing.T) {
	_, err := EncodePacket(nil)
	require.Error(t, err)
	_, err = EncodePacket(make([]byte, MaxPayload+1))
	require.Error(t, err)
}

func TestDeframerPartialAndNoisyStream(t *testing.T) {
	payload := EncodeSetDuty(-0.25)
	pkt, err := EncodePacket(payload)
	require.NoError(t, err)

	// Noise before the frame, delivered in three fragments.
	stream := append([]byte{0xFF, 0x11, 0x00}, pkt...)

	var d PacketDeframer
	require.Empty(t, d.Feed(stream[:4]))
	require.Empty(t, d.Feed(stream[4:6]))
	out := d.Feed(stream[6:])
	require.Len(t, out, 1)
	require.Equal(t, payload, out[0])
	require.Equal(t, 3, d.Dropped)
}

func TestDeframerRejectsCorruptCRC(t *testing.T) {
	payload := EncodeSetDuty(1.0)
	pkt, err := EncodePacket(payload)
	require.NoError(t, err)
	pkt[3] ^= 0xFF // flip a payload byte

	var d PacketDeframer
	require.Empty(t, d.Feed(pkt))
	require.NotZero(t, d.Dropped)
}

func TestDeframerBackToBackFrames(t *testing.T) {
	a, err := EncodePacket(EncodeGetValuesRequest())
	require.NoError(t, err)
	b, err := EncodePacket(EncodeSetDuty(0.1))
	require.NoError(t, err)

	var d PacketDeframer
	out := d.Feed(append(a, b...))
	require.Len(t, out, 2)
	require.Equal(t, []byte{CommGetValues}, out[0])
	require.Equal(t, byte(CommSetDuty), out[1][0])
}

func TestValuesRoundTrip(t *testing.T) {
	in := VescValues{
		TempFET:      25.5,
		TempMotor:    40.1,
		MotorCurrent: 12.34,
		InputCurrent: 3.21,
		Duty:         -0.123,
		ERPM:         -5000,
		InputVoltage: 36.7,
		Tachometer:   -12345,
		TachometerAbs: 12345,
		Fault:        4,
	}

	payload := EncodeValues(in)
	require.Equal(t, valuesPayloadLen, len(payload))

	out, err := DecodeValues(payload)
	require.NoError(t, err)
	require.InDelta(t, in.TempFET, out.TempFET, 1e-9)
	require.InDelta(t, in.MotorCurrent, out.MotorCurrent, 1e-9)
	require.InDelta(t, in.Duty, out.Duty, 1e-9)
	require.InDelta(t, in.ERPM, out.ERPM, 1e-9)
	require.InDelta(t, in.InputVoltage, out.InputVoltage, 1e-9)
	require.Equal(t, in.Tachometer, out.Tachometer)
	require.Equal(t, in.TachometerAbs, out.TachometerAbs)
	require.Equal(t, in.Fault, out.Fault)
}

func TestDecodeValuesRejectsMalformed(t *testing.T) {
	_, err := DecodeValues(nil)
	require.Error(t, err)

	_, err = DecodeValues([]byte{CommSetDuty, 0, 0})
	require.Error(t, err)

	_, err = DecodeValues([]byte{CommGetValues, 0, 0})
	require.Error(t, err)
}

func TestFaultString(t *testing.T) {
	require.Equal(t, "NONE", FaultString(0))
	require.Equal(t, "ABS_OVER_CURRENT", FaultString(4))
	require.Equal(t, "UNKNOWN(99)", FaultString(99))
}
