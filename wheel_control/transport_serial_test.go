package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vesc-drive-core/utils"
	control "vesc-drive-core/wheel_control/motor_control"
)

func TestDecodePayloadValues(t *testing.T) {
	payload := utils.EncodeValues(utils.VescValues{
		MotorCurrent: 12.5,
		ERPM:         -3000,
		Duty:         0.25,
		InputVoltage: 36.0,
		Tachometer:   777,
	})

	samples := decodePayload(payload)
	require.Len(t, samples, 1)

	vs, ok := samples[0].(control.ValuesSample)
	require.True(t, ok)
	require.InDelta(t, 12.5, vs.MotorCurrent, 1e-9)
	require.InDelta(t, -3000.0, vs.VelocityERPM, 1e-9)
	require.InDelta(t, 0.25, vs.Duty, 1e-9)
	require.InDelta(t, 36.0, vs.InputVoltage, 1e-9)
	require.Equal(t, int32(777), vs.PositionCount)
}

func TestDecodePayloadFault(t *testing.T) {
	// A set fault code yields a FaultSample alongside the values.
	payload := utils.EncodeValues(utils.VescValues{
		MotorCurrent: 1.0,
		Tachometer:   5,
		Fault:        4,
	})

	samples := decodePayload(payload)
	require.Len(t, samples, 2)

	fs, ok := samples[1].(control.FaultSample)
	require.True(t, ok)
	require.Equal(t, uint8(4), fs.Code)
	require.Equal(t, "ABS_OVER_CURRENT", fs.Name)
}

func TestDecodePayloadIgnoresUnknownKinds(t *testing.T) {
	require.Empty(t, decodePayload([]byte{0x63, 0x01}))
	require.Empty(t, decodePayload(nil))

	// A truncated Values payload is dropped, not misparsed.
	require.Empty(t, decodePayload([]byte{utils.CommGetValues, 0x00}))
}
