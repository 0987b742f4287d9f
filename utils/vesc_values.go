package utils

import "fmt"

// VESC UART command identifiers. Only the subset this service speaks is
// listed; the firmware defines many more.
const (
	CommFWVersion  = 0
	CommGetValues  = 4
	CommSetDuty    = 5
	CommSetCurrent = 6
	CommSetRPM     = 8
	CommAlive      = 30
)

// dutyScale is the fixed-point scale the firmware uses for duty cycle
// commands: duty 1.0 is transmitted as 100000.
const dutyScale = 100000.0

// VescValues is the decoded COMM_GET_VALUES state sample.
type VescValues struct {
	TempFET          float64 // deg C
	TempMotor        float64 // deg C
	MotorCurrent     float64 // A
	InputCurrent     float64 // A
	CurrentID        float64 // A
	CurrentIQ        float64 // A
	Duty             float64 // [-1, 1]
	ERPM             float64 // electrical RPM
	InputVoltage     float64 // V
	AmpHours         float64 // Ah
	AmpHoursCharged  float64 // Ah
	WattHours        float64 // Wh
	WattHoursCharged float64 // Wh
	Tachometer       int32   // hall pulse count, wraps in hardware
	TachometerAbs    int32
	Fault            uint8
}

// valuesPayloadLen is the fixed part of the COMM_GET_VALUES payload
// including the command id byte. Newer firmwares append optional fields
// after it, which are ignored here.
const valuesPayloadLen = 54

// DecodeValues parses a COMM_GET_VALUES payload (command id included).
func DecodeValues(payload []byte) (VescValues, error) {
	if len(payload) < 1 || payload[0] != CommGetValues {
		return VescValues{}, fmt.Errorf("not a GET_VALUES payload")
	}
	if len(payload) < valuesPayloadLen {
		return VescValues{}, fmt.Errorf("GET_VALUES payload too short: %d bytes", len(payload))
	}

	r := payloadReader{b: payload, off: 1}
	v := VescValues{
		TempFET:          r.f16(10),
		TempMotor:        r.f16(10),
		MotorCurrent:     r.f32(100),
		InputCurrent:     r.f32(100),
		CurrentID:        r.f32(100),
		CurrentIQ:        r.f32(100),
		Duty:             r.f16(1000),
		ERPM:             r.f32(1),
		InputVoltage:     r.f16(10),
		AmpHours:         r.f32(10000),
		AmpHoursCharged:  r.f32(10000),
		WattHours:        r.f32(10000),
		WattHoursCharged: r.f32(10000),
		Tachometer:       r.i32(),
		TachometerAbs:    r.i32(),
		Fault:            r.u8(),
	}
	if r.err != nil {
		return VescValues{}, r.err
	}
	return v, nil
}

// EncodeValues builds a COMM_GET_VALUES payload. A real drive produces
// these; the encoder exists for loopback tests and simulators.
func EncodeValues(v VescValues) []byte {
	w := payloadWriter{}
	w.u8(CommGetValues)
	w.f16(v.TempFET, 10)
	w.f16(v.TempMotor, 10)
	w.f32(v.MotorCurrent, 100)
	w.f32(v.InputCurrent, 100)
	w.f32(v.CurrentID, 100)
	w.f32(v.CurrentIQ, 100)
	w.f16(v.Duty, 1000)
	w.f32(v.ERPM, 1)
	w.f16(v.InputVoltage, 10)
	w.f32(v.AmpHours, 10000)
	w.f32(v.AmpHoursCharged, 10000)
	w.f32(v.WattHours, 10000)
	w.f32(v.WattHoursCharged, 10000)
	w.i32(v.Tachometer)
	w.i32(v.TachometerAbs)
	w.u8(v.Fault)
	return w.b
}

// EncodeSetDuty builds a COMM_SET_DUTY payload. The caller is expected
// to have clamped duty to [-1, 1] already.
func EncodeSetDuty(duty float64) []byte {
	w := payloadWriter{}
	w.u8(CommSetDuty)
	w.f32(duty, dutyScale)
	return w.b
}

// EncodeGetValuesRequest builds the state poll payload.
func EncodeGetValuesRequest() []byte {
	return []byte{CommGetValues}
}

// FaultString names the firmware fault codes that matter for drive
// supervision.
func FaultString(code uint8) string {
	switch code {
	case 0:
		return "NONE"
	case 1:
		return "OVER_VOLTAGE"
	case 2:
		return "UNDER_VOLTAGE"
	case 3:
		return "DRV"
	case 4:
		return "ABS_OVER_CURRENT"
	case 5:
		return "OVER_TEMP_FET"
	case 6:
		return "OVER_TEMP_MOTOR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", code)
	}
}
