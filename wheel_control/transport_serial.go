package main

import (
	"context"
	"fmt"

	"vesc-drive-core/utils"
	control "vesc-drive-core/wheel_control/motor_control"
)

// DriveTransport is a control.DriveInterface that also sources decoded
// samples from the physical drive.
type DriveTransport interface {
	control.DriveInterface
	// Run decodes incoming drive traffic into samples until ctx ends.
	Run(ctx context.Context, samples chan<- control.Sample) error
	Close() error
}

// SerialTransport speaks the VESC UART protocol over a serial port.
type SerialTransport struct {
	dev *utils.SerialDrive
	log *utils.Logger
}

func NewSerialTransport(portName string, baudRate int, log *utils.Logger) (*SerialTransport, error) {
	dev, err := utils.NewSerialDrive(portName, baudRate)
	if err != nil {
		return nil, err
	}
	return &SerialTransport{dev: dev, log: log}, nil
}

func (t *SerialTransport) SetDutyCycle(duty float64) error {
	return t.dev.WritePacket(utils.EncodeSetDuty(duty))
}

func (t *SerialTransport) RequestState() error {
	return t.dev.WritePacket(utils.EncodeGetValuesRequest())
}

// Run reads and decodes drive packets. Samples are delivered best-effort:
// if the channel is full the sample is dropped, never blocking the read.
func (t *SerialTransport) Run(ctx context.Context, samples chan<- control.Sample) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		payloads, err := t.dev.ReadPackets()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("drive rx: %w", err)
		}

		for _, p := range payloads {
			for _, s := range decodePayload(p) {
				select {
				case samples <- s:
				default:
					// channel full, skip
				}
			}
		}
	}
}

func (t *SerialTransport) Close() error {
	return t.dev.Close()
}

// decodePayload maps one VESC payload to zero or more samples.
func decodePayload(payload []byte) []control.Sample {
	if len(payload) == 0 {
		return nil
	}
	switch payload[0] {
	case utils.CommGetValues:
		vals, err := utils.DecodeValues(payload)
		if err != nil {
			return nil
		}
		out := []control.Sample{control.ValuesSample{
			MotorCurrent:  vals.MotorCurrent,
			VelocityERPM:  vals.ERPM,
			PositionCount: vals.Tachometer,
			Duty:          vals.Duty,
			InputVoltage:  vals.InputVoltage,
		}}
		if vals.Fault != 0 {
			out = append(out, control.FaultSample{
				Code: vals.Fault,
				Name: utils.FaultString(vals.Fault),
			})
		}
		return out
	default:
		// packet kinds this service does not consume
		return nil
	}
}
