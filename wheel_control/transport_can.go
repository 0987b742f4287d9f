package main

import (
	"context"
	"fmt"

	"vesc-drive-core/utils"
	control "vesc-drive-core/wheel_control/motor_control"
)

// Frame names the CAN map must define for a VESC drive.
const (
	frameSetDuty = "SET_DUTY"
	frameStatus1 = "STATUS_1" // erpm, motor current, duty
	frameStatus5 = "STATUS_5" // tachometer, input voltage
)

// CANTransport drives a VESC over SocketCAN. The drive broadcasts its
// status periodically, so RequestState is a no-op here; a Values sample
// is assembled from the STATUS_1/STATUS_5 pair.
type CANTransport struct {
	ctx    context.Context
	writer *utils.SocketCANWriter
	reader *utils.SocketCANReader
	fmap   *utils.FrameMap
	log    *utils.Logger

	// latest STATUS_1 fields, folded into the sample emitted on the next
	// STATUS_5 frame
	lastERPM    float64
	lastCurrent float64
	lastDuty    float64
	haveStatus1 bool
}

func NewCANTransport(ctx context.Context, iface, mapPath string, log *utils.Logger) (*CANTransport, error) {
	fmap, err := utils.LoadFrameMap(mapPath)
	if err != nil {
		return nil, fmt.Errorf("load frame map: %w", err)
	}
	if _, err := fmap.FrameByName(frameSetDuty); err != nil {
		return nil, fmt.Errorf("frame map unusable for drive commands: %w", err)
	}

	writer, err := utils.NewSocketCANWriter(ctx, iface)
	if err != nil {
		return nil, err
	}
	reader, err := utils.NewSocketCANReader(ctx, iface)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	return &CANTransport{
		ctx:    ctx,
		writer: writer,
		reader: reader,
		fmap:   fmap,
		log:    log,
	}, nil
}

func (t *CANTransport) SetDutyCycle(duty float64) error {
	frame, err := t.fmap.EncodeFrame(frameSetDuty, map[string]float64{"duty": duty})
	if err != nil {
		return err
	}
	return t.writer.WriteFrame(t.ctx, frame)
}

// RequestState is a no-op: VESC status frames are periodic broadcasts,
// not polled.
func (t *CANTransport) RequestState() error {
	return nil
}

func (t *CANTransport) Run(ctx context.Context, samples chan<- control.Sample) error {
	for {
		frame, err := t.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("can rx: %w", err)
		}

		name, values, err := t.fmap.DecodeFrame(frame)
		if err != nil {
			// frames from other bus nodes
			continue
		}

		switch name {
		case frameStatus1:
			t.lastERPM = values["erpm"]
			t.lastCurrent = values["current"]
			t.lastDuty = values["duty"]
			t.haveStatus1 = true
		case frameStatus5:
			if !t.haveStatus1 {
				continue
			}
			s := control.ValuesSample{
				MotorCurrent:  t.lastCurrent,
				VelocityERPM:  t.lastERPM,
				PositionCount: int32(values["tachometer"]),
				Duty:          t.lastDuty,
				InputVoltage:  values["v_in"],
			}
			select {
			case samples <- s:
			default:
				// channel full, skip
			}
		}
	}
}

func (t *CANTransport) Close() error {
	var firstErr error
	if err := t.reader.Close(); err != nil {
		firstErr = err
	}
	if err := t.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
