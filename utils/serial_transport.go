package utils

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialDrive is a VESC attached over UART. Writes ship framed command
// packets; reads pull raw bytes through the deframer.
type SerialDrive struct {
	port     serial.Port
	deframer PacketDeframer
	readBuf  []byte
}

// NewSerialDrive opens the serial port in 8N1 mode. VESC firmware
// defaults to 115200 baud.
func NewSerialDrive(portName string, baudRate int) (*SerialDrive, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	// A short read timeout keeps the RX loop responsive to shutdown.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &SerialDrive{
		port:    port,
		readBuf: make([]byte, 256),
	}, nil
}

// WritePacket frames and transmits one command payload.
func (s *SerialDrive) WritePacket(payload []byte) error {
	pkt, err := EncodePacket(payload)
	if err != nil {
		return err
	}
	if _, err := s.port.Write(pkt); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// ReadPackets reads whatever bytes are available and returns all complete
// payloads. An empty slice with nil error means the read timed out.
func (s *SerialDrive) ReadPackets() ([][]byte, error) {
	n, err := s.port.Read(s.readBuf)
	if err != nil {
		return nil, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.deframer.Feed(s.readBuf[:n]), nil
}

func (s *SerialDrive) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
