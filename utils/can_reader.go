package utils

import (
	"context"
	"fmt"
	"io"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// CANReader defines the interface for reading CAN frames
type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// SocketCANReader implements CANReader using Einride's socketcan
type SocketCANReader struct {
	conn net.Conn
	recv *socketcan.Receiver
}

// NewSocketCANReader creates a new SocketCAN reader
func NewSocketCANReader(ctx context.Context, ifname string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", ifname)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial: %w", err)
	}
	return &SocketCANReader{
		conn: conn,
		recv: socketcan.NewReceiver(conn),
	}, nil
}

// ReadFrame reads a single CAN frame. It blocks until a frame arrives or
// the socket is closed; cancel the context's owner by closing the reader.
func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	if err := ctx.Err(); err != nil {
		return can.Frame{}, err
	}
	if r.recv.Receive() {
		return r.recv.Frame(), nil
	}
	if err := r.recv.Err(); err != nil {
		return can.Frame{}, err
	}
	return can.Frame{}, io.EOF
}

// Close closes the CAN socket, unblocking any pending ReadFrame.
func (r *SocketCANReader) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
