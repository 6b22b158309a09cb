package serial

import (
	"errors"
	"io"

	"github.com/jacobsa/go-serial/serial"

	"github.com/ftl/map-responder/com"
)

var (
	ErrNoBoardFound = errors.New("no signaling board found")
)

// DefaultBaudRate of the host port of a signaling board.
const DefaultBaudRate = 38400

// DefaultBoardMatch is contained in the description of a signaling board's host port.
const DefaultBoardMatch = "signaling"

// OpenWithTrace opens the serial port with the given name and returns a link over this port that
// traces all primitives passing it. The returned closer closes the port.
func OpenWithTrace(portName string, baudRate uint, tracer com.Tracer) (*com.Link, io.Closer, error) {
	device, err := openSerial(portName, baudRate)
	if err != nil {
		return nil, nil, err
	}

	return com.NewWithTrace(device, tracer), device, nil
}

func openSerial(portName string, baudRate uint) (io.ReadWriteCloser, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	portConfig := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     true,
		MinimumReadSize:       com.HeaderLen,
		InterCharacterTimeout: 100,
	}

	return serial.Open(portConfig)
}
