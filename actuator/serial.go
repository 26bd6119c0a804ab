package actuator

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialBridge forwards pulses to a microcontroller that owns the PWM
// hardware. Each write is one text line:
//
//	F <hz>            set the PWM frequency
//	P <pin> <on> <off> set a channel
type SerialBridge struct {
	mu   sync.Mutex
	port io.WriteCloser
	w    *bufio.Writer
}

func OpenSerialBridge(path string, baud int, frequency float64) (*SerialBridge, error) {
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open serial port %s", path)
	}
	b := NewSerialBridge(port)
	if err := b.SetFrequency(frequency); err != nil {
		port.Close()
		return nil, err
	}
	return b, nil
}

func NewSerialBridge(port io.WriteCloser) *SerialBridge {
	return &SerialBridge{port: port, w: bufio.NewWriter(port)}
}

func (b *SerialBridge) SetFrequency(frequency float64) error {
	return b.writeLine(fmt.Sprintf("F %d\n", int(frequency)))
}

func (b *SerialBridge) SetPulse(pin, pulse int) error {
	return b.writeLine(fmt.Sprintf("P %d %d %d\n", pin, 0, pulse))
}

func (b *SerialBridge) writeLine(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return errors.New("serial bridge is closed")
	}
	if _, err := b.w.WriteString(line); err != nil {
		return errors.Wrap(err, "could not write to serial bridge")
	}
	return errors.Wrap(b.w.Flush(), "could not flush serial bridge")
}

func (b *SerialBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil
	}
	port := b.port
	b.port = nil
	return port.Close()
}
