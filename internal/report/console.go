package report

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// ConsoleBaudRate matches the host-side UART listener.
const ConsoleBaudRate = 115200

// Console writes status lines to a byte stream, typically the UART wired to
// the host PC, or stdout when running interactively.
type Console struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewConsole wraps an existing stream.
func NewConsole(w io.WriteCloser) *Console {
	return &Console{w: w}
}

// OpenConsole opens the host UART at 115200 8N1.
func OpenConsole(device string) (*Console, error) {
	mode := &serial.Mode{
		BaudRate: ConsoleBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open console port %s: %w", device, err)
	}
	return NewConsole(port), nil
}

// Report writes the line with a trailing newline.
func (c *Console) Report(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, line+"\n"); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Close closes the underlying stream.
func (c *Console) Close() error {
	return c.w.Close()
}
