package sensor

import (
	"fmt"

	"go.bug.st/serial"
)

// BaudRate is fixed by the A02YYUW sensor.
const BaudRate = 9600

// Open opens the sensor UART at 9600 8N1 and returns it as a Port.
func Open(device string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open sensor port %s: %w", device, err)
	}
	return port, nil
}
