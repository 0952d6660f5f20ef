package capture

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// serialReadTimeout lets ReadCommands notice cancellation between reads.
const serialReadTimeout = 200 * time.Millisecond

// SerialConfig describes a trigger port. StopBits uses 1, 15 (1.5) or 2;
// Parity is one of None, Odd, Even, Mark or Space.
type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return []string{}, nil
	}
	return ports, nil
}

// ParseParity maps a parity name to its serial setting.
func ParseParity(name string) (serial.Parity, error) {
	switch name {
	case "None", "":
		return serial.NoParity, nil
	case "Odd":
		return serial.OddParity, nil
	case "Even":
		return serial.EvenParity, nil
	case "Mark":
		return serial.MarkParity, nil
	case "Space":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("unknown parity %q", name)
	}
}

// ParseStopBits maps 1, 15 (meaning 1.5) and 2 to their serial setting.
func ParseStopBits(n int) (serial.StopBits, error) {
	switch n {
	case 1:
		return serial.OneStopBit, nil
	case 15:
		return serial.OnePointFiveStopBits, nil
	case 2:
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("unsupported stop bits %d", n)
	}
}

// Mode builds the serial mode for c.
func (c SerialConfig) Mode() (*serial.Mode, error) {
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stop, err := ParseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return nil, fmt.Errorf("unsupported data bits %d", c.DataBits)
	}
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stop,
	}, nil
}

// OpenSerial opens the trigger port described by c with a short read
// timeout, ready for ReadCommands.
func OpenSerial(c SerialConfig) (serial.Port, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, fmt.Errorf("trigger port %s: %w", c.Port, err)
	}
	port, err := serial.Open(c.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open trigger port %s: %w", c.Port, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("trigger port %s: set read timeout: %w", c.Port, err)
	}
	return port, nil
}
