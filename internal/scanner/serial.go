package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observation"
)

const (
	defaultBaudRate    = 115200
	defaultScanCommand = "AT+CWLAP"
	serialPollTimeout  = 100 * time.Millisecond
	maxPendingBytes    = 16 * 1024
)

// SerialConfig describes the radio module's port.
type SerialConfig struct {
	Device   string // e.g. /dev/ttyUSB0
	BaudRate int
	DataBits int
	StopBits int    // 1 or 2
	Parity   string // N, E or O
	Command  string // scan command, AT+CWLAP by default
}

// Normalize validates the options and applies defaults for unset values.
func (c SerialConfig) Normalize() (SerialConfig, error) {
	if strings.TrimSpace(c.Device) == "" {
		return c, fmt.Errorf("serial device is required")
	}
	if c.BaudRate <= 0 {
		c.BaudRate = defaultBaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return c, fmt.Errorf("invalid data bits %d: must be between 5 and 8", c.DataBits)
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return c, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", c.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(c.Parity)) {
	case "", "N", "NONE":
		c.Parity = "N"
	case "E", "EVEN":
		c.Parity = "E"
	case "O", "ODD":
		c.Parity = "O"
	default:
		return c, fmt.Errorf("unsupported parity %q: expected N, E, or O", c.Parity)
	}

	if c.Command == "" {
		c.Command = defaultScanCommand
	}
	return c, nil
}

// SerialMode converts normalized options to the go.bug.st/serial mode.
func (c SerialConfig) SerialMode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if c.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch c.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode
}

// Port is the part of serial.Port the scanner needs.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortOpener opens a serial port; replaced in tests.
type PortOpener func(device string, mode *serial.Mode) (Port, error)

func openSerialPort(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

// Serial scans through an ESP-AT radio module. The port is opened lazily.
// Any scan that does not end in OK closes the port so the next scan starts
// from a fresh port and an empty input buffer.
type Serial struct {
	cfg     SerialConfig
	timeout time.Duration
	open    PortOpener
	port    Port
	log     logger.Logger
}

// NewSerial validates cfg. The port is not opened until the first scan.
func NewSerial(cfg SerialConfig, timeout time.Duration) (*Serial, error) {
	return newSerialWithOpener(cfg, timeout, openSerialPort)
}

func newSerialWithOpener(cfg SerialConfig, timeout time.Duration, open PortOpener) (*Serial, error) {
	norm, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	return &Serial{
		cfg:     norm,
		timeout: timeout,
		open:    open,
		log:     GetLogger().With(logger.String("device", norm.Device)),
	}, nil
}

func (s *Serial) Name() string { return TypeSerial }

// Scan sends the scan command and collects access point lines until the
// module answers OK, ERROR, or the scan timeout passes.
func (s *Serial) Scan(ctx context.Context) ([]observation.Observation, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, scanError(err, TypeSerial)
	}

	// leftovers of an earlier answer must not be read as this one
	if err := s.port.ResetInputBuffer(); err != nil {
		s.drop()
		return nil, scanError(fmt.Errorf("reset input buffer: %w", err), TypeSerial)
	}
	if _, err := io.WriteString(s.port, s.cfg.Command+"\r\n"); err != nil {
		s.drop()
		return nil, scanError(fmt.Errorf("write command: %w", err), TypeSerial)
	}

	results, err := s.readResponse(ctx)
	if err != nil {
		s.drop()
		return results, scanError(err, TypeSerial)
	}
	return results, nil
}

func (s *Serial) readResponse(ctx context.Context) ([]observation.Observation, error) {
	deadline := time.Now().Add(s.timeout)
	chunk := make([]byte, 512)
	var (
		pending []byte
		results []observation.Observation
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return results, fmt.Errorf("no response terminator within %s", s.timeout)
		}

		n, err := s.port.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		pending = append(pending, chunk[:n]...)
		if len(pending) > maxPendingBytes {
			return nil, fmt.Errorf("unterminated response over %d bytes", maxPendingBytes)
		}

		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimSpace(string(pending[:i]))
			pending = pending[i+1:]

			switch {
			case line == "OK":
				return results, nil
			case line == "ERROR" || line == "FAIL":
				return nil, fmt.Errorf("module answered %s", line)
			case strings.HasPrefix(line, cwlapPrefix):
				obs, err := parseCWLAP(line)
				if err != nil {
					s.log.Debug("skipping unparsable line", logger.Error(err))
					continue
				}
				results = append(results, obs)
			}
		}
	}
}

func (s *Serial) ensureOpen() error {
	if s.port != nil {
		return nil
	}
	port, err := s.open(s.cfg.Device, s.cfg.SerialMode())
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Device, err)
	}
	if err := port.SetReadTimeout(serialPollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}
	s.port = port
	s.log.Info("serial port opened", logger.Int("baud", s.cfg.BaudRate))
	return nil
}

func (s *Serial) drop() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		s.log.Debug("closing serial port", logger.Error(err))
	}
	s.port = nil
}

func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
