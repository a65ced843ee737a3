package gps

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"
)

// NMEAProvider reads standard NMEA 0183 sentences from a UART GPS.
// Compatible with u-blox NEO-M8N and any standard NMEA GPS.
type NMEAProvider struct {
	portPath string
	baudRate int
	port     serial.Port
	lines    *lineReader
	mu       sync.Mutex
	last     Data
}

// NMEAConfig holds configuration for the NMEA GPS provider.
type NMEAConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// NewNMEA creates a new NMEA GPS provider.
func NewNMEA(cfg NMEAConfig) *NMEAProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // Standard NMEA default
	}
	return &NMEAProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
	}
}

func (n *NMEAProvider) Name() string { return "NMEA GPS" }

func (n *NMEAProvider) Connect() error {
	mode := &serial.Mode{
		BaudRate: n.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(n.portPath, mode)
	if err != nil {
		return fmt.Errorf("gps: failed to open %s: %w", n.portPath, err)
	}
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("gps: set read timeout on %s: %w", n.portPath, err)
	}

	n.mu.Lock()
	n.port = port
	n.lines = newLineReader(port)
	n.mu.Unlock()
	log.Printf("[gps] connected to %s at %d baud", n.portPath, n.baudRate)
	return nil
}

func (n *NMEAProvider) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.port != nil {
		err := n.port.Close()
		n.port = nil
		n.lines = nil
		return err
	}
	return nil
}

// Read reads NMEA sentences until we have a complete fix update, or timeout.
func (n *NMEAProvider) Read() (*Data, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lines == nil {
		return nil, fmt.Errorf("gps: not connected")
	}

	// Altitude only comes from GGA; drop it until a fresh GGA arrives.
	n.last.AltitudeValid = false

	// Read up to 20 lines to find RMC + GGA
	gotRMC := false
	gotGGA := false
	for i := 0; i < 20 && !(gotRMC && gotGGA); i++ {
		line, ok, err := n.lines.next()
		if err != nil {
			return nil, fmt.Errorf("gps: read %s: %w", n.portPath, err)
		}
		if !ok {
			break
		}
		switch applySentence(&n.last, line) {
		case nmea.TypeRMC:
			gotRMC = true
		case nmea.TypeGGA:
			gotGGA = true
		}
	}

	out := n.last
	return &out, nil
}

// applySentence parses one NMEA line into d and returns the sentence type
// it applied, or "" when the line was ignored (bad checksum, unsupported
// sentence, noise).
func applySentence(d *Data, line string) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return ""
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return ""
	}

	switch m := s.(type) {
	case nmea.RMC:
		d.Timestamp = m.Time.String()
		d.Valid = m.Validity == nmea.ValidRMC
		if d.Valid {
			d.Latitude = m.Latitude
			d.Longitude = m.Longitude
			d.Speed = m.Speed * 1.852 // Knots to km/h
			d.Heading = m.Course
		}
		return nmea.TypeRMC

	case nmea.GGA:
		d.FixQuality = fixQuality(m.FixQuality)
		d.Satellites = int(m.NumSatellites)
		d.HDOP = m.HDOP
		d.AltitudeValid = d.FixQuality > 0
		if d.AltitudeValid {
			d.Altitude = m.Altitude
		}
		return nmea.TypeGGA
	}
	return ""
}

// fixQuality maps the GGA quality indicator onto 0=none, 1=GPS, 2=DGPS;
// RTK and other corrected modes count as DGPS.
func fixQuality(q string) int {
	switch q {
	case nmea.Invalid, "":
		return 0
	case nmea.GPS:
		return 1
	default:
		return 2
	}
}
