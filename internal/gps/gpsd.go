package gps

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// GPSDProvider reads TPV/SKY reports from a gpsd daemon over TCP.
type GPSDProvider struct {
	addr  string
	conn  net.Conn
	lines *lineReader
	mu    sync.Mutex
	last  Data
}

// NewGPSD creates a gpsd provider. An empty addr means localhost:2947.
func NewGPSD(addr string) *GPSDProvider {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	return &GPSDProvider{addr: addr}
}

func (g *GPSDProvider) Name() string { return "gpsd" }

func (g *GPSDProvider) Connect() error {
	conn, err := net.DialTimeout("tcp", g.addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("gps: dial gpsd %s: %w", g.addr, err)
	}
	// scaled=true yields SI units (m/s, meters) and degrees.
	if _, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true,\"scaled\":true}\n")); err != nil {
		conn.Close()
		return fmt.Errorf("gps: gpsd watch: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.lines = newLineReader(conn)
	g.mu.Unlock()
	log.Printf("[gps] connected to gpsd at %s", g.addr)
	return nil
}

func (g *GPSDProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		err := g.conn.Close()
		g.conn = nil
		g.lines = nil
		return err
	}
	return nil
}

// Read consumes reports until a TPV arrives or the read deadline passes.
func (g *GPSDProvider) Read() (*Data, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lines == nil {
		return nil, fmt.Errorf("gps: not connected")
	}
	if err := g.conn.SetReadDeadline(time.Now().Add(400 * time.Millisecond)); err != nil {
		return nil, fmt.Errorf("gps: gpsd set deadline: %w", err)
	}

	g.last.AltitudeValid = false
	for i := 0; i < 20; i++ {
		line, ok, err := g.lines.next()
		if err != nil {
			return nil, fmt.Errorf("gps: gpsd read: %w", err)
		}
		if !ok {
			break
		}
		class, err := applyGPSDLine(&g.last, line)
		if err != nil {
			continue
		}
		if class == "TPV" {
			break
		}
	}

	out := g.last
	return &out, nil
}

type gpsdMsgBase struct {
	Class string `json:"class"`
}

type gpsdTPV struct {
	Mode   *int     `json:"mode"`
	Time   string   `json:"time"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Alt    *float64 `json:"alt"`
	AltMSL *float64 `json:"altMSL"`
	Speed  *float64 `json:"speed"` // m/s
	Track  *float64 `json:"track"`
}

type gpsdSat struct {
	Used bool `json:"used"`
}

type gpsdSKY struct {
	HDOP       *float64  `json:"hdop"`
	Satellites []gpsdSat `json:"satellites"`
	USat       *int      `json:"uSat"`
}

// applyGPSDLine decodes one gpsd JSON report into d and returns its class.
func applyGPSDLine(d *Data, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	var base gpsdMsgBase
	if err := json.Unmarshal([]byte(line), &base); err != nil {
		return "", fmt.Errorf("gps: gpsd json: %w", err)
	}

	switch base.Class {
	case "TPV":
		var tpv gpsdTPV
		if err := json.Unmarshal([]byte(line), &tpv); err != nil {
			return "", fmt.Errorf("gps: gpsd TPV: %w", err)
		}
		mode := 0
		if tpv.Mode != nil {
			mode = *tpv.Mode
		}
		d.Timestamp = tpv.Time
		d.Valid = mode >= 2 && tpv.Lat != nil && tpv.Lon != nil
		if d.Valid {
			d.Latitude = *tpv.Lat
			d.Longitude = *tpv.Lon
		}
		if tpv.Speed != nil {
			d.Speed = *tpv.Speed * 3.6
		}
		if tpv.Track != nil {
			d.Heading = *tpv.Track
		}
		// Altitude is only meaningful with a 3D fix.
		alt := tpv.AltMSL
		if alt == nil {
			alt = tpv.Alt
		}
		d.AltitudeValid = mode == 3 && alt != nil
		if d.AltitudeValid {
			d.Altitude = *alt
		}
		d.FixQuality = 0
		if mode >= 2 {
			d.FixQuality = 1
		}
		return base.Class, nil

	case "SKY":
		var sky gpsdSKY
		if err := json.Unmarshal([]byte(line), &sky); err != nil {
			return "", fmt.Errorf("gps: gpsd SKY: %w", err)
		}
		if sky.HDOP != nil {
			d.HDOP = *sky.HDOP
		}
		if sky.USat != nil {
			d.Satellites = *sky.USat
		} else if len(sky.Satellites) > 0 {
			used := 0
			for _, s := range sky.Satellites {
				if s.Used {
					used++
				}
			}
			d.Satellites = used
		}
		return base.Class, nil
	}
	return base.Class, nil
}
