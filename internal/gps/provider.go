package gps

import (
	"context"
	"log"
	"time"
)

// DefaultPollInterval matches the 500 ms location request of a phone's
// high-accuracy provider.
const DefaultPollInterval = 500 * time.Millisecond

// Provider is the interface for GPS data sources.
type Provider interface {
	Name() string
	Connect() error
	Close() error
	// Read returns the latest GPS fix. May block briefly.
	Read() (*Data, error)
}

// Data holds a single GPS fix.
type Data struct {
	Valid         bool    `json:"valid"`         // Position fix is valid
	Latitude      float64 `json:"latitude"`      // Decimal degrees
	Longitude     float64 `json:"longitude"`     // Decimal degrees
	Speed         float64 `json:"speed"`         // km/h
	Heading       float64 `json:"heading"`       // Degrees true
	Altitude      float64 `json:"altitude"`      // Meters MSL
	AltitudeValid bool    `json:"altitudeValid"` // Altitude present in this fix
	Satellites    int     `json:"satellites"`    // Sats in use
	FixQuality    int     `json:"fixQuality"`    // 0=none, 1=GPS, 2=DGPS
	HDOP          float64 `json:"hdop"`          // Horizontal dilution
	Timestamp     string  `json:"timestamp"`     // UTC time string
}

// SampleHandler receives raw altitude samples in meters.
type SampleHandler func(altitude float64)

// FixHandler receives every fix read from the provider.
type FixHandler func(*Data)

// Poll reads p every interval until ctx is cancelled. onSample is called
// only for fixes that carry an altitude; fixes without one are skipped so
// the consumer keeps its last known value. onFix, when non-nil, sees every
// successful read.
func Poll(ctx context.Context, p Provider, interval time.Duration, onSample SampleHandler, onFix FixHandler) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := p.Read()
			if err != nil {
				// Log each distinct error once; a disconnected provider
				// fails on every tick.
				if msg := err.Error(); msg != lastErr {
					log.Printf("[gps] %s read: %v", p.Name(), err)
					lastErr = msg
				}
				continue
			}
			lastErr = ""
			if data == nil {
				continue
			}
			if onFix != nil {
				onFix(data)
			}
			if data.AltitudeValid && onSample != nil {
				onSample(data.Altitude)
			}
		}
	}
}
