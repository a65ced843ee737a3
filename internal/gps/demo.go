package gps

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// DemoGPS generates a simulated flight: a slow climb from field elevation
// to a few hundred meters and back, with a little altitude noise.
type DemoGPS struct {
	mu sync.Mutex
	t  float64
}

// Demo field: Toronto Buttonville, 198 m MSL.
const (
	demoFieldLat  = 43.8622
	demoFieldLon  = -79.3700
	demoFieldElev = 198.0
)

func NewDemoGPS() *DemoGPS { return &DemoGPS{} }

func (d *DemoGPS) Name() string   { return "Demo GPS (Simulated)" }
func (d *DemoGPS) Connect() error { return nil }
func (d *DemoGPS) Close() error   { return nil }

func (d *DemoGPS) Read() (*Data, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 0.5

	// One climb/descent cycle every ~10 minutes of reads.
	phase := math.Sin(d.t * 2 * math.Pi / 600)
	alt := demoFieldElev + 450*phase*phase + rand.Float64()*2

	return &Data{
		Valid:         true,
		Latitude:      demoFieldLat + 0.01*math.Sin(d.t*0.01),
		Longitude:     demoFieldLon + 0.01*math.Cos(d.t*0.01),
		Speed:         140 + 10*math.Sin(d.t*0.05),
		Heading:       math.Mod(d.t*0.6, 360),
		Altitude:      alt,
		AltitudeValid: true,
		Satellites:    10,
		FixQuality:    1,
		HDOP:          0.9,
		Timestamp:     time.Now().UTC().Format("150405.00"),
	}, nil
}
