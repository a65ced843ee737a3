package gps

import (
	"math"
	"testing"
)

const (
	ggaFix    = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmcValid  = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	ggaNoFix  = "$GNGGA,092750.000,5321.6802,N,00630.3372,W,0,00,,,M,,M,,*4F"
	rmcVoid   = "$GPRMC,092750.000,V,5321.6802,N,00630.3372,W,0.02,31.66,280511,,,A*54"
	ggaDGPSGN = "$GNGGA,101500.00,4338.1920,N,07923.0000,W,2,11,0.8,1523.7,M,-34.0,M,,*7F"
)

func TestApplySentence_GGA(t *testing.T) {
	var d Data
	if got := applySentence(&d, ggaFix); got != "GGA" {
		t.Fatalf("type=%q", got)
	}
	if !d.AltitudeValid || math.Abs(d.Altitude-545.4) > 1e-9 {
		t.Fatalf("altitude=%v valid=%v", d.Altitude, d.AltitudeValid)
	}
	if d.FixQuality != 1 || d.Satellites != 8 || math.Abs(d.HDOP-0.9) > 1e-9 {
		t.Fatalf("fix=%d sats=%d hdop=%v", d.FixQuality, d.Satellites, d.HDOP)
	}
}

func TestApplySentence_RMC(t *testing.T) {
	var d Data
	if got := applySentence(&d, rmcValid); got != "RMC" {
		t.Fatalf("type=%q", got)
	}
	if !d.Valid {
		t.Fatalf("expected valid")
	}
	if math.Abs(d.Latitude-(48+7.038/60)) > 1e-6 {
		t.Fatalf("lat=%v", d.Latitude)
	}
	if math.Abs(d.Longitude-(11+31.0/60)) > 1e-6 {
		t.Fatalf("lon=%v", d.Longitude)
	}
	if math.Abs(d.Speed-22.4*1.852) > 1e-6 {
		t.Fatalf("speed=%v", d.Speed)
	}
	if math.Abs(d.Heading-84.4) > 1e-9 {
		t.Fatalf("heading=%v", d.Heading)
	}
	if d.AltitudeValid {
		t.Fatalf("RMC must not carry altitude")
	}
}

func TestApplySentence_NoFixKeepsAltitude(t *testing.T) {
	var d Data
	applySentence(&d, ggaFix)
	if got := applySentence(&d, ggaNoFix); got != "GGA" {
		t.Fatalf("type=%q", got)
	}
	if d.AltitudeValid {
		t.Fatalf("expected altitude unavailable without fix")
	}
	if math.Abs(d.Altitude-545.4) > 1e-9 {
		t.Fatalf("altitude overwritten: %v", d.Altitude)
	}

	applySentence(&d, rmcVoid)
	if d.Valid {
		t.Fatalf("expected void RMC to clear validity")
	}
}

func TestApplySentence_GNTalkerAndDGPS(t *testing.T) {
	var d Data
	if got := applySentence(&d, ggaDGPSGN); got != "GGA" {
		t.Fatalf("type=%q", got)
	}
	if d.FixQuality != 2 || d.Satellites != 11 {
		t.Fatalf("fix=%d sats=%d", d.FixQuality, d.Satellites)
	}
	if math.Abs(d.Altitude-1523.7) > 1e-9 {
		t.Fatalf("altitude=%v", d.Altitude)
	}
}

func TestApplySentence_IgnoresNoise(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00", // bad checksum
		"GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",  // no $
	}
	for _, line := range cases {
		var d Data
		if got := applySentence(&d, line); got != "" {
			t.Fatalf("line %q applied as %q", line, got)
		}
		if d != (Data{}) {
			t.Fatalf("line %q modified data: %+v", line, d)
		}
	}
}

func TestFixQuality(t *testing.T) {
	cases := map[string]int{"0": 0, "": 0, "1": 1, "2": 2, "4": 2, "5": 2}
	for in, want := range cases {
		if got := fixQuality(in); got != want {
			t.Fatalf("fixQuality(%q)=%d want %d", in, got, want)
		}
	}
}
