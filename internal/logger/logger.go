// Package logger is the flight recorder: it writes altitude samples and
// spoken announcements to CSV files with automatic rotation.
package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
	"github.com/shaunagostinho/audible-altimeter/internal/gps"
)

// Row kinds in the event column.
const (
	EventSample   = "sample"
	EventAnnounce = "announce"
)

// Logger records timestamped altitude + GPS data to CSV files.
type Logger struct {
	mu       sync.Mutex
	dir      string
	interval time.Duration
	enabled  bool
	maxRows  int

	file   *os.File
	path   string
	writer *csv.Writer
	lastTs time.Time
	rows   int
	files  int
}

// Config holds logger configuration.
type Config struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Path       string `yaml:"path" json:"path"`
	IntervalMs int    `yaml:"interval_ms" json:"intervalMs"` // ms between sample rows
}

const (
	maxRowsPerFile = 100_000 // Rotate after 100k rows (~28 hrs at 1 Hz)
)

var csvHeader = []string{
	"timestamp", "event",
	"raw_m", "offset_m", "unit", "precision",
	"calibrated", "rounded",
	"gps_valid", "gps_lat", "gps_lon", "gps_sats",
	"text",
}

// New creates a new Logger.
func New(cfg Config) *Logger {
	if cfg.Path == "" {
		cfg.Path = "/var/log/audible-altimeter"
	}
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval < 100*time.Millisecond {
		interval = time.Second
	}
	return &Logger{
		dir:      cfg.Path,
		interval: interval,
		enabled:  cfg.Enabled,
		maxRows:  maxRowsPerFile,
	}
}

// Record writes an altitude sample if the minimum interval has elapsed.
// g may be nil when no feed is connected.
func (l *Logger) Record(snap altitude.Snapshot, g *gps.Data) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	now := time.Now()
	if now.Sub(l.lastTs) < l.interval {
		return
	}
	l.lastTs = now
	l.write(l.buildRow(now, EventSample, snap, g, ""))
}

// Announce writes one row for a spoken announcement. Announcements are
// never rate-limited.
func (l *Logger) Announce(snap altitude.Snapshot, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}
	l.write(l.buildRow(time.Now(), EventAnnounce, snap, nil, text))
}

// Path returns the file currently being written, or "" before the first
// row.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeFile()
}

func (l *Logger) write(row []string) {
	// Open/rotate file if needed
	if l.writer == nil || l.rows >= l.maxRows {
		if err := l.rotateFile(time.Now()); err != nil {
			log.Printf("[logger] rotate failed: %v", err)
			return
		}
	}
	if err := l.writer.Write(row); err != nil {
		log.Printf("[logger] write failed: %v", err)
		return
	}
	l.writer.Flush()
	l.rows++
}

func (l *Logger) rotateFile(now time.Time) error {
	l.closeFile()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}

	l.files++
	filename := fmt.Sprintf("flight_%s_%03d.csv", now.Format("2006-01-02_150405"), l.files)
	path := filepath.Join(l.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	l.file = f
	l.path = path
	l.writer = csv.NewWriter(f)
	l.rows = 0

	// Write header
	if err := l.writer.Write(csvHeader); err != nil {
		return err
	}
	l.writer.Flush()

	log.Printf("[logger] opened %s", path)
	return nil
}

func (l *Logger) closeFile() {
	if l.writer != nil {
		l.writer.Flush()
		l.writer = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) buildRow(ts time.Time, event string, s altitude.Snapshot, g *gps.Data, text string) []string {
	row := make([]string, len(csvHeader))

	row[0] = ts.Format(time.RFC3339Nano)
	row[1] = event
	row[2] = fmt.Sprintf("%.2f", s.Raw)
	row[3] = fmt.Sprintf("%.2f", s.Offset)
	row[4] = string(s.Unit)
	row[5] = strconv.Itoa(s.Precision)
	row[6] = fmt.Sprintf("%.2f", s.Calibrated)
	row[7] = strconv.Itoa(s.Rounded)

	if g != nil {
		row[8] = boolStr(g.Valid)
		row[9] = fmt.Sprintf("%.6f", g.Latitude)
		row[10] = fmt.Sprintf("%.6f", g.Longitude)
		row[11] = strconv.Itoa(g.Satellites)
	}

	row[12] = text
	return row
}

func boolStr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
