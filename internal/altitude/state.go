package altitude

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"
)

// MetersToFeet is the fixed meters→feet conversion factor.
const MetersToFeet = 3.28084

// Unit is the display/announcement unit.
type Unit string

const (
	Feet   Unit = "feet"
	Meters Unit = "meters"
)

// Zero selects the reference subtracted from raw altitude.
type Zero string

const (
	SeaLevel Zero = "sea_level" // offset 0
	Current  Zero = "current"   // offset = raw altitude at selection time
)

// Precisions are the rounding steps offered by the UIs.
var Precisions = []int{1, 5, 10, 100}

// Delays are the announcement delays (seconds) offered by the UIs.
// The state accepts any non-negative delay.
var Delays = []float64{0, 5, 15, 60}

var (
	ErrInvalidUnit      = errors.New("altitude: invalid unit")
	ErrInvalidZero      = errors.New("altitude: invalid zero reference")
	ErrInvalidPrecision = errors.New("altitude: invalid precision")
	ErrInvalidDelay     = errors.New("altitude: invalid delay")
)

// Settings are the four user-selectable values.
type Settings struct {
	Zero         Zero    `yaml:"zero" json:"zero"`
	Unit         Unit    `yaml:"unit" json:"unit"`
	Precision    int     `yaml:"precision" json:"precision"`
	DelaySeconds float64 `yaml:"delay_s" json:"delaySeconds"`
}

// DefaultSettings returns the launch defaults: sea level, feet, 10, 5 s.
func DefaultSettings() Settings {
	return Settings{
		Zero:         SeaLevel,
		Unit:         Feet,
		Precision:    10,
		DelaySeconds: 5,
	}
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if err := validateZero(s.Zero); err != nil {
		return err
	}
	if err := validateUnit(s.Unit); err != nil {
		return err
	}
	if err := validatePrecision(s.Precision); err != nil {
		return err
	}
	return validateDelay(s.DelaySeconds)
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	Zero         *Zero    `json:"zero,omitempty"`
	Unit         *Unit    `json:"unit,omitempty"`
	Precision    *int     `json:"precision,omitempty"`
	DelaySeconds *float64 `json:"delaySeconds,omitempty"`
}

// Snapshot is a consistent copy of the state plus its derived values.
type Snapshot struct {
	Raw          float64   `json:"raw"`    // Meters
	Offset       float64   `json:"offset"` // Meters
	Zero         Zero      `json:"zero"`
	Unit         Unit      `json:"unit"`
	Precision    int       `json:"precision"`
	DelaySeconds float64   `json:"delaySeconds"`
	Calibrated   float64   `json:"calibrated"` // In Unit
	Rounded      int       `json:"rounded"`    // In Unit, snapped to Precision
	Display      string    `json:"display"`
	DisplayUnit  Unit      `json:"displayUnit"` // Unit of Display
	Samples      uint64    `json:"samples"`
	LastSample   time.Time `json:"lastSample"`
}

// State holds the latest raw altitude, the zero offset and the user
// settings. The zero value is not usable; call New.
type State struct {
	mu sync.RWMutex

	raw       float64 // Latest raw sample, meters; 0 until the first fix
	offset    float64 // Zero reference, meters
	zero      Zero
	unit      Unit
	precision int
	delay     float64 // Seconds

	display     string // Recomputed on Update only
	displayUnit Unit   // Unit display was computed in
	samples     uint64
	lastSample  time.Time
}

// New creates a State with the given launch settings. Invalid fields fall
// back to DefaultSettings.
func New(s Settings) *State {
	def := DefaultSettings()
	if validateUnit(s.Unit) != nil {
		s.Unit = def.Unit
	}
	if validatePrecision(s.Precision) != nil {
		s.Precision = def.Precision
	}
	if validateDelay(s.DelaySeconds) != nil {
		s.DelaySeconds = def.DelaySeconds
	}
	if validateZero(s.Zero) != nil {
		s.Zero = def.Zero
	}
	// No sample exists at launch, so either reference starts at offset 0.
	st := &State{
		zero:      s.Zero,
		unit:      s.Unit,
		precision: s.Precision,
		delay:     s.DelaySeconds,
	}
	st.display, st.displayUnit = st.displayLocked(), st.unit
	return st
}

// Update replaces the raw altitude and recomputes the display string.
func (s *State) Update(raw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	s.samples++
	s.lastSample = time.Now()
	s.display, s.displayUnit = s.displayLocked(), s.unit
}

// SetZero moves the zero reference. The cached display string is not
// touched; the new reference shows up with the next sample.
func (s *State) SetZero(z Zero) error {
	if err := validateZero(z); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setZeroLocked(z)
	return nil
}

func (s *State) setZeroLocked(z Zero) {
	s.zero = z
	if z == Current {
		s.offset = s.raw
	} else {
		s.offset = 0
	}
}

func (s *State) SetUnit(u Unit) error {
	if err := validateUnit(u); err != nil {
		return err
	}
	s.mu.Lock()
	s.unit = u
	s.mu.Unlock()
	return nil
}

func (s *State) SetPrecision(p int) error {
	if err := validatePrecision(p); err != nil {
		return err
	}
	s.mu.Lock()
	s.precision = p
	s.mu.Unlock()
	return nil
}

// SetDelay sets the pause between announcements in seconds.
func (s *State) SetDelay(seconds float64) error {
	if err := validateDelay(seconds); err != nil {
		return err
	}
	s.mu.Lock()
	s.delay = seconds
	s.mu.Unlock()
	return nil
}

// Delay returns the configured announcement delay.
func (s *State) Delay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.delay * float64(time.Second))
}

// Calibrated returns raw minus offset in the active unit.
func (s *State) Calibrated() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibratedLocked()
}

// Rounded returns the calibrated value snapped to the nearest multiple of
// the precision.
func (s *State) Rounded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return roundTo(s.calibratedLocked(), s.precision)
}

// Display returns the display string computed at the last Update.
func (s *State) Display() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// Settings returns the current user settings.
func (s *State) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		Zero:         s.zero,
		Unit:         s.unit,
		Precision:    s.precision,
		DelaySeconds: s.delay,
	}
}

// Apply validates every field of p first and then applies them together,
// so a bad field leaves the state untouched.
func (s *State) Apply(p SettingsPatch) error {
	if p.Zero != nil {
		if err := validateZero(*p.Zero); err != nil {
			return err
		}
	}
	if p.Unit != nil {
		if err := validateUnit(*p.Unit); err != nil {
			return err
		}
	}
	if p.Precision != nil {
		if err := validatePrecision(*p.Precision); err != nil {
			return err
		}
	}
	if p.DelaySeconds != nil {
		if err := validateDelay(*p.DelaySeconds); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Zero != nil {
		s.setZeroLocked(*p.Zero)
	}
	if p.Unit != nil {
		s.unit = *p.Unit
	}
	if p.Precision != nil {
		s.precision = *p.Precision
	}
	if p.DelaySeconds != nil {
		s.delay = *p.DelaySeconds
	}
	return nil
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal := s.calibratedLocked()
	return Snapshot{
		Raw:          s.raw,
		Offset:       s.offset,
		Zero:         s.zero,
		Unit:         s.unit,
		Precision:    s.precision,
		DelaySeconds: s.delay,
		Calibrated:   cal,
		Rounded:      roundTo(cal, s.precision),
		Display:      s.display,
		DisplayUnit:  s.displayUnit,
		Samples:      s.samples,
		LastSample:   s.lastSample,
	}
}

func (s *State) calibratedLocked() float64 {
	v := s.raw - s.offset
	if s.unit == Feet {
		return ToFeet(v)
	}
	return v
}

func (s *State) displayLocked() string {
	return strconv.Itoa(roundHalfUp(s.calibratedLocked()))
}

// ToFeet converts meters to feet.
func ToFeet(m float64) float64 {
	return m * MetersToFeet
}

// roundTo snaps v to the nearest multiple of step.
func roundTo(v float64, step int) int {
	if step <= 0 {
		step = 1
	}
	return roundHalfUp(v/float64(step)) * step
}

// roundHalfUp rounds halves toward +Inf (-2.5 → -2, 2.5 → 3).
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func validateZero(z Zero) error {
	switch z {
	case SeaLevel, Current:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidZero, z)
}

func validateUnit(u Unit) error {
	switch u {
	case Feet, Meters:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidUnit, u)
}

func validatePrecision(p int) error {
	for _, v := range Precisions {
		if p == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrInvalidPrecision, p)
}

func validateDelay(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDelay, d)
	}
	return nil
}
