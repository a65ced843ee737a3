package altitude

import (
	"errors"
	"math"
	"testing"
	"time"
)

func metersState(t *testing.T, precision int) *State {
	t.Helper()
	return New(Settings{Zero: SeaLevel, Unit: Meters, Precision: precision, DelaySeconds: 5})
}

func TestNew_Defaults(t *testing.T) {
	st := New(Settings{Zero: "nowhere", Unit: "cubits", Precision: 3, DelaySeconds: -1})
	got := st.Settings()
	if got != DefaultSettings() {
		t.Fatalf("settings=%+v want %+v", got, DefaultSettings())
	}
	if st.Display() != "0" {
		t.Fatalf("display=%q", st.Display())
	}
	if st.Rounded() != 0 || st.Calibrated() != 0 {
		t.Fatalf("expected zero before first fix")
	}
}

func TestZeroCurrent_CalibratesToZero(t *testing.T) {
	for _, raw := range []float64{-35.2, 0, 12.5, 100, 1523.7, 8848} {
		for _, u := range []Unit{Feet, Meters} {
			st := New(Settings{Unit: u, Precision: 1})
			st.Update(raw)
			if err := st.SetZero(Current); err != nil {
				t.Fatalf("SetZero: %v", err)
			}
			if got := st.Calibrated(); got != 0 {
				t.Fatalf("raw=%v unit=%s calibrated=%v", raw, u, got)
			}
		}
	}
}

func TestZeroSeaLevel_ClearsOffset(t *testing.T) {
	st := metersState(t, 1)
	st.Update(250)
	if err := st.SetZero(Current); err != nil {
		t.Fatalf("SetZero: %v", err)
	}
	st.Update(260)
	if got := st.Rounded(); got != 10 {
		t.Fatalf("rounded=%d", got)
	}
	if err := st.SetZero(SeaLevel); err != nil {
		t.Fatalf("SetZero: %v", err)
	}
	if got := st.Rounded(); got != 260 {
		t.Fatalf("rounded=%d", got)
	}
}

func TestFeetIsMetersTimesFactor(t *testing.T) {
	cases := []struct{ raw, zeroAt float64 }{
		{100, 0},
		{-20.25, 0},
		{1234.5, 1000},
		{50, 75},
	}
	for _, tc := range cases {
		st := metersState(t, 1)
		st.Update(tc.zeroAt)
		if err := st.SetZero(Current); err != nil {
			t.Fatalf("SetZero: %v", err)
		}
		st.Update(tc.raw)

		m := st.Calibrated()
		if err := st.SetUnit(Feet); err != nil {
			t.Fatalf("SetUnit: %v", err)
		}
		ft := st.Calibrated()
		if math.Abs(ft-m*MetersToFeet) > 1e-9 {
			t.Fatalf("raw=%v zero=%v feet=%v meters=%v", tc.raw, tc.zeroAt, ft, m)
		}
	}
}

func TestRoundedIsIdempotent(t *testing.T) {
	for _, p := range Precisions {
		for _, raw := range []float64{-137.4, -2.5, 0, 3.3, 47.5, 328.084, 999.9} {
			st := metersState(t, p)
			st.Update(raw)
			once := st.Rounded()

			st.Update(float64(once))
			if twice := st.Rounded(); twice != once {
				t.Fatalf("precision=%d raw=%v once=%d twice=%d", p, raw, once, twice)
			}
		}
	}
}

func TestScenario_100mFeetPrecision10(t *testing.T) {
	st := New(Settings{Unit: Feet, Precision: 10})
	st.Update(100)
	if got := st.Calibrated(); math.Abs(got-328.084) > 1e-9 {
		t.Fatalf("calibrated=%v", got)
	}
	if got := st.Rounded(); got != 330 {
		t.Fatalf("rounded=%d", got)
	}
}

func TestScenario_ZeroedAtCurrentMeters(t *testing.T) {
	st := metersState(t, 1)
	st.Update(50)
	if err := st.SetZero(Current); err != nil {
		t.Fatalf("SetZero: %v", err)
	}
	if got := st.Calibrated(); got != 0 {
		t.Fatalf("calibrated=%v", got)
	}
	if got := st.Rounded(); got != 0 {
		t.Fatalf("rounded=%d", got)
	}
}

func TestRounding_HalfTowardPositiveInfinity(t *testing.T) {
	cases := []struct {
		raw       float64
		precision int
		want      int
	}{
		{2.5, 1, 3},
		{-2.5, 1, -2},
		{12.5, 5, 15},
		{-12.5, 5, -10},
		{49.9, 100, 0},
		{50, 100, 100},
		{-50, 100, 0},
		{-50.1, 100, -100},
	}
	for _, tc := range cases {
		st := metersState(t, tc.precision)
		st.Update(tc.raw)
		if got := st.Rounded(); got != tc.want {
			t.Fatalf("raw=%v precision=%d rounded=%d want %d", tc.raw, tc.precision, got, tc.want)
		}
	}
}

func TestDisplay_OnlyChangesOnUpdate(t *testing.T) {
	st := metersState(t, 10)
	st.Update(123.4)
	if got := st.Display(); got != "123" {
		t.Fatalf("display=%q", got)
	}

	if err := st.SetZero(Current); err != nil {
		t.Fatalf("SetZero: %v", err)
	}
	if err := st.SetUnit(Feet); err != nil {
		t.Fatalf("SetUnit: %v", err)
	}
	if got := st.Display(); got != "123" {
		t.Fatalf("display rewritten before next sample: %q", got)
	}

	st.Update(133.4)
	// 10 m above the new zero, in feet.
	if got := st.Display(); got != "33" {
		t.Fatalf("display=%q", got)
	}
}

func TestDisplayUnit_MatchesCachedDisplay(t *testing.T) {
	st := New(Settings{Zero: SeaLevel, Unit: Feet, Precision: 10, DelaySeconds: 5})
	st.Update(100)
	if err := st.SetUnit(Meters); err != nil {
		t.Fatalf("SetUnit: %v", err)
	}

	snap := st.Snapshot()
	if snap.Display != "328" || snap.DisplayUnit != Feet {
		t.Fatalf("display=%q displayUnit=%s", snap.Display, snap.DisplayUnit)
	}
	if snap.Unit != Meters || snap.Calibrated != 100 {
		t.Fatalf("unit=%s calibrated=%v", snap.Unit, snap.Calibrated)
	}

	st.Update(100)
	snap = st.Snapshot()
	if snap.Display != "100" || snap.DisplayUnit != Meters {
		t.Fatalf("after sample: display=%q displayUnit=%s", snap.Display, snap.DisplayUnit)
	}
}

func TestSetters_RejectInvalid(t *testing.T) {
	st := New(DefaultSettings())

	if err := st.SetUnit("furlongs"); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("unit err=%v", err)
	}
	if err := st.SetPrecision(3); !errors.Is(err, ErrInvalidPrecision) {
		t.Fatalf("precision err=%v", err)
	}
	if err := st.SetDelay(-1); !errors.Is(err, ErrInvalidDelay) {
		t.Fatalf("delay err=%v", err)
	}
	if err := st.SetDelay(math.NaN()); !errors.Is(err, ErrInvalidDelay) {
		t.Fatalf("delay NaN err=%v", err)
	}
	if err := st.SetZero("ground"); !errors.Is(err, ErrInvalidZero) {
		t.Fatalf("zero err=%v", err)
	}
	if got := st.Settings(); got != DefaultSettings() {
		t.Fatalf("settings changed: %+v", got)
	}
}

func TestDelay_Duration(t *testing.T) {
	st := New(DefaultSettings())
	if got := st.Delay(); got != 5*time.Second {
		t.Fatalf("delay=%v", got)
	}
	if err := st.SetDelay(0.5); err != nil {
		t.Fatalf("SetDelay: %v", err)
	}
	if got := st.Delay(); got != 500*time.Millisecond {
		t.Fatalf("delay=%v", got)
	}
}

func TestApply_AllOrNothing(t *testing.T) {
	st := New(DefaultSettings())
	st.Update(40)

	unit := Meters
	bad := 7
	if err := st.Apply(SettingsPatch{Unit: &unit, Precision: &bad}); !errors.Is(err, ErrInvalidPrecision) {
		t.Fatalf("err=%v", err)
	}
	if got := st.Settings().Unit; got != Feet {
		t.Fatalf("unit applied despite error: %s", got)
	}

	zero := Current
	p := 1
	delay := 15.0
	if err := st.Apply(SettingsPatch{Zero: &zero, Unit: &unit, Precision: &p, DelaySeconds: &delay}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := Settings{Zero: Current, Unit: Meters, Precision: 1, DelaySeconds: 15}
	if got := st.Settings(); got != want {
		t.Fatalf("settings=%+v want %+v", got, want)
	}
	if got := st.Calibrated(); got != 0 {
		t.Fatalf("calibrated=%v", got)
	}
}

func TestSnapshot_Consistent(t *testing.T) {
	st := New(Settings{Unit: Feet, Precision: 10})
	st.Update(100)
	snap := st.Snapshot()
	if snap.Raw != 100 || snap.Offset != 0 || snap.Unit != Feet || snap.Precision != 10 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.Rounded != 330 || snap.Display != "328" {
		t.Fatalf("rounded=%d display=%q", snap.Rounded, snap.Display)
	}
	if snap.Samples != 1 || snap.LastSample.IsZero() {
		t.Fatalf("samples=%d last=%v", snap.Samples, snap.LastSample)
	}
}
