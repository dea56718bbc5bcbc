package robot

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMotorCalibration_Ticks(t *testing.T) {
	cal := MotorCalibration{
		HomingOffset: 2048,
		TicksPerRev:  FeetechTicksPerRev,
	}

	tests := []struct {
		deg      float64
		expected int
	}{
		{0, 2048},    // home
		{90, 3072},   // quarter turn
		{-90, 1024},  // quarter turn back
		{180, 4096},  // half turn
		{45.5, 2566}, // fractional degrees round to nearest tick
	}

	for _, tt := range tests {
		got := cal.Ticks(tt.deg)
		if got != tt.expected {
			t.Errorf("Ticks(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Degrees(t *testing.T) {
	cal := MotorCalibration{
		HomingOffset: 2048,
		TicksPerRev:  FeetechTicksPerRev,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{2048, 0},
		{3072, 90},
		{1024, -90},
	}

	for _, tt := range tests {
		got := cal.Degrees(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Degrees(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_DriveModeInverts(t *testing.T) {
	cal := MotorCalibration{DriveMode: 1, TicksPerRev: DegreeTicksPerRev}

	assert.Equal(t, -30, cal.Ticks(30))
	assert.InDelta(t, 30, cal.Degrees(-30), 0.001)
}

func TestMotorCalibration_RangeLimitsTicks(t *testing.T) {
	cal := MotorCalibration{TicksPerRev: DegreeTicksPerRev, RangeMin: -10, RangeMax: 100}

	assert.Equal(t, 100, cal.Ticks(150))
	assert.Equal(t, -10, cal.Ticks(-40))
	assert.Equal(t, 50, cal.Ticks(50))
}

func TestMotorCalibration_ZeroTicksPerRevIsIdentity(t *testing.T) {
	var cal MotorCalibration

	assert.Equal(t, 42, cal.Ticks(42))
	assert.InDelta(t, 20.0, cal.TicksPerSecond(20), 0.001)
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	cal := MotorCalibration{
		HomingOffset: 1900,
		TicksPerRev:  FeetechTicksPerRev,
	}

	// Test round-trip: raw -> degrees -> raw
	for raw := 1000; raw <= 3000; raw += 100 {
		deg := cal.Degrees(raw)
		back := cal.Ticks(deg)
		if back != raw {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, deg, back)
		}
	}
}

func TestCalibration_MotorIDs(t *testing.T) {
	cal := Calibration{
		MotorC: MotorCalibration{ID: 3},
		MotorA: MotorCalibration{ID: 1},
		MotorB: MotorCalibration{ID: 2},
	}

	ids := cal.MotorIDs()
	expected := []int{1, 2, 3}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		MotorA: MotorCalibration{ID: 1, HomingOffset: 100},
		MotorC: MotorCalibration{ID: 3, HomingOffset: 300},
	}

	// Test finding existing ID
	motor, mc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if motor != MotorA {
		t.Errorf("ByID(1) returned motor %s, want A", motor)
	}
	if mc.HomingOffset != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", mc)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestCalibration_ForFallsBackToIdentity(t *testing.T) {
	cal := Calibration{}

	mc := cal.For(MotorB)
	assert.Equal(t, 2, mc.ID)
	assert.Equal(t, 10, mc.Ticks(10))
}

func TestCalibration_JSONKeysAreMotorLetters(t *testing.T) {
	data, err := json.Marshal(DefaultCalibration())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"A":`)
	assert.Contains(t, string(data), `"C":`)

	var back Calibration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, DefaultCalibration(), back)
}

func TestFeetechCalibration_GoalsStayInEncoderRange(t *testing.T) {
	for _, m := range AllMotors() {
		mc := FeetechCalibration()[m]
		assert.Equal(t, 0, mc.RangeMin)
		assert.Equal(t, FeetechTicksPerRev-1, mc.RangeMax)

		// A neutral pose near the top of the encoder span
		mc.HomingOffset = 3900
		assert.Equal(t, FeetechTicksPerRev-1, mc.Ticks(120))
		mc.HomingOffset = 100
		assert.Equal(t, 0, mc.Ticks(-90))
	}
}
