package robot

import "math"

// Encoder resolutions.
const (
	DegreeTicksPerRev  = 360  // BrickPi-style encoders report whole degrees
	FeetechTicksPerRev = 4096 // STS3215 magnetic encoder
)

// MotorCalibration maps joint degrees onto a motor's encoder ticks.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`    // 1 inverts the direction of rotation
	HomingOffset int `json:"homing_offset"` // raw ticks at 0 degrees
	TicksPerRev  int `json:"ticks_per_rev"`
	RangeMin     int `json:"range_min,omitempty"`
	RangeMax     int `json:"range_max,omitempty"`
}

// Calibration holds calibration data for all motors, keyed by motor.
type Calibration map[MotorID]MotorCalibration

// DefaultCalibration returns a 1 tick per degree calibration with servo IDs 1-3.
func DefaultCalibration() Calibration {
	return newCalibration(DegreeTicksPerRev, 0, 0)
}

// FeetechCalibration returns a calibration for STS servos homed at
// mid-range. Goals are limited to the encoder's 0..4095 span.
func FeetechCalibration() Calibration {
	return newCalibration(FeetechTicksPerRev, FeetechTicksPerRev/2, FeetechTicksPerRev-1)
}

func newCalibration(ticksPerRev, offset, rangeMax int) Calibration {
	cal := make(Calibration, len(AllMotors()))
	for _, m := range AllMotors() {
		cal[m] = MotorCalibration{
			ID:           int(m),
			HomingOffset: offset,
			TicksPerRev:  ticksPerRev,
			RangeMax:     rangeMax,
		}
	}
	return cal
}

func (c MotorCalibration) ticksPerDegree() float64 {
	tpr := c.TicksPerRev
	if tpr <= 0 {
		tpr = DegreeTicksPerRev
	}
	return float64(tpr) / 360
}

func (c MotorCalibration) sign() float64 {
	if c.DriveMode == 1 {
		return -1
	}
	return 1
}

// Ticks converts a joint angle in degrees to a raw encoder position.
// When a raw range is configured the result is limited to it.
func (c MotorCalibration) Ticks(deg float64) int {
	raw := c.HomingOffset + int(math.Round(c.sign()*deg*c.ticksPerDegree()))
	if c.RangeMin < c.RangeMax {
		raw = max(c.RangeMin, min(c.RangeMax, raw))
	}
	return raw
}

// Degrees converts a raw encoder position to a joint angle.
func (c MotorCalibration) Degrees(raw int) float64 {
	return c.sign() * float64(raw-c.HomingOffset) / c.ticksPerDegree()
}

// TicksPerSecond converts an angular speed to encoder ticks per second.
func (c MotorCalibration) TicksPerSecond(degPerSec float64) float64 {
	return degPerSec * c.ticksPerDegree()
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, m := range AllMotors() {
		if mc, ok := c[m]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns the motor and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorID, MotorCalibration, bool) {
	for m, mc := range c {
		if mc.ID == id {
			return m, mc, true
		}
	}
	return 0, MotorCalibration{}, false
}

// For returns the calibration for motor, falling back to the identity
// calibration when the motor is not configured.
func (c Calibration) For(m MotorID) MotorCalibration {
	if mc, ok := c[m]; ok {
		return mc
	}
	return MotorCalibration{ID: int(m), TicksPerRev: DegreeTicksPerRev}
}
