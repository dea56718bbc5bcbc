// Package robot provides the actuator layer of the exoskeleton: motor
// identifiers, encoder calibration, configuration and the hardware and
// simulated backends.
package robot

import "fmt"

// MotorID identifies a motor port on the exoskeleton.
type MotorID int

// Motor assignments for the 3-DOF upper limb exoskeleton.
const (
	MotorA MotorID = iota + 1 // elbow flexion/extension, primary
	MotorB                    // elbow flexion/extension, secondary torque support
	MotorC                    // wrist pronation/supination
)

// AllMotors returns all motors in port order (matching servo IDs 1-3).
func AllMotors() []MotorID {
	return []MotorID{
		MotorA,
		MotorB,
		MotorC,
	}
}

// Valid reports whether m is one of the known motor ports.
func (m MotorID) Valid() bool {
	return m >= MotorA && m <= MotorC
}

func (m MotorID) String() string {
	switch m {
	case MotorA:
		return "A"
	case MotorB:
		return "B"
	case MotorC:
		return "C"
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// Role returns a human-readable description of the motor's function.
func (m MotorID) Role() string {
	switch m {
	case MotorA:
		return "elbow primary"
	case MotorB:
		return "elbow secondary"
	case MotorC:
		return "wrist rotation"
	}
	return "unassigned"
}

// MarshalText encodes the motor as its port letter so calibration maps
// serialize with readable keys.
func (m MotorID) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid motor %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText parses a port letter.
func (m *MotorID) UnmarshalText(text []byte) error {
	switch string(text) {
	case "A", "a":
		*m = MotorA
	case "B", "b":
		*m = MotorB
	case "C", "c":
		*m = MotorC
	default:
		return fmt.Errorf("unknown motor %q", string(text))
	}
	return nil
}
