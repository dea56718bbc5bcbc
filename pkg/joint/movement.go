package joint

import "fmt"

// Movement is a named therapy movement.
type Movement int

const (
	ElbowFlexion Movement = iota + 1
	ElbowExtension
	WristPronation
	WristSupination
)

// AllMovements returns the movement vocabulary in session order.
func AllMovements() []Movement {
	return []Movement{ElbowFlexion, ElbowExtension, WristPronation, WristSupination}
}

func (m Movement) String() string {
	switch m {
	case ElbowFlexion:
		return "elbow_flexion"
	case ElbowExtension:
		return "elbow_extension"
	case WristPronation:
		return "wrist_pronation"
	case WristSupination:
		return "wrist_supination"
	}
	return fmt.Sprintf("movement(%d)", int(m))
}

// ParseMovement maps a movement name onto a Movement.
func ParseMovement(s string) (Movement, error) {
	for _, m := range AllMovements() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMovement, s)
}

func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Movement) UnmarshalText(text []byte) error {
	v, err := ParseMovement(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// plan returns the joint and signed direction of a movement. Targets are
// measured from neutral (0°), not from the current angle, so a session
// replays identically whatever pose it starts in.
func (m Movement) plan() (Joint, float64, error) {
	switch m {
	case ElbowFlexion:
		return Elbow, 1, nil
	case ElbowExtension:
		return Elbow, -1, nil
	case WristPronation:
		return Wrist, 1, nil
	case WristSupination:
		return Wrist, -1, nil
	}
	return 0, 0, fmt.Errorf("%w: %v", ErrUnknownMovement, m)
}
