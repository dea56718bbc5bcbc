// Package therapy sequences named rehabilitation protocols into joint
// movements and keeps an in-memory record of every session run.
package therapy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gwillem/exorehab/pkg/joint"
)

var ErrUnknownProtocol = errors.New("unknown protocol")

// Level is a patient difficulty level.
type Level int

const (
	Beginner Level = iota + 1
	Intermediate
	Advanced
)

// Levels returns every defined level in increasing difficulty.
func Levels() []Level {
	return []Level{Beginner, Intermediate, Advanced}
}

func (l Level) String() string {
	switch l {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps a level name onto a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels() {
		if strings.EqualFold(l.String(), s) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	v, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Protocol is the fixed exercise prescription of one level. Ranges are
// in degrees, Speed in degrees per second.
type Protocol struct {
	Level       Level   `json:"level" yaml:"level"`
	ElbowRange  float64 `json:"elbow_range" yaml:"elbow_range"`
	WristRange  float64 `json:"wrist_range" yaml:"wrist_range"`
	Speed       float64 `json:"speed" yaml:"speed"`
	Repetitions int     `json:"repetitions" yaml:"repetitions"`
}

var protocols = map[Level]Protocol{
	Beginner:     {Level: Beginner, ElbowRange: 30, WristRange: 20, Speed: 20, Repetitions: 3},
	Intermediate: {Level: Intermediate, ElbowRange: 60, WristRange: 45, Speed: 30, Repetitions: 5},
	Advanced:     {Level: Advanced, ElbowRange: 90, WristRange: 70, Speed: 40, Repetitions: 8},
}

// ProtocolFor returns the protocol of level.
func ProtocolFor(l Level) (Protocol, error) {
	p, ok := protocols[l]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: %v", ErrUnknownProtocol, l)
	}
	return p, nil
}

// Step is one movement of a repetition.
type Step struct {
	Movement  joint.Movement
	Amplitude float64
	Speed     float64
}

// Pause is the time the step's motion takes at its speed.
func (s Step) Pause() time.Duration {
	if s.Speed <= 0 {
		return 0
	}
	return time.Duration(s.Amplitude / s.Speed * float64(time.Second))
}

// Cycle returns the steps of one repetition in execution order.
func (p Protocol) Cycle() []Step {
	steps := make([]Step, 0, len(joint.AllMovements()))
	for _, m := range joint.AllMovements() {
		amp := p.WristRange
		if m == joint.ElbowFlexion || m == joint.ElbowExtension {
			amp = p.ElbowRange
		}
		steps = append(steps, Step{Movement: m, Amplitude: amp, Speed: p.Speed})
	}
	return steps
}

// Movements returns the total number of movements of a session.
func (p Protocol) Movements() int {
	return p.Repetitions * len(p.Cycle())
}

// MinDuration is the sum of all inter-movement pauses of a session.
func (p Protocol) MinDuration() time.Duration {
	var d time.Duration
	for _, s := range p.Cycle() {
		d += s.Pause()
	}
	return d * time.Duration(p.Repetitions)
}
