package therapy

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/exorehab/pkg/joint"
)

// Record is the sealed result of one session.
type Record struct {
	ID          uuid.UUID               `json:"id" yaml:"id"`
	Level       Level                   `json:"level" yaml:"level"`
	Protocol    Protocol                `json:"protocol" yaml:"protocol"`
	Start       time.Time               `json:"start" yaml:"start"`
	End         time.Time               `json:"end" yaml:"end"`
	Duration    time.Duration           `json:"duration" yaml:"duration"`
	Movements   []joint.Outcome         `json:"movements" yaml:"movements"`
	FinalAngles map[joint.Joint]float64 `json:"final_angles" yaml:"final_angles"`
}

// DurationSeconds returns the session duration in seconds.
func (r Record) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// Faults counts the movements that were not accepted.
func (r Record) Faults() int {
	n := 0
	for _, o := range r.Movements {
		if !o.Accepted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Movements = slices.Clone(r.Movements)
	r.FinalAngles = maps.Clone(r.FinalAngles)
	return r
}
