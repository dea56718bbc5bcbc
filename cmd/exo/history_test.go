package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/therapy"
)

func TestWriteReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p, err := therapy.ProtocolFor(therapy.Beginner)
	require.NoError(t, err)

	rec := therapy.Record{
		ID:       uuid.New(),
		Level:    therapy.Beginner,
		Protocol: p,
		Start:    start,
		End:      start.Add(12 * time.Second),
		Duration: 12 * time.Second,
		Movements: []joint.Outcome{
			{Joint: joint.Elbow, Movement: joint.ElbowFlexion, Requested: 30, Clamped: 30, Accepted: true},
			{Joint: joint.Wrist, Movement: joint.WristPronation, Requested: 20, Clamped: 0, Reason: joint.ReasonActuatorFault, Detail: "motor C: set target: injected fault"},
		},
		FinalAngles: map[joint.Joint]float64{joint.Elbow: 30, joint.Wrist: 0},
	}

	path := filepath.Join(t.TempDir(), "history.yaml")
	require.NoError(t, writeReport(path, []therapy.Record{rec}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Sessions []struct {
			ID          string             `yaml:"id"`
			Level       string             `yaml:"level"`
			FinalAngles map[string]float64 `yaml:"final_angles"`
			Movements   []struct {
				Movement string `yaml:"movement"`
				Accepted bool   `yaml:"accepted"`
				Reason   string `yaml:"reason"`
			} `yaml:"movements"`
		} `yaml:"sessions"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Sessions, 1)

	s := doc.Sessions[0]
	assert.Equal(t, rec.ID.String(), s.ID)
	assert.Equal(t, "beginner", s.Level)
	assert.Equal(t, map[string]float64{"elbow": 30, "wrist": 0}, s.FinalAngles)
	require.Len(t, s.Movements, 2)
	assert.Equal(t, "elbow_flexion", s.Movements[0].Movement)
	assert.True(t, s.Movements[0].Accepted)
	assert.Equal(t, "actuator_fault", s.Movements[1].Reason)
}

func TestShortID(t *testing.T) {
	id := uuid.MustParse("0f8d3c2a-1111-4222-8333-444455556666")
	assert.Equal(t, "0f8d3c2a", shortID(therapy.Record{ID: id}))
}
