// Package exorehab controls a three-motor upper-limb rehabilitation
// exoskeleton and runs standardized therapy sessions on it.
//
// The elbow is driven by two motors (A and B) that always receive the same
// command; the wrist is driven by motor C. Every commanded angle is clamped
// into the joint's safety limits before it reaches the hardware.
//
// # Installation
//
//	go install github.com/gwillem/exorehab/cmd/exo@latest
//
// # Usage
//
// Run setup to choose a backend and, for real hardware, record the neutral
// pose of each servo:
//
//	exo setup
//
// Then run a session at one of three patient levels:
//
//	exo session --level beginner
//	exo session --level advanced --plain --report history.yaml
//
// Single moves are available for bench testing:
//
//	exo move --joint elbow --angle 45
//	exo exercise --movement wrist_pronation --amplitude 30
//	exo reset
//
// # Packages
//
//   - cmd/exo: CLI with setup, info, move, exercise, reset and session commands
//   - pkg/robot: actuator interface, mock and Feetech backends, calibration, config
//   - pkg/joint: joint controller with limit clamping and therapy movements
//   - pkg/therapy: protocol table, session engine and session history
//   - pkg/metrics: Prometheus counters fed by session progress
//   - pkg/monitor: progress channels for the live session view
package exorehab
