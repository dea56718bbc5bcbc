package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/exorehab/pkg/robot"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Exoskeleton Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		cfg = robot.DefaultConfig()
	}

	backend := string(cfg.Backend)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which actuator backend?").
				Options(
					huh.NewOption("Simulation (no hardware)", string(robot.BackendMock)),
					huh.NewOption("Feetech STS servos", string(robot.BackendFeetech)),
				).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	cfg.Backend = robot.Backend(backend)

	if cfg.Backend == robot.BackendFeetech {
		port, err := selectPort()
		if err != nil {
			return err
		}
		cfg.Port = port

		cal, err := calibrateNeutral(port)
		if err != nil {
			return err
		}
		cfg.Calibration = cal
	} else {
		cfg.Port = ""
		cfg.Calibration = robot.DefaultCalibration()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start a session with: " + headerStyle.Render("exo session --level beginner"))
	return nil
}

type exoPort struct {
	port   string
	servos []feetech.FoundServo
}

// findExoskeletons scans every serial port for a bus answering on servo IDs 1-3.
func findExoskeletons() []exoPort {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []exoPort
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := connectToExo(port)
		if err != nil {
			continue
		}
		bus.Close()

		fmt.Printf("  Found exoskeleton servos on %s\n", port)
		found = append(found, exoPort{port: port, servos: servos})
	}
	return found
}

func selectPort() (string, error) {
	fmt.Println("Scanning for exoskeleton servos...")
	fmt.Println()

	found := findExoskeletons()
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no servo bus with IDs 1-3 found; check power and USB connection")
	case 1:
		return found[0].port, nil
	}

	var options []huh.Option[string]
	for _, f := range found {
		options = append(options, huh.NewOption(f.port, f.port))
	}
	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port drives the exoskeleton?").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return port, nil
}

func connectToExo(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.ServoBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, 3)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isExo(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("not an exoskeleton bus (expected servos with IDs 1-3)")
	}

	return bus, servos, nil
}

func isExo(servos []feetech.FoundServo) bool {
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for _, m := range robot.AllMotors() {
		if !ids[int(m)] {
			return false
		}
	}
	return true
}

// calibrateNeutral records the encoder positions of the neutral pose
// (elbow extended, forearm mid-rotation) as homing offsets.
func calibrateNeutral(port string) (robot.Calibration, error) {
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating neutral pose ━━━"))
	fmt.Println()

	bus, servos, err := connectToExo(port)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", port, err)
	}
	defer bus.Close()

	ctx := context.Background()
	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so the therapist can move the exoskeleton freely
	if err := releaseTorque(ctx, servoMap); err != nil {
		return nil, err
	}

	waitForUser("Move the exoskeleton to neutral: elbow fully extended, palm facing inward.")

	var mirrored bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Is the secondary elbow motor (B) mounted mirrored?").
				Description("Mirrored motors turn the opposite way for the same flexion").
				Value(&mirrored),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cal := robot.FeetechCalibration()
	for _, m := range robot.AllMotors() {
		mc := cal[m]
		pos, err := servoMap[mc.ID].Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read motor %s: %w", m, err)
		}
		mc.HomingOffset = pos
		if m == robot.MotorB && mirrored {
			mc.DriveMode = 1
		}
		cal[m] = mc
		fmt.Printf("  Motor %s (%s): neutral at %d\n", m, m.Role(), pos)
	}

	return cal, nil
}

type torqueSwitch interface {
	Disable(ctx context.Context) error
}

// releaseTorque disables every servo, in servo ID order. A servo that keeps
// its torque would hold the limb and corrupt the recorded neutral pose.
func releaseTorque[S torqueSwitch](ctx context.Context, servos map[int]S) error {
	ids := slices.Sorted(maps.Keys(servos))
	var errs []error
	for _, id := range ids {
		if err := servos[id].Disable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disable torque on servo %d: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("release torque before calibration: %w", err)
	}
	return nil
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}
