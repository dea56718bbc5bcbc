package main

import (
	"context"
	"fmt"

	"github.com/gwillem/exorehab/pkg/joint"
)

type MoveCommand struct {
	Joint string  `short:"j" long:"joint" required:"true" choice:"elbow" choice:"wrist" description:"Joint to move"`
	Angle float64 `short:"a" long:"angle" required:"true" description:"Target angle in degrees"`
	Speed float64 `short:"s" long:"speed" default:"30" description:"Speed in degrees per second"`
}

func (c *MoveCommand) Execute(args []string) error {
	j, err := joint.ParseJoint(c.Joint)
	if err != nil {
		return err
	}

	r, err := openRig(false)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := r.ctrl.Move(context.Background(), joint.Command{Joint: j, Angle: c.Angle, Speed: c.Speed})
	if err != nil {
		return err
	}
	printOutcome(out)
	printAngles(r.ctrl)
	return nil
}

type ExerciseCommand struct {
	Movement  string  `short:"m" long:"movement" required:"true" choice:"elbow_flexion" choice:"elbow_extension" choice:"wrist_pronation" choice:"wrist_supination" description:"Therapy movement"`
	Amplitude float64 `short:"a" long:"amplitude" default:"45" description:"Range of motion from neutral in degrees"`
	Speed     float64 `short:"s" long:"speed" default:"25" description:"Speed in degrees per second"`
	Return    bool    `short:"r" long:"return" description:"Return to neutral afterwards"`
}

func (c *ExerciseCommand) Execute(args []string) error {
	m, err := joint.ParseMovement(c.Movement)
	if err != nil {
		return err
	}

	r, err := openRig(false)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := context.Background()
	fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ %s ━━━", m)))
	fmt.Printf("Amplitude: %.0f°, Speed: %.0f°/s\n", c.Amplitude, c.Speed)

	out, err := r.ctrl.PerformTherapyMovement(ctx, m, c.Amplitude, c.Speed)
	if err != nil {
		return err
	}
	printOutcome(out)

	if c.Return {
		for _, o := range r.ctrl.ResetPosition(ctx) {
			printOutcome(o)
		}
	}
	printAngles(r.ctrl)
	return nil
}

type ResetCommand struct{}

func (c *ResetCommand) Execute(args []string) error {
	r, err := openRig(false)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println("Resetting to neutral position...")
	failed := 0
	for _, o := range r.ctrl.ResetPosition(context.Background()) {
		printOutcome(o)
		if !o.Accepted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("reset incomplete: %d joint(s) faulted", failed)
	}
	fmt.Println(successStyle.Render("Reset complete"))
	return nil
}

func printAngles(ctrl *joint.Controller) {
	for _, j := range joint.AllJoints() {
		st, _ := ctrl.State(j)
		line := fmt.Sprintf("  %-6s %7.1f°  %s", j, st.Angle, dimStyle.Render(st.Limits.String()))
		if st.Stale {
			line += " " + warnStyle.Render("stale: reset before trusting this angle")
		}
		fmt.Println(line)
	}
}
