package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"exo.json" description:"Configuration file"`

	Setup    SetupCommand    `command:"setup" description:"Select the actuator backend and calibrate the neutral pose"`
	Info     InfoCommand     `command:"info" description:"Show configuration, limits and motor status"`
	Move     MoveCommand     `command:"move" description:"Move a joint to an absolute angle"`
	Exercise ExerciseCommand `command:"exercise" alias:"ex" description:"Perform a single therapy movement"`
	Reset    ResetCommand    `command:"reset" description:"Return both joints to neutral"`
	Session  SessionCommand  `command:"session" description:"Run a standard therapy session"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "exo - Upper limb rehabilitation exoskeleton control (2x elbow, 1x wrist)"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
