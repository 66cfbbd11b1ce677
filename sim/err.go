package sim

import (
	"errors"

	"github.com/nipudarsh/NeoLED-Simulator/translate"
)

var f = translate.From

var (
	// ErrNoLoop means the sketch never defined the loop() entry point.
	ErrNoLoop = errors.New(f("sketch has no loop() routine"))
)
