package pin

import (
	"errors"

	"github.com/nipudarsh/NeoLED-Simulator/translate"
)

var f = translate.From

var (
	// Profile errors
	ErrProfileEmpty = errors.New(f("board profile has no digital pins"))
)

type ErrPinUnknown string

func (err ErrPinUnknown) Error() string {
	return f("pin %v is not on this board", string(err))
}

type ErrModeInvalid Mode

func (err ErrModeInvalid) Error() string {
	return f("'%v' is not a pin mode", string(err))
}
