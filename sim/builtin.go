package sim

import (
	"strconv"

	"go.starlark.net/starlark"

	"github.com/nipudarsh/NeoLED-Simulator/pin"
	"github.com/nipudarsh/NeoLED-Simulator/sketch"
)

// predeclared binds the primitive library and the sketch global store. Pin
// errors are logged and swallowed: a write to a pin the board does not have
// never kills the run.
func (s *Session) predeclared() starlark.StringDict {
	return starlark.StringDict{
		sketch.NameGlobals:       starlark.NewDict(16),
		sketch.NameDelay:         starlark.NewBuiltin(sketch.NameDelay, s.delayBuiltin),
		sketch.NamePinMode:       starlark.NewBuiltin(sketch.NamePinMode, s.pinModeBuiltin),
		sketch.NameDigitalWrite:  starlark.NewBuiltin(sketch.NameDigitalWrite, s.digitalWriteBuiltin),
		sketch.NameAnalogWrite:   starlark.NewBuiltin(sketch.NameAnalogWrite, s.analogWriteBuiltin),
		sketch.NameDigitalRead:   starlark.NewBuiltin(sketch.NameDigitalRead, s.digitalReadBuiltin),
		sketch.NameRandom:        starlark.NewBuiltin(sketch.NameRandom, s.randomBuiltin),
		sketch.NameMillis:        starlark.NewBuiltin(sketch.NameMillis, s.millisBuiltin),
		sketch.NameSerialBegin:   starlark.NewBuiltin(sketch.NameSerialBegin, s.serialBeginBuiltin),
		sketch.NameSerialPrint:   starlark.NewBuiltin(sketch.NameSerialPrint, s.serialPrintBuiltin),
		sketch.NameSerialPrintln: starlark.NewBuiltin(sketch.NameSerialPrintln, s.serialPrintlnBuiltin),
	}
}

// pinLabel renders a pin argument (13 or "A0") as a bank label.
func pinLabel(v starlark.Value) string {
	if text, ok := starlark.AsString(v); ok {
		return text
	}
	if n, err := starlark.AsInt32(v); err == nil {
		return strconv.Itoa(n)
	}
	return v.String()
}

// digitalLevel coerces a write argument to 0 or 1.
func digitalLevel(v starlark.Value) int {
	if text, ok := starlark.AsString(v); ok {
		switch text {
		case "HIGH":
			return 1
		case "LOW":
			return 0
		}
	}
	if v.Truth() {
		return 1
	}
	return 0
}

// displayString renders a serial print argument: strings verbatim,
// everything else in source form.
func displayString(v starlark.Value) string {
	if text, ok := starlark.AsString(v); ok {
		return text
	}
	return v.String()
}

func (s *Session) delayBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ms int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &ms); err != nil {
		return nil, err
	}
	s.delay(ms)
	return starlark.None, nil
}

func (s *Session) pinModeBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label, mode starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &label, &mode); err != nil {
		return nil, err
	}
	text, _ := starlark.AsString(mode)
	if err := s.bank.SetMode(pinLabel(label), pin.Mode(text)); err != nil {
		s.log(KindError, err.Error())
	}
	return starlark.None, nil
}

func (s *Session) digitalWriteBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label, level starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &label, &level); err != nil {
		return nil, err
	}
	if err := s.bank.SetDigital(pinLabel(label), digitalLevel(level)); err != nil {
		s.log(KindError, err.Error())
	}
	return starlark.None, nil
}

func (s *Session) analogWriteBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label starlark.Value
	var duty int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &label, &duty); err != nil {
		return nil, err
	}
	if err := s.bank.SetPwm(pinLabel(label), duty); err != nil {
		s.log(KindError, err.Error())
	}
	return starlark.None, nil
}

func (s *Session) digitalReadBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &label); err != nil {
		return nil, err
	}
	p, ok := s.bank.Lookup(pinLabel(label))
	if !ok {
		s.log(KindError, pin.ErrPinUnknown(pinLabel(label)).Error())
		return starlark.MakeInt(0), nil
	}
	return starlark.MakeInt(p.DigitalValue), nil
}

// randomBuiltin follows the dialect's half-open convention: random(max) is
// [0, max), random(min, max) is [min, max).
func (s *Session) randomBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, b int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &a, &b); err != nil {
		return nil, err
	}
	lo, hi := 0, a
	if len(args) == 2 {
		lo, hi = a, b
	}
	if hi-lo < 1 {
		return starlark.MakeInt(lo), nil
	}
	return starlark.MakeInt(lo + s.rand.Intn(hi-lo)), nil
}

func (s *Session) millisBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeInt64(s.millis()), nil
}

func (s *Session) serialBeginBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var baud int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0, &baud); err != nil {
		return nil, err
	}
	if baud == 0 {
		baud = 9600
	}
	// The locale-aware printer digit-groups %d; baud rates read as plain
	// numbers.
	s.log(KindSystem, f("serial ready (%v baud)", strconv.Itoa(baud)))
	return starlark.None, nil
}

func (s *Session) serialPrintBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s.serialWrite(args, false)
	return starlark.None, nil
}

func (s *Session) serialPrintlnBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s.serialWrite(args, true)
	return starlark.None, nil
}

// serialWrite appends print arguments to the serial line buffer; a println
// flushes the line to the log as an output entry.
func (s *Session) serialWrite(args starlark.Tuple, line bool) {
	s.mu.Lock()
	for _, v := range args {
		s.serial.WriteString(displayString(v))
	}
	if !line {
		s.mu.Unlock()
		return
	}
	message := s.serial.String()
	s.serial.Reset()
	s.mu.Unlock()

	s.log(KindOutput, message)
}
