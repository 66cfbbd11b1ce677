// Package pin models the simulated pin bank of the target board. Pins are
// enumerated once from a board profile; mutators on an unknown label report
// an error and change nothing, so a stray write never takes the board down.
package pin

import (
	"iter"
	"strconv"
	"sync"

	"github.com/nipudarsh/NeoLED-Simulator/internal"
)

// Mode is a pin direction mode.
type Mode string

const (
	Input       Mode = "INPUT"
	Output      Mode = "OUTPUT"
	InputPullup Mode = "INPUT_PULLUP"
)

// Valid reports whether the mode is one the dialect knows.
func (m Mode) Valid() bool {
	switch m {
	case Input, Output, InputPullup:
		return true
	}
	return false
}

// Pin holds the simulated state of one addressable pin. DigitalValue is 1
// whenever PwmValue is above zero; a plain digital write clears PwmValue.
type Pin struct {
	Label        string
	Mode         Mode
	DigitalValue int // 0 or 1
	PwmValue     int // 0..255
}

// ChangeFunc observes a pin after every digital or analog write, and once
// per pin during a reset sweep.
type ChangeFunc func(label string, digital, pwm int)

// Bank is the fixed set of simulated pins.
type Bank struct {
	OnChange ChangeFunc

	mu      sync.Mutex
	digital []string
	analog  []string
	pwm     map[string]bool
	pins    map[string]*Pin
}

// NewBank creates the pin bank described by the board profile.
func NewBank(profile *Profile) (bank *Bank) {
	bank = &Bank{
		pwm:  make(map[string]bool, len(profile.Pwm)),
		pins: make(map[string]*Pin),
	}

	for n := range profile.Digital {
		label := strconv.Itoa(n)
		bank.digital = append(bank.digital, label)
		bank.pins[label] = &Pin{Label: label, Mode: Input}
	}
	for _, label := range profile.Analog {
		bank.analog = append(bank.analog, label)
		bank.pins[label] = &Pin{Label: label, Mode: Input}
	}
	for _, n := range profile.Pwm {
		bank.pwm[strconv.Itoa(n)] = true
	}

	return
}

// Reset returns every pin to INPUT/0/0 and notifies the listener for each,
// so any visual state downstream clears.
func (b *Bank) Reset() {
	b.mu.Lock()
	for _, p := range b.pins {
		p.Mode = Input
		p.DigitalValue = 0
		p.PwmValue = 0
	}
	b.mu.Unlock()

	for label := range b.Pins() {
		b.notify(label, 0, 0)
	}
}

// Lookup returns a copy of the pin state.
func (b *Bank) Lookup(label string) (p Pin, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ptr, ok := b.pins[label]
	if ok {
		p = *ptr
	}
	return
}

// SetMode sets the direction mode of a pin. The listener is not notified;
// only writes change the visible level.
func (b *Bank) SetMode(label string, mode Mode) (err error) {
	if !mode.Valid() {
		return ErrModeInvalid(mode)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pins[label]
	if !ok {
		return ErrPinUnknown(label)
	}
	p.Mode = mode
	return
}

// SetDigital writes a digital level, coerced to 0 or 1. Any PWM duty on the
// pin is cleared.
func (b *Bank) SetDigital(label string, value int) (err error) {
	if value != 0 {
		value = 1
	}

	b.mu.Lock()
	p, ok := b.pins[label]
	if !ok {
		b.mu.Unlock()
		return ErrPinUnknown(label)
	}
	p.DigitalValue = value
	p.PwmValue = 0
	b.mu.Unlock()

	b.notify(label, value, 0)
	return
}

// SetPwm writes a PWM duty clamped to [0,255]. The digital level follows
// the duty: 1 while the duty is above zero, 0 otherwise.
func (b *Bank) SetPwm(label string, value int) (err error) {
	value = min(max(value, 0), 255)

	b.mu.Lock()
	p, ok := b.pins[label]
	if !ok {
		b.mu.Unlock()
		return ErrPinUnknown(label)
	}
	p.PwmValue = value
	p.DigitalValue = 0
	if value > 0 {
		p.DigitalValue = 1
	}
	digital := p.DigitalValue
	b.mu.Unlock()

	b.notify(label, digital, value)
	return
}

// PwmCapable reports whether the board wires a PWM timer to the pin.
func (b *Bank) PwmCapable(label string) bool {
	return b.pwm[label]
}

// Pins iterates the bank in board order, digital pins first.
func (b *Bank) Pins() iter.Seq2[string, Pin] {
	return internal.Concat2(b.seq(b.digital), b.seq(b.analog))
}

func (b *Bank) seq(labels []string) iter.Seq2[string, Pin] {
	return func(yield func(string, Pin) bool) {
		for _, label := range labels {
			b.mu.Lock()
			p := *b.pins[label]
			b.mu.Unlock()
			if !yield(label, p) {
				return
			}
		}
	}
}

func (b *Bank) notify(label string, digital, pwm int) {
	if b.OnChange != nil {
		b.OnChange(label, digital, pwm)
	}
}
