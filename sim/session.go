// Package sim schedules transformed sketches against the simulated pin bank.
// Execution is single-threaded and cooperative: the sketch yields inside the
// delay primitive and between loop() iterations, which is where pause and
// stop requests are observed.
package sim

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.starlark.net/starlark"

	"github.com/nipudarsh/NeoLED-Simulator/pin"
	"github.com/nipudarsh/NeoLED-Simulator/sketch"
)

// Scheduling granularity. Stop and pause are observed within these bounds,
// so cancellation latency is proportional to the poll interval, never to the
// full requested delay.
const (
	loopYield  = 10 * time.Millisecond  // breather between loop() iterations
	delaySlice = 10 * time.Millisecond  // stop poll inside delay()
	framePoll  = 16 * time.Millisecond  // pause poll inside delay()
	pausePoll  = 100 * time.Millisecond // pause poll between loop() iterations
)

// Session owns one simulator instance: the pin bank, the execution state
// machine and the log. At most one execution attempt is active at a time;
// Run stops any prior attempt and waits for it to finish before starting.
type Session struct {
	runMu sync.Mutex // serializes execution attempts

	mu        sync.Mutex
	state     State
	thread    *starlark.Thread
	entries   []Entry
	serial    strings.Builder
	start     time.Time
	pausedAt  time.Time
	pausedFor time.Duration

	bank    *pin.Bank
	profile *pin.Profile
	onLog   LogFunc
	onPin   pin.ChangeFunc
	rand    *rand.Rand
}

// Option configures a session.
type Option func(*Session)

// WithProfile selects the board profile. The default is the built-in Uno.
func WithProfile(profile *pin.Profile) Option {
	return func(s *Session) { s.profile = profile }
}

// WithLog registers the log listener, called synchronously on every append.
func WithLog(fn LogFunc) Option {
	return func(s *Session) { s.onLog = fn }
}

// WithPinChange registers the pin change listener.
func WithPinChange(fn pin.ChangeFunc) Option {
	return func(s *Session) { s.onPin = fn }
}

// WithSeed fixes the random() sequence.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.rand = rand.New(rand.NewSource(seed)) }
}

// NewSession creates an idle simulator session.
func NewSession(opts ...Option) (s *Session) {
	s = &Session{
		state: Idle,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.profile == nil {
		s.profile = pin.DefaultProfile()
	}
	s.bank = pin.NewBank(s.profile)
	s.bank.OnChange = s.onPin
	return
}

// State returns the current execution state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether execution is paused.
func (s *Session) Paused() bool {
	return s.State() == Paused
}

// Bank exposes the simulated pins.
func (s *Session) Bank() *pin.Bank {
	return s.bank
}

// Run transforms and executes a sketch, blocking until the run ends by stop
// or error. Any prior attempt is stopped first and its pins swept back to
// defaults. Failures are also reported on the log as error entries; Run
// never panics on sketch input.
func (s *Session) Run(source string) error {
	for !s.runMu.TryLock() {
		s.Stop()
		time.Sleep(time.Millisecond)
	}
	defer s.runMu.Unlock()

	thread := &starlark.Thread{Name: "sketch"}
	s.mu.Lock()
	s.state = Running
	s.thread = thread
	s.start = time.Now()
	s.pausedFor = 0
	s.serial.Reset()
	s.mu.Unlock()

	s.bank.Reset()
	s.log(KindSystem, f("compiling sketch (%d bytes)", len(source)))

	unit, err := sketch.Transform(source)
	if err != nil {
		return s.fail(err)
	}
	setup, loop, err := unit.Instantiate(thread, s.predeclared())
	if err != nil {
		return s.fail(err)
	}

	if setup != nil {
		if _, err := starlark.Call(thread, setup, nil, nil); err != nil {
			return s.fail(err)
		}
	} else {
		s.log(KindSystem, f("sketch has no setup() routine, skipping"))
	}
	if loop == nil {
		return s.fail(ErrNoLoop)
	}
	s.log(KindSystem, f("running"))

	for {
		switch s.State() {
		case Running:
		case Paused:
			time.Sleep(pausePoll)
			continue
		default:
			s.flushSerial()
			return nil
		}

		if _, err := starlark.Call(thread, loop, nil, nil); err != nil {
			return s.fail(err)
		}
		time.Sleep(loopYield)
	}
}

// Go runs the sketch on its own goroutine and reports the outcome on the
// returned channel once the run ends.
func (s *Session) Go(source string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(source) }()
	return done
}

// Pause suspends execution at the next suspension point. No-op unless
// running.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Paused
	s.pausedAt = time.Now()
	s.mu.Unlock()

	s.log(KindSystem, f("paused"))
}

// Resume continues a paused run. Paused time never counts toward an
// in-flight delay. No-op unless paused.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.state != Paused {
		s.mu.Unlock()
		return
	}
	s.pausedFor += time.Since(s.pausedAt)
	s.state = Running
	s.mu.Unlock()

	s.log(KindSystem, f("resumed"))
}

// Stop ends any run, sweeps the pins back to defaults and leaves the session
// ready for a new Run. The in-flight sketch is cancelled at its next
// suspension point, or preemptively if it never reaches one; Stop waits for
// it to wind down so no late write survives the sweep. Must not be called
// from a session callback.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == Paused {
		s.pausedFor += time.Since(s.pausedAt)
	}
	s.state = Stopped
	thread := s.thread
	s.thread = nil
	s.mu.Unlock()

	if thread != nil {
		thread.Cancel("stopped")
	}

	s.runMu.Lock()
	s.bank.Reset()
	s.runMu.Unlock()

	s.log(KindSystem, f("stopped"))
}

// ResetPins sweeps every pin back to defaults without touching execution
// state.
func (s *Session) ResetPins() {
	s.bank.Reset()
}

// fail ends the attempt as an error. A cancellation triggered by Stop is a
// clean shutdown, not an error.
func (s *Session) fail(err error) error {
	s.flushSerial()
	if s.State() == Stopped {
		return nil
	}
	s.log(KindError, err.Error())
	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()
	return err
}

// delay sleeps for the requested sketch time. Stop ends the wait within one
// slice; pause parks the countdown without consuming it.
func (s *Session) delay(ms int) {
	remaining := time.Duration(ms) * time.Millisecond
	for remaining > 0 {
		switch s.State() {
		case Running:
			step := min(remaining, delaySlice)
			time.Sleep(step)
			remaining -= step
		case Paused:
			time.Sleep(framePoll)
		default:
			return
		}
	}
}

// millis reports sketch time: wall-clock time since the run started, minus
// time spent paused.
func (s *Session) millis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.start) - s.pausedFor
	if s.state == Paused {
		elapsed -= time.Since(s.pausedAt)
	}
	return elapsed.Milliseconds()
}

func (s *Session) flushSerial() {
	s.mu.Lock()
	pending := s.serial.String()
	s.serial.Reset()
	s.mu.Unlock()

	if pending != "" {
		s.log(KindOutput, pending)
	}
}
