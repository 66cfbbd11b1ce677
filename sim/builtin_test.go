package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.starlark.net/starlark"

	"github.com/nipudarsh/NeoLED-Simulator/sketch"
)

func TestPinLabel(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		value starlark.Value
		label string
	}{
		{value: starlark.MakeInt(13), label: "13"},
		{value: starlark.MakeInt(0), label: "0"},
		{value: starlark.String("A0"), label: "A0"},
		{value: starlark.String("7"), label: "7"},
	}

	for _, testcase := range table {
		assert.Equal(testcase.label, pinLabel(testcase.value), testcase)
	}
}

func TestDigitalLevel(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		value starlark.Value
		level int
	}{
		{value: starlark.String("HIGH"), level: 1},
		{value: starlark.String("LOW"), level: 0},
		{value: starlark.MakeInt(0), level: 0},
		{value: starlark.MakeInt(1), level: 1},
		{value: starlark.MakeInt(42), level: 1},
		{value: starlark.Bool(true), level: 1},
		{value: starlark.Bool(false), level: 0},
	}

	for _, testcase := range table {
		assert.Equal(testcase.level, digitalLevel(testcase.value), testcase)
	}
}

// callInt invokes a session builtin through the interpreter and returns the
// integer result.
func callInt(t *testing.T, s *Session, name string, fn func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error), args ...starlark.Value) int {
	t.Helper()

	thread := &starlark.Thread{Name: t.Name()}
	v, err := starlark.Call(thread, starlark.NewBuiltin(name, fn), starlark.Tuple(args), nil)
	assert.NoError(t, err)

	n, err := starlark.AsInt32(v)
	assert.NoError(t, err)
	return n
}

func TestRandomBuiltin(t *testing.T) {
	assert := assert.New(t)

	s := NewSession(WithSeed(42))

	for range 50 {
		n := callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(5))
		assert.GreaterOrEqual(n, 0)
		assert.Less(n, 5)
	}
	for range 50 {
		n := callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(2), starlark.MakeInt(8))
		assert.GreaterOrEqual(n, 2)
		assert.Less(n, 8)
	}

	// Empty and inverted ranges collapse to the lower bound.
	assert.Equal(0, callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(0)))
	assert.Equal(5, callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(5), starlark.MakeInt(5)))
	assert.Equal(7, callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(7), starlark.MakeInt(3)))
}

func TestRandomBuiltinSeeded(t *testing.T) {
	assert := assert.New(t)

	draw := func() (ns []int) {
		s := NewSession(WithSeed(7))
		for range 10 {
			ns = append(ns, callInt(t, s, sketch.NameRandom, s.randomBuiltin, starlark.MakeInt(100)))
		}
		return
	}

	assert.Equal(draw(), draw())
}

func TestDigitalReadBuiltin(t *testing.T) {
	assert := assert.New(t)

	s := NewSession()
	assert.NoError(s.bank.SetDigital("7", 1))

	assert.Equal(1, callInt(t, s, sketch.NameDigitalRead, s.digitalReadBuiltin, starlark.MakeInt(7)))
	assert.Equal(0, callInt(t, s, sketch.NameDigitalRead, s.digitalReadBuiltin, starlark.String("A5")))

	// Unknown pins read as 0 and leave an error entry instead of failing.
	assert.Equal(0, callInt(t, s, sketch.NameDigitalRead, s.digitalReadBuiltin, starlark.MakeInt(99)))
	assert.True(hasEntry(s, KindError, "pin 99")())
}

func TestWriteBuiltinsLogPinErrors(t *testing.T) {
	assert := assert.New(t)

	s := NewSession()
	thread := &starlark.Thread{Name: t.Name()}

	_, err := starlark.Call(thread, starlark.NewBuiltin(sketch.NameDigitalWrite, s.digitalWriteBuiltin),
		starlark.Tuple{starlark.MakeInt(99), starlark.MakeInt(1)}, nil)
	assert.NoError(err)
	assert.True(hasEntry(s, KindError, "pin 99")())

	_, err = starlark.Call(thread, starlark.NewBuiltin(sketch.NamePinMode, s.pinModeBuiltin),
		starlark.Tuple{starlark.MakeInt(5), starlark.String("SIDEWAYS")}, nil)
	assert.NoError(err)
	assert.True(hasEntry(s, KindError, "SIDEWAYS")())
}

func TestSerialWrite(t *testing.T) {
	assert := assert.New(t)

	s := NewSession()
	s.serialWrite(starlark.Tuple{starlark.String("count: "), starlark.MakeInt(3)}, false)
	assert.Empty(s.Log()) // buffered until a println

	s.serialWrite(starlark.Tuple{starlark.String(" done")}, true)

	log := s.Log()
	assert.Len(log, 1)
	assert.Equal(KindOutput, log[0].Kind)
	assert.Equal("count: 3 done", log[0].Message)
}
