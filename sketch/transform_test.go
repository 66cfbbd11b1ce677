package sketch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.starlark.net/starlark"
)

// recordEnv builds a predeclared environment whose primitives append a
// rendered "name(args)" string to calls instead of touching any hardware.
func recordEnv(calls *[]string) starlark.StringDict {
	env := starlark.StringDict{NameGlobals: starlark.NewDict(8)}
	record := func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		var parts []string
		for _, arg := range args {
			parts = append(parts, arg.String())
		}
		*calls = append(*calls, b.Name()+"("+strings.Join(parts, ", ")+")")
		return starlark.None, nil
	}
	for _, name := range []string{
		NameDelay, NamePinMode, NameDigitalWrite, NameAnalogWrite,
		NameDigitalRead, NameRandom, NameMillis,
		NameSerialBegin, NameSerialPrint, NameSerialPrintln,
	} {
		env[name] = starlark.NewBuiltin(name, record)
	}
	return env
}

func instantiate(t *testing.T, source string) (setup, loop starlark.Callable, calls *[]string, unit *Unit) {
	t.Helper()
	assert := assert.New(t)

	unit, err := Transform(source)
	assert.NoError(err)

	calls = &[]string{}
	thread := &starlark.Thread{Name: t.Name()}
	setup, loop, err = unit.Instantiate(thread, recordEnv(calls))
	assert.NoError(err)
	return
}

const blinkSource = `
// Blink with a toggle counter.
int led = 13;
int count = 0;

void setup() {
  pinMode(led, OUTPUT);
}

void loop() {
  count++;
  if (count % 2 == 1) {
    digitalWrite(led, HIGH);
  } else {
    digitalWrite(led, LOW);
  }
  delay(20);
}
`

func TestTransformBlink(t *testing.T) {
	assert := assert.New(t)

	unit, err := Transform(blinkSource)
	assert.NoError(err)
	assert.True(unit.HasSetup)
	assert.True(unit.HasLoop)
	assert.Empty(unit.Helpers)
	assert.Equal([]string{"led", "count"}, unit.Globals)
	assert.Contains(unit.Source, `G["led"] = 13`)
	assert.Contains(unit.Source, `G["count"] += 1`)
	assert.Contains(unit.Source, `if G["count"] % 2 == 1:`)
}

func TestBlinkExecution(t *testing.T) {
	assert := assert.New(t)

	setup, loop, calls, _ := instantiate(t, blinkSource)
	assert.NotNil(setup)
	assert.NotNil(loop)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, setup, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{`__pin_mode(13, "OUTPUT")`}, *calls)

	*calls = (*calls)[:0]
	_, err = starlark.Call(thread, loop, nil, nil)
	assert.NoError(err)
	_, err = starlark.Call(thread, loop, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{
		"__digital_write(13, 1)",
		"__delay(20)",
		"__digital_write(13, 0)",
		"__delay(20)",
	}, *calls)
}

func TestGlobalsSurviveLoopCalls(t *testing.T) {
	assert := assert.New(t)

	unit, err := Transform(blinkSource)
	assert.NoError(err)

	thread := &starlark.Thread{Name: t.Name()}
	env := recordEnv(&[]string{})
	_, loop, err := unit.Instantiate(thread, env)
	assert.NoError(err)

	for range 3 {
		_, err = starlark.Call(thread, loop, nil, nil)
		assert.NoError(err)
	}

	g := env[NameGlobals].(*starlark.Dict)
	count, found, err := g.Get(starlark.String("count"))
	assert.NoError(err)
	assert.True(found)
	assert.Equal(starlark.MakeInt(3), count)
}

func TestForLoopDesugar(t *testing.T) {
	assert := assert.New(t)

	setup, _, calls, _ := instantiate(t, `
void setup() {
  for (int i = 0; i < 3; i++) {
    analogWrite(9, i * 10);
  }
}
`)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, setup, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{
		"__analog_write(9, 0)",
		"__analog_write(9, 10)",
		"__analog_write(9, 20)",
	}, *calls)
}

func TestBracelessIncrementBody(t *testing.T) {
	assert := assert.New(t)

	_, loop, calls, _ := instantiate(t, `
int count = 0;

void loop() {
  while (count < 3) count++;
  analogWrite(9, count);
}
`)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, loop, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{"__analog_write(9, 3)"}, *calls)
}

func TestArrayGlobals(t *testing.T) {
	assert := assert.New(t)

	setup, _, calls, unit := instantiate(t, `
int leds[] = {3, 5, 6};

void setup() {
  pinMode(leds[1], OUTPUT);
}
`)

	assert.Equal([]string{"leds"}, unit.Globals)
	assert.Contains(unit.Source, `G["leds"] = [3, 5, 6]`)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, setup, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{`__pin_mode(5, "OUTPUT")`}, *calls)
}

func TestHelperRoutines(t *testing.T) {
	assert := assert.New(t)

	_, loop, calls, unit := instantiate(t, `
void flash() {
  digitalWrite(13, HIGH);
  delay(1);
  digitalWrite(13, LOW);
}

void loop() {
  flash();
}
`)

	assert.False(unit.HasSetup)
	assert.True(unit.HasLoop)
	assert.Equal([]string{"flash"}, unit.Helpers)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, loop, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{
		"__digital_write(13, 1)",
		"__delay(1)",
		"__digital_write(13, 0)",
	}, *calls)
}

func TestDefinesAndLiterals(t *testing.T) {
	assert := assert.New(t)

	setup, _, calls, _ := instantiate(t, `
#define LED_PIN 13
#define BAUD 9600

void setup() {
  Serial.begin(BAUD);
  Serial.println("delay(HIGH) && LOW");
  pinMode(LED_PIN, INPUT_PULLUP);
}
`)

	thread := &starlark.Thread{Name: t.Name()}
	_, err := starlark.Call(thread, setup, nil, nil)
	assert.NoError(err)
	assert.Equal([]string{
		"__serial_begin(9600)",
		`__serial_println("delay(HIGH) && LOW")`,
		`__pin_mode(13, "INPUT_PULLUP")`,
	}, *calls)
}

func TestOperatorRewrites(t *testing.T) {
	assert := assert.New(t)

	unit, err := Transform(`
int x = 7 / 2;
boolean armed = false;

void loop() {
  long t = millis();
  int v = digitalRead(A3);
  int r = random(2, 8);
  if (!v && t > 0 || false) {
    delay(r);
  }
}
`)
	assert.NoError(err)
	assert.Equal([]string{"x", "armed"}, unit.Globals)
	assert.Contains(unit.Source, `G["x"] = 7 // 2`)
	assert.Contains(unit.Source, `G["armed"] = False`)
	assert.Contains(unit.Source, "t = __millis()")
	assert.Contains(unit.Source, `v = __digital_read("A3")`)
	assert.Contains(unit.Source, "r = __random(2, 8)")
	assert.Contains(unit.Source, "if not v and t > 0 or False:")
}

func TestTransformMalformed(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name   string
		source string
		target error
	}{
		{name: "unbalanced", source: "void loop() {", target: ErrUnbalanced},
		{name: "stray close", source: "void loop() { } }", target: ErrUnbalanced},
		{name: "unterminated", source: `void loop() { Serial.print("abc); }`, target: ErrUnterminated},
		{name: "unknown header", source: "void loop() { switch (x) { } }"},
		{name: "bad expression", source: "void loop() { x = ; }"},
	}

	for _, testcase := range table {
		_, err := Transform(testcase.source)

		var malformed *MalformedSourceError
		assert.ErrorAs(err, &malformed, testcase.name)
		if testcase.target != nil {
			assert.ErrorIs(err, testcase.target, testcase.name)
		}
	}
}

func TestRewriteStatement(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		in  string
		out string
	}{
		{in: "", out: ""},
		{in: "x++", out: "x += 1"},
		{in: "x --", out: "x -= 1"},
		{in: "++x", out: "x += 1"},
		{in: "--x", out: "x -= 1"},
		{in: "if (x) f()", out: "if x: f()"},
		{in: "if (x > 1)", out: "if x > 1: pass"},
		{in: "while (x < 3) x++", out: "while x < 3: x += 1"},
		{in: "if (x) y++", out: "if x: y += 1"},
		{in: "if (x)--y", out: "if x: y -= 1"},
		{in: "else g()", out: "else: g()"},
		{in: "y = y + 1", out: "y = y + 1"},
	}

	for _, testcase := range table {
		assert.Equal(testcase.out, rewriteStatement(testcase.in), testcase)
	}
}
