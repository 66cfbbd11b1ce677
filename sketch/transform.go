// Package sketch rewrites the restricted, Arduino-flavored C dialect into a
// compiled Starlark program. The rewrite is textual and line-oriented, in the
// same spirit as a macro assembler pass: well-formed dialect input transforms
// cleanly, pathological input (keyword-like substrings inside identifiers,
// nested initializer braces) may not. Whatever the underlying compiler
// rejects is surfaced as a MalformedSourceError.
package sketch

import (
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Names bound by the scheduler in every sketch's predeclared environment.
// The global store G carries the sketch's top-level variables, which lets
// loop() mutate them across iterations.
const (
	NameGlobals       = "G"
	NameDelay         = "__delay"
	NamePinMode       = "__pin_mode"
	NameDigitalWrite  = "__digital_write"
	NameAnalogWrite   = "__analog_write"
	NameDigitalRead   = "__digital_read"
	NameRandom        = "__random"
	NameMillis        = "__millis"
	NameSerialBegin   = "__serial_begin"
	NameSerialPrint   = "__serial_print"
	NameSerialPrintln = "__serial_println"
)

var predeclared = map[string]bool{
	NameGlobals:       true,
	NameDelay:         true,
	NamePinMode:       true,
	NameDigitalWrite:  true,
	NameAnalogWrite:   true,
	NameDigitalRead:   true,
	NameRandom:        true,
	NameMillis:        true,
	NameSerialBegin:   true,
	NameSerialPrint:   true,
	NameSerialPrintln: true,
}

// The dialect needs plain loops, top-level statements and helper recursion,
// which core Starlark leaves opt-in.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Unit is the runnable representation of one sketch.
type Unit struct {
	Source   string // generated Starlark text, kept for diagnostics
	Program  *starlark.Program
	Helpers  []string // user routines other than setup/loop
	Globals  []string // top-level variable names moved into G
	HasSetup bool
	HasLoop  bool
}

const typeKeyword = `unsigned\s+long|unsigned\s+int|int|float|long|double|boolean|byte|char|String`

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`//[^\n]*`)
	reDefine       = regexp.MustCompile(`(?m)^[ \t]*#define[ \t]+(\w+)[ \t]+([^\r\n]+)$`)
	reArrayDecl    = regexp.MustCompile(`\b(?:` + typeKeyword + `)\s+(\w+)\s*\[\s*\d*\s*\]`)
	reBareDecl     = regexp.MustCompile(`\b(?:` + typeKeyword + `)\s+(\w+)\s*;`)
	reTypedName    = regexp.MustCompile(`\b(?:` + typeKeyword + `)\s+(\w+)`)
	reInitList     = regexp.MustCompile(`=\s*\{([^{}]*)\}`)
	reRoutineDef   = regexp.MustCompile(`\bvoid\s+(\w+)\s*\(`)
	reVoidParams   = regexp.MustCompile(`\(\s*void\s*\)`)
	reNotOp        = regexp.MustCompile(`!=?`)
	reAnalogLabel  = regexp.MustCompile(`\bA([0-5])\b`)
	reGlobalDecl   = regexp.MustCompile(`^(\w+)\s*=(?:[^=]|$)`)
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Calls into the primitive library. Serial.println must precede Serial.print.
var callRewrites = []rewrite{
	{regexp.MustCompile(`\bdelay\s*\(`), NameDelay + "("},
	{regexp.MustCompile(`\bpinMode\s*\(`), NamePinMode + "("},
	{regexp.MustCompile(`\bdigitalWrite\s*\(`), NameDigitalWrite + "("},
	{regexp.MustCompile(`\banalogWrite\s*\(`), NameAnalogWrite + "("},
	{regexp.MustCompile(`\bdigitalRead\s*\(`), NameDigitalRead + "("},
	{regexp.MustCompile(`\brandom\s*\(`), NameRandom + "("},
	{regexp.MustCompile(`\bmillis\s*\(`), NameMillis + "("},
	{regexp.MustCompile(`\bSerial\.begin\s*\(`), NameSerialBegin + "("},
	{regexp.MustCompile(`\bSerial\.println\s*\(`), NameSerialPrintln + "("},
	{regexp.MustCompile(`\bSerial\.print\s*\(`), NameSerialPrint + "("},
	{regexp.MustCompile(`\bString\s*\(`), "str("},
}

var constRewrites = []rewrite{
	{regexp.MustCompile(`\bHIGH\b`), "1"},
	{regexp.MustCompile(`\bLOW\b`), "0"},
	{regexp.MustCompile(`\bINPUT_PULLUP\b`), `"INPUT_PULLUP"`},
	{regexp.MustCompile(`\bOUTPUT\b`), `"OUTPUT"`},
	{regexp.MustCompile(`\bINPUT\b`), `"INPUT"`},
	{regexp.MustCompile(`\btrue\b`), "True"},
	{regexp.MustCompile(`\bfalse\b`), "False"},
}

// Transform rewrites sketch source into a compiled Starlark program. It is
// deterministic and leaves its input untouched. Anything that prevents the
// sketch from compiling is returned as a *MalformedSourceError.
func Transform(source string) (unit *Unit, err error) {
	text := reBlockComment.ReplaceAllString(source, " ")
	text = reLineComment.ReplaceAllString(text, "")
	text = expandDefines(text)

	var routines []string
	text = mapCode(text, func(code string) string {
		// Array declarations first, so the generic type strip below
		// cannot leave the brackets behind.
		code = reArrayDecl.ReplaceAllString(code, "$1")
		code = reBareDecl.ReplaceAllString(code, "$1 = 0;")
		code = reTypedName.ReplaceAllString(code, "$1")
		code = reInitList.ReplaceAllString(code, "= [$1]")

		// Collect every user routine before rewriting any definition,
		// so call sites resolve regardless of definition order.
		for _, m := range reRoutineDef.FindAllStringSubmatch(code, -1) {
			routines = append(routines, m[1])
		}
		code = reRoutineDef.ReplaceAllString(code, "def $1(")
		code = reVoidParams.ReplaceAllString(code, "()")

		// Helper calls need no further marking: a Starlark call chain
		// already suspends in the Go builtins, however deep the delay.
		for _, r := range callRewrites {
			code = r.re.ReplaceAllString(code, r.repl)
		}
		for _, r := range constRewrites {
			code = r.re.ReplaceAllString(code, r.repl)
		}
		code = reAnalogLabel.ReplaceAllString(code, `"A$1"`)

		code = strings.ReplaceAll(code, "&&", " and ")
		code = strings.ReplaceAll(code, "||", " or ")
		code = reNotOp.ReplaceAllStringFunc(code, func(op string) string {
			if op == "!" {
				return " not "
			}
			return op
		})
		// C integer division floors; Starlark insists on // for that.
		code = strings.ReplaceAll(code, "/", "//")
		return code
	})

	lines, globals, err := indentify(text)
	if err != nil {
		return nil, &MalformedSourceError{Err: err}
	}
	star := strings.Join(lines, "\n") + "\n"

	// Move top-level variables into the predeclared G dict, rewriting every
	// reference by name. Starlark functions cannot rebind module globals,
	// and sketches mutate theirs from loop() all the time.
	for _, g := range globals {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(g) + `\b`)
		repl := NameGlobals + `["` + g + `"]`
		star = mapCode(star, func(code string) string {
			return re.ReplaceAllString(code, repl)
		})
	}

	_, prog, err := starlark.SourceProgramOptions(fileOptions, "sketch", star,
		func(name string) bool { return predeclared[name] })
	if err != nil {
		return nil, &MalformedSourceError{Err: err}
	}

	unit = &Unit{Source: star, Program: prog, Globals: globals}
	for _, name := range routines {
		switch name {
		case "setup":
			unit.HasSetup = true
		case "loop":
			unit.HasLoop = true
		default:
			unit.Helpers = append(unit.Helpers, name)
		}
	}
	return
}

// Instantiate runs the program's top level against the given environment and
// returns the setup and loop entry points. Either may be nil when the sketch
// does not define it. Top-level failures (the unit never became runnable)
// surface as *MalformedSourceError.
func (u *Unit) Instantiate(thread *starlark.Thread, env starlark.StringDict) (setup, loop starlark.Callable, err error) {
	globals, err := u.Program.Init(thread, env)
	if err != nil {
		return nil, nil, &MalformedSourceError{Err: err}
	}

	setup, _ = globals["setup"].(starlark.Callable)
	loop, _ = globals["loop"].(starlark.Callable)
	return
}

// expandDefines applies simple `#define NAME VALUE` constant substitution and
// drops the directive lines.
func expandDefines(text string) string {
	matches := reDefine.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	text = reDefine.ReplaceAllString(text, "")
	for _, m := range matches {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(m[1]) + `\b`)
		value := strings.TrimSpace(m[2])
		text = mapCode(text, func(code string) string {
			return re.ReplaceAllString(code, value)
		})
	}
	return text
}

// mapCode applies fn to the regions of src outside string and character
// literals, keeping the literals byte-for-byte.
func mapCode(src string, fn func(string) string) string {
	var out strings.Builder
	start := 0
	for i := 0; i < len(src); {
		c := src[i]
		if c != '"' && c != '\'' {
			i++
			continue
		}
		out.WriteString(fn(src[start:i]))
		j := i + 1
		for j < len(src) {
			if src[j] == '\\' {
				j += 2
				continue
			}
			if src[j] == c {
				j++
				break
			}
			j++
		}
		j = min(j, len(src))
		out.WriteString(src[i:j])
		i = j
		start = j
	}
	out.WriteString(fn(src[start:]))
	return out.String()
}
