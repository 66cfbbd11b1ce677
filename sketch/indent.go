package sketch

import (
	"regexp"
	"strings"
)

// block tracks one open brace scope during indentation.
type block struct {
	post    string // deferred for-loop step, emitted before the block closes
	emitted bool
}

var (
	rePostIncr = regexp.MustCompile(`^(.+?)\s*\+\+$`)
	rePostDecr = regexp.MustCompile(`^(.+?)\s*--$`)
	rePreIncr  = regexp.MustCompile(`^\+\+\s*(.+)$`)
	rePreDecr  = regexp.MustCompile(`^--\s*(.+)$`)
)

// indentify converts the brace/semicolon structure into indented Starlark
// lines. By this point every remaining brace delimits a block (initializer
// lists were rewritten earlier), so a single pass with a scope stack is
// enough. Top-level assignment targets are reported as sketch globals.
func indentify(text string) (lines []string, globals []string, err error) {
	var stack []block
	var stmt strings.Builder
	depth := 0 // paren/bracket nesting, so for(;;) semicolons survive
	quote := byte(0)

	emit := func(line string) {
		if line == "" {
			return
		}
		if len(stack) > 0 {
			stack[len(stack)-1].emitted = true
		}
		lines = append(lines, strings.Repeat("    ", len(stack))+line)
	}

	flush := func() {
		line := rewriteStatement(squeeze(stmt.String()))
		stmt.Reset()
		if line == "" {
			return
		}
		if len(stack) == 0 {
			globals = appendGlobal(globals, line)
		}
		emit(line)
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			stmt.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				stmt.WriteByte(text[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
			stmt.WriteByte(c)
		case '(', '[':
			depth++
			stmt.WriteByte(c)
		case ')', ']':
			depth--
			stmt.WriteByte(c)
		case ';':
			if depth > 0 {
				stmt.WriteByte(c)
				continue
			}
			flush()
		case '{':
			header := squeeze(stmt.String())
			stmt.Reset()
			var post string
			post, err = openBlock(header, emit)
			if err != nil {
				return
			}
			stack = append(stack, block{post: post})
		case '}':
			if squeeze(stmt.String()) != "" {
				flush() // tolerate a final statement missing its semicolon
			} else {
				stmt.Reset()
			}
			if len(stack) == 0 {
				err = ErrUnbalanced
				return
			}
			top := &stack[len(stack)-1]
			if top.post != "" {
				emit(rewriteStatement(top.post))
			} else if !top.emitted {
				emit("pass")
			}
			stack = stack[:len(stack)-1]
		default:
			stmt.WriteByte(c)
		}
	}

	if quote != 0 {
		err = ErrUnterminated
		return
	}
	if len(stack) != 0 {
		err = ErrUnbalanced
		return
	}
	if squeeze(stmt.String()) != "" {
		flush()
	}
	return
}

// openBlock emits the Starlark header for a `... {` scope and returns any
// deferred step statement (C-style for loops).
func openBlock(header string, emit func(string)) (post string, err error) {
	switch {
	case header == "":
		emit("if True:") // bare scope block
	case strings.HasPrefix(header, "def "):
		emit(header + ":")
	case header == "else":
		emit("else:")
	case keywordHeader(header, "else if"):
		cond, rest, cerr := parenContents(header)
		if cerr != nil || rest != "" {
			return "", ErrBlockHeader(header)
		}
		emit("elif " + cond + ":")
	case keywordHeader(header, "if"):
		cond, rest, cerr := parenContents(header)
		if cerr != nil || rest != "" {
			return "", ErrBlockHeader(header)
		}
		emit("if " + cond + ":")
	case keywordHeader(header, "while"):
		cond, rest, cerr := parenContents(header)
		if cerr != nil || rest != "" {
			return "", ErrBlockHeader(header)
		}
		if cond == "" {
			cond = "True"
		}
		emit("while " + cond + ":")
	case keywordHeader(header, "for"):
		inner, rest, cerr := parenContents(header)
		if cerr != nil || rest != "" {
			return "", ErrBlockHeader(header)
		}
		parts := splitTop(inner, ';')
		if len(parts) != 3 {
			return "", ErrForHeader(inner)
		}
		if init := rewriteStatement(strings.TrimSpace(parts[0])); init != "" {
			emit(init)
		}
		cond := strings.TrimSpace(parts[1])
		if cond == "" {
			cond = "True"
		}
		emit("while " + cond + ":")
		post = strings.TrimSpace(parts[2])
	default:
		err = ErrBlockHeader(header)
	}
	return
}

// rewriteStatement massages one dialect statement into Starlark: increment
// and decrement operators, and braceless single-statement if/while/else
// bodies folded onto one line.
func rewriteStatement(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	// Keyword headers fold first: the increment patterns are greedy and would
	// otherwise eat a whole `while (x < 3) x++` line.
	for _, kw := range []string{"if", "while"} {
		if !keywordHeader(line, kw) {
			continue
		}
		cond, rest, err := parenContents(line)
		if err != nil {
			break
		}
		return kw + " " + cond + ": " + bodyOrPass(rest)
	}
	if strings.HasPrefix(line, "else ") {
		return "else: " + bodyOrPass(line[len("else "):])
	}

	if m := rePostIncr.FindStringSubmatch(line); m != nil {
		return m[1] + " += 1"
	}
	if m := rePostDecr.FindStringSubmatch(line); m != nil {
		return m[1] + " -= 1"
	}
	if m := rePreIncr.FindStringSubmatch(line); m != nil {
		return m[1] + " += 1"
	}
	if m := rePreDecr.FindStringSubmatch(line); m != nil {
		return m[1] + " -= 1"
	}
	return line
}

func bodyOrPass(rest string) string {
	if body := rewriteStatement(rest); body != "" {
		return body
	}
	return "pass"
}

// keywordHeader reports whether the line starts with the keyword as a word.
func keywordHeader(line, keyword string) bool {
	if !strings.HasPrefix(line, keyword) {
		return false
	}
	rest := line[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '('
}

// parenContents splits a `kw (...) rest` header into the parenthesized text
// and whatever trails the closing paren.
func parenContents(header string) (inner, rest string, err error) {
	open := strings.IndexByte(header, '(')
	if open < 0 {
		return "", "", ErrBlockHeader(header)
	}
	depth := 0
	for i := open; i < len(header); i++ {
		switch header[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner = strings.TrimSpace(header[open+1 : i])
				rest = strings.TrimSpace(header[i+1:])
				return
			}
		}
	}
	return "", "", ErrUnbalanced
}

// splitTop splits on sep outside parens and brackets.
func splitTop(s string, sep byte) (parts []string) {
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return
}

// squeeze collapses whitespace runs outside string literals into single
// spaces and trims the ends.
func squeeze(s string) string {
	var out strings.Builder
	quote := byte(0)
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				out.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			out.WriteByte(c)
		case ' ', '\t', '\n', '\r':
			space = true
		default:
			if space && out.Len() > 0 {
				out.WriteByte(' ')
			}
			space = false
			out.WriteByte(c)
		}
	}
	return out.String()
}

// appendGlobal records a top-level assignment target as a sketch global.
func appendGlobal(globals []string, line string) []string {
	m := reGlobalDecl.FindStringSubmatch(line)
	if m == nil {
		return globals
	}
	name := m[1]
	if predeclared[name] || strings.HasPrefix(name, "__") {
		return globals
	}
	for _, g := range globals {
		if g == name {
			return globals
		}
	}
	return append(globals, name)
}
