package backend

import (
	"fmt"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Python-style constants occasionally leak into the page scripts.
var literalWords = map[string]string{"True": "true", "False": "false", "None": "null"}

// DecodeLiteral decodes a JavaScript object literal embedded in a room page.
func DecodeLiteral(src string) (*gabs.Container, error) {
	var v interface{}
	if err := json5.Unmarshal([]byte(normalizeLiteral(src)), &v); err != nil {
		return nil, fmt.Errorf("decode inline literal: %w", err)
	}
	c, err := gabs.Consume(v)
	if err != nil {
		return nil, fmt.Errorf("wrap inline literal: %w", err)
	}
	return c, nil
}

// normalizeLiteral rewrites single-quoted strings as double-quoted ones, maps
// Python constants and drops trailing commas. Unquoted keys are left to json5.
func normalizeLiteral(src string) string {
	var b strings.Builder
	b.Grow(len(src) + 16)

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"':
			end := skipQuoted(src, i)
			b.WriteString(src[i:end])
			i = end - 1

		case c == '\'':
			i = writeSingleQuoted(&b, src, i)

		case c == ',':
			j := i + 1
			for j < len(src) && isSpace(src[j]) {
				j++
			}
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			b.WriteByte(c)

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := src[i:j]
			if repl, ok := literalWords[word]; ok {
				word = repl
			}
			b.WriteString(word)
			i = j - 1

		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipQuoted returns the index just past the double-quoted string starting at i.
func skipQuoted(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

// writeSingleQuoted writes the string starting at i in double quotes and
// returns the index of its closing quote.
func writeSingleQuoted(b *strings.Builder, src string, i int) int {
	b.WriteByte('"')
	for j := i + 1; j < len(src); j++ {
		switch c := src[j]; c {
		case '\\':
			if j+1 < len(src) && src[j+1] == '\'' {
				b.WriteByte('\'')
			} else if j+1 < len(src) {
				b.WriteByte('\\')
				b.WriteByte(src[j+1])
			}
			j++
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteByte('"')
			return j
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return len(src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
