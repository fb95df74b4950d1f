package ctlscript

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// pyString returns s as a double-quoted Python 3 string literal.
// Printable non-ASCII runes are kept as is (sources are UTF-8).
func pyString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			switch {
			case r < 0x20 || r == 0x7f:
				fmt.Fprintf(&sb, `\x%02x`, r)
			case !unicode.IsPrint(r) && r <= 0xffff:
				fmt.Fprintf(&sb, `\u%04x`, r)
			case !unicode.IsPrint(r):
				fmt.Fprintf(&sb, `\U%08x`, r)
			default:
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// pyTripleString returns s as a """...""" literal. When s cannot terminate
// the literal early and holds no escapes it is embedded byte for byte.
func pyTripleString(s string) string {
	if verbatimTripleSafe(s) {
		return `"""` + s + `"""`
	}
	var sb strings.Builder
	sb.WriteString(`"""`)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r != '\n' && r != '\t' && (r < 0x20 || r == 0x7f):
			fmt.Fprintf(&sb, `\x%02x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString(`"""`)
	return sb.String()
}

func verbatimTripleSafe(s string) bool {
	if strings.ContainsRune(s, '\\') || strings.Contains(s, `"""`) || strings.HasSuffix(s, `"`) {
		return false
	}
	for _, r := range s {
		if r == '\r' || (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			return false
		}
	}
	return true
}

// pyList returns a Python list literal of strings.
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = pyString(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// pySeconds renders d as a Python number of seconds ("1", "0.5").
func pySeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
