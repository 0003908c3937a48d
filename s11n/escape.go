package s11n

import (
	"io"
	"strings"
	"unicode/utf8"
)

// xmlChar reports whether r may appear in an XML document
func xmlChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r < 0x20:
		return false
	case r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	}
	return r >= 0x10000 && r <= utf8.MaxRune
}

// DumpQuotedString writes s as a quoted literal, preferring double
// quotes, then single quotes, then double quotes with &quot; escapes
func DumpQuotedString(out io.Writer, s string) error {
	q := `"`
	switch {
	case !strings.Contains(s, `"`):
	case !strings.Contains(s, `'`):
		q = `'`
	default:
		s = strings.ReplaceAll(s, `"`, "&quot;")
	}
	_, err := io.WriteString(out, q+s+q)
	return err
}

// EscapeAttrValue writes s escaped for a double quoted attribute value
func EscapeAttrValue(w io.Writer, s []byte) error {
	return escape(w, s, func(r rune) string {
		switch r {
		case '"':
			return "&#34;"
		case '\n':
			return "&#10;"
		case '\t':
			return "&#9;"
		}
		return ""
	})
}

// EscapeText writes s escaped as character data. Newlines are escaped
// only when escapeNewline is set.
func EscapeText(w io.Writer, s []byte, escapeNewline bool) error {
	return escape(w, s, func(r rune) string {
		if escapeNewline && r == '\n' {
			return "&#10;"
		}
		return ""
	})
}

func escape(w io.Writer, s []byte, extra func(rune) string) error {
	flushed := 0
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRune(s[i:])
		var repl string
		switch r {
		case '&':
			repl = "&amp;"
		case '<':
			repl = "&lt;"
		case '>':
			repl = "&gt;"
		case '\r':
			repl = "&#13;"
		default:
			repl = extra(r)
			if repl == "" && (!xmlChar(r) || (r == utf8.RuneError && width == 1)) {
				repl = "\uFFFD"
			}
		}
		if repl != "" {
			if _, err := w.Write(s[flushed:i]); err != nil {
				return err
			}
			if _, err := io.WriteString(w, repl); err != nil {
				return err
			}
			flushed = i + width
		}
		i += width
	}
	_, err := w.Write(s[flushed:])
	return err
}
