package sgml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInternal(t *testing.T, s string) *Entity {
	t.Helper()
	e := NewInternalEntity("test", s)
	require.NoError(t, e.Open(nil, ""), "internal entities open without a resolver")
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestReadChar(t *testing.T) {
	e := openInternal(t, "a\nb\x00")

	require.Equal(t, 'a', e.ReadChar())
	require.Equal(t, 1, e.Line)
	require.Equal(t, 1, e.LinePosition)

	require.Equal(t, '\n', e.ReadChar())
	require.True(t, e.IsWhitespace, "newline is whitespace")
	require.Equal(t, 2, e.Line)
	require.Equal(t, 0, e.LinePosition)

	require.Equal(t, 'b', e.ReadChar())
	require.Equal(t, 2, e.Line)
	require.Equal(t, 1, e.LinePosition)

	require.Equal(t, ' ', e.ReadChar(), "NUL is read as a space")
	require.Equal(t, EOF, e.ReadChar())
	require.Equal(t, EOF, e.Lastchar)
}

func TestScanToken(t *testing.T) {
	t.Run("stops at terminator", func(t *testing.T) {
		e := openInternal(t, "STMTTRN>rest")
		e.ReadChar()
		tok, err := e.ScanToken(" >", true)
		require.NoError(t, err)
		require.Equal(t, "STMTTRN", tok)
		require.Equal(t, '>', e.Lastchar, "terminator is not consumed")
	})
	t.Run("invalid name start", func(t *testing.T) {
		e := openInternal(t, "1abc ")
		e.ReadChar()
		_, err := e.ScanToken(" ", true)
		require.True(t, errors.Is(err, ErrInvalidCharacter), "digits cannot start a name")

		var perr ErrParseError
		require.True(t, errors.As(err, &perr), "error carries the position")
		require.Equal(t, 1, perr.LineNumber)
	})
	t.Run("invalid name character", func(t *testing.T) {
		e := openInternal(t, "ab$c ")
		e.ReadChar()
		_, err := e.ScanToken(" ", true)
		require.True(t, errors.Is(err, ErrInvalidCharacter))
	})
	t.Run("any characters without nmtoken", func(t *testing.T) {
		e := openInternal(t, "1$x y")
		e.ReadChar()
		tok, err := e.ScanToken(" ", false)
		require.NoError(t, err)
		require.Equal(t, "1$x", tok)
	})
}

func TestScanLiteral(t *testing.T) {
	e := openInternal(t, `"a&#65;&#x42;&amp;c" rest`)
	e.ReadChar()
	lit, err := e.ScanLiteral('"')
	require.NoError(t, err)
	require.Equal(t, "aAB&amp;c", lit, "numeric references are expanded, named ones are not")
	require.Equal(t, ' ', e.Lastchar, "closing quote is consumed")

	e = openInternal(t, `'unterminated`)
	e.ReadChar()
	_, err = e.ScanLiteral('\'')
	require.True(t, errors.Is(err, ErrUnexpectedEOF))
}

func TestScanToEnd(t *testing.T) {
	testcases := []struct {
		input    string
		term     string
		expected string
		next     rune
	}{
		{input: "plain-->x", term: "-->", expected: "plain", next: 'x'},
		{input: "a--b-->x", term: "-->", expected: "a--b", next: 'x'},
		{input: "x--->y", term: "-->", expected: "x-", next: 'y'},
		{input: "]]]>z", term: "]]>", expected: "]", next: 'z'},
		{input: "a]]b]]>", term: "]]>", expected: "a]]b", next: EOF},
		{input: "abab abac", term: "abac", expected: "abab ", next: EOF},
	}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			e := openInternal(t, tc.input)
			e.ReadChar()
			v, err := e.ScanToEnd(tc.term)
			require.NoError(t, err)
			require.Equal(t, tc.expected, v, "partial matches are given back")
			require.Equal(t, tc.next, e.Lastchar)
		})
	}

	t.Run("unterminated", func(t *testing.T) {
		e := openInternal(t, "abc--")
		e.ReadChar()
		v, err := e.ScanToEnd("-->")
		require.True(t, errors.Is(err, ErrUnexpectedEOF))
		require.Equal(t, "abc--", v)
	})
}

func TestExpandCharEntity(t *testing.T) {
	inputs := map[string]rune{
		"#65;":   'A',
		"#x263A": '☺',
		"#X41;":  'A',
	}
	for input, expected := range inputs {
		e := openInternal(t, input)
		e.ReadChar()
		r, err := e.ExpandCharEntity()
		require.NoError(t, err, "ExpandCharEntity should succeed for %q", input)
		require.Equal(t, expected, r)
	}

	for _, input := range []string{"#;", "#x;", "#99999999999"} {
		e := openInternal(t, input)
		e.ReadChar()
		_, err := e.ExpandCharEntity()
		require.True(t, errors.Is(err, ErrInvalidCharRef), "%q is not a valid reference", input)
	}
}

func TestExternalEntity(t *testing.T) {
	e := NewExternalEntity("ext", "", "ext.ent")
	err := e.Open(nil, "")
	require.True(t, errors.Is(err, ErrNoResolver), "external entities need a resolver")

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "ext.ent"), []byte("xy"), 0o600))

	e = NewExternalEntity("ext", "", "ext.ent")
	require.NoError(t, e.Open(FileResolver{Dir: dir}, filepath.Join(dir, "sub", "main.dtd")), "relative to the referencing entity")
	defer e.Close()
	require.Equal(t, 'x', e.ReadChar())
	require.Equal(t, 'y', e.ReadChar())
	require.Equal(t, EOF, e.ReadChar())
	require.True(t, strings.HasSuffix(e.uri, filepath.Join("sub", "ext.ent")))
}

func TestEntityStack(t *testing.T) {
	var s entityStack
	doc := NewDocumentEntity("doc", strings.NewReader(""))
	doc.uri = "/base/doc.sgml"
	require.NoError(t, s.push(doc))

	a := NewInternalEntity("a", "x")
	a.IsParameter = true
	require.NoError(t, s.push(a))
	b := NewInternalEntity("b", "y")
	b.IsParameter = true
	require.NoError(t, s.push(b))

	assert.Equal(t, "/base/doc.sgml", s.resolvedURI(2), "unset URIs resolve through the parent chain")
	assert.Equal(t, 1, b.parent)

	again := a.instance()
	err := s.push(again)
	require.True(t, errors.Is(err, ErrRecursiveEntity), "an entity already being read cannot be pushed")

	general := NewInternalEntity("a", "z")
	require.NoError(t, s.push(general), "general and parameter entities do not clash")

	require.Equal(t, general, s.pop())
	require.Equal(t, b, s.top())
	s.closeAll()
	require.Equal(t, 0, s.len())
}
