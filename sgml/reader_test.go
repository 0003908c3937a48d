package sgml

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readerDTD = `
<!ENTITY % leaf "- o (#PCDATA)">
<!ENTITY nbsp "&#160;">
<!ELEMENT OFX - - (SIGNON, LIST?)>
<!ELEMENT SIGNON - - (CODE, MEMO?)>
<!ELEMENT (CODE|MEMO|NAME) %leaf;>
<!ELEMENT LIST - - (ITEM*)>
<!ELEMENT ITEM - O (NAME, MEMO?)>
<!ELEMENT SCRIPT - - CDATA>
<!ELEMENT BR - O EMPTY>
<!ATTLIST ITEM kind CDATA "plain">
`

func loadReaderDTD(t *testing.T) *DTD {
	t.Helper()
	dtd, err := ParseDTDString("reader", readerDTD)
	require.NoError(t, err, "ParseDTDString should succeed")
	return dtd
}

// events renders the node stream compactly: simulated end tags are
// marked with a trailing '*'
func events(t *testing.T, r *Reader) []string {
	t.Helper()
	var list []string
	for {
		err := r.Next()
		if err == io.EOF {
			return list
		}
		require.NoError(t, err, "Next should succeed")

		switch r.NodeType() {
		case NodeElement:
			if r.IsEmptyElement() {
				list = append(list, "<"+r.Name()+"/>")
			} else {
				list = append(list, "<"+r.Name()+">")
			}
		case NodeEndElement:
			s := "</" + r.Name() + ">"
			if r.IsSimulated() {
				s += "*"
			}
			list = append(list, s)
		case NodeText:
			list = append(list, r.Value())
		case NodeWhitespace:
			list = append(list, "ws")
		case NodeCDATA:
			list = append(list, "cdata:"+r.Value())
		case NodeComment:
			list = append(list, "comment:"+r.Value())
		case NodeProcessingInstruction:
			list = append(list, "pi:"+r.Name()+" "+r.Value())
		case NodeDocumentType:
			list = append(list, "doctype:"+r.Name())
		default:
			t.Fatalf("unexpected node type %s", r.NodeType())
		}
	}
}

func TestReaderAutoClose(t *testing.T) {
	dtd := loadReaderDTD(t)

	testcases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:  "text only elements close at the next tag",
			input: `<OFX><SIGNON><CODE>0<MEMO>hi</SIGNON></OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>*", "<MEMO>", "hi", "</MEMO>*", "</SIGNON>", "</OFX>",
			},
		},
		{
			name:  "optional end tags are closed up to an ancestor that fits",
			input: `<OFX><LIST><ITEM><NAME>a<ITEM><NAME>b</LIST></OFX>`,
			expected: []string{
				"<OFX>", "<LIST>",
				"<ITEM>", "<NAME>", "a", "</NAME>*", "</ITEM>*",
				"<ITEM>", "<NAME>", "b", "</NAME>*", "</ITEM>*",
				"</LIST>", "</OFX>",
			},
		},
		{
			name:  "mandatory end tags are never inferred",
			input: `<OFX><SIGNON><CODE>0</CODE><LIST></LIST></SIGNON></OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>", "<LIST>", "</LIST>", "</SIGNON>", "</OFX>",
			},
		},
		{
			name:  "end of input closes every open element",
			input: `<OFX><SIGNON><CODE>0`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>*", "</SIGNON>*", "</OFX>*",
			},
		},
		{
			name:  "end tags close down to the matching element",
			input: `<OFX><SIGNON><CODE>0<MEMO>m</OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>*", "<MEMO>", "m", "</MEMO>*", "</SIGNON>*", "</OFX>",
			},
		},
		{
			name:  "unmatched end tags are ignored",
			input: `<OFX></LIST><SIGNON></SIGNON></OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "</SIGNON>", "</OFX>",
			},
		},
		{
			name:  "undeclared elements holding text are leaves",
			input: `<OFX><SIGNON><CODE>0<EXTRA>x<MEMO>m</SIGNON></OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>*", "<EXTRA>", "x", "</EXTRA>*", "<MEMO>", "m", "</MEMO>*", "</SIGNON>", "</OFX>",
			},
		},
		{
			name:  "EMPTY elements are not left open",
			input: `<OFX><SIGNON><CODE>1<BR><MEMO>x</SIGNON></OFX>`,
			expected: []string{
				"<OFX>", "<SIGNON>", "<CODE>", "1", "</CODE>*", "<BR/>", "<MEMO>", "x", "</MEMO>*", "</SIGNON>", "</OFX>",
			},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tc.input), WithDTD(dtd), WithWhitespace(WhitespaceNone))
			defer r.Close()
			require.Equal(t, tc.expected, events(t, r))
		})
	}
}

func TestReaderDiagnostics(t *testing.T) {
	dtd := loadReaderDTD(t)

	var buf bytes.Buffer
	tlog := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const input = `<OFX><SIGNON><CODE>0</CODE><LIST></LIST></SIGNON></UNKNOWN><LIST a="1" a="2"></LIST></OFX>`
	r := NewReader(strings.NewReader(input), WithDTD(dtd), WithTraceLogger(tlog))
	defer r.Close()
	events(t, r)

	out := buf.String()
	assert.Contains(t, out, "nesting anyway", "giving up on auto-close is logged")
	assert.Contains(t, out, "ignoring unmatched end tag")
	assert.Contains(t, out, "duplicate attribute ignored")
}

func TestReaderDepth(t *testing.T) {
	dtd := loadReaderDTD(t)
	r := NewReader(strings.NewReader(`<OFX><SIGNON><CODE>0<MEMO>m</SIGNON></OFX>`), WithDTD(dtd))
	defer r.Close()

	var depths []int
	for r.Next() == nil {
		depths = append(depths, r.Depth())
	}
	// OFX SIGNON CODE "0" /CODE MEMO "m" /MEMO /SIGNON /OFX
	require.Equal(t, []int{0, 1, 2, 3, 2, 2, 3, 2, 1, 0}, depths)
}

func TestReaderEntities(t *testing.T) {
	dtd := loadReaderDTD(t)
	const input = `<OFX><SIGNON><CODE>a&amp;b&nbsp;&#65;&unknown;AT&T&lt;</CODE></SIGNON></OFX>`
	r := NewReader(strings.NewReader(input), WithDTD(dtd))
	defer r.Close()

	list := events(t, r)
	require.Equal(t, "a&b\u00a0A&unknown;AT&T<", list[3], "known references expand, unknown ones are kept")
}

func TestReaderInvalidCharRefs(t *testing.T) {
	dtd := loadReaderDTD(t)
	inputs := map[string]string{
		"&#xZZ;":      "&#xZZ;",
		"&#x;":        "&#x;",
		"&#;":         "&#;",
		"&#65x":       "Ax",
		"&#xD800;x":   "&#xD800;x",
		"&#99999999;": "&#99999999;",
		"a&#X41;b":    "aAb",
	}
	for input, expected := range inputs {
		r := NewReader(strings.NewReader("<OFX><SIGNON><CODE>"+input+"</CODE></SIGNON></OFX>"), WithDTD(dtd))
		list := events(t, r)
		r.Close()
		require.Equal(t, expected, list[3], "text of %q", input)
	}
}

func TestReaderCDATAContent(t *testing.T) {
	dtd := loadReaderDTD(t)
	const input = `<OFX><SCRIPT>a<b>c<!--x-->d</x><?pi data?></SCRIPT></OFX>`
	r := NewReader(strings.NewReader(input), WithDTD(dtd))
	defer r.Close()

	require.Equal(t, []string{
		"<OFX>", "<SCRIPT>",
		"cdata:a<b>c", "comment:x", "cdata:d</x>", "pi:pi data",
		"</SCRIPT>", "</OFX>",
	}, events(t, r))
}

func TestReaderAttributes(t *testing.T) {
	dtd := loadReaderDTD(t)
	const input = `<OFX><LIST><ITEM kind="special" kind='dup' id=7 flag><NAME>a<ITEM><NAME>b</LIST></OFX>`
	r := NewReader(strings.NewReader(input), WithDTD(dtd))
	defer r.Close()

	for range 3 {
		require.NoError(t, r.Next())
	}
	require.Equal(t, "ITEM", r.Name())
	require.Equal(t, 3, r.AttributeCount(), "duplicates are dropped")

	require.True(t, r.MoveToAttribute(0))
	require.Equal(t, NodeAttribute, r.NodeType())
	require.Equal(t, "kind", r.Name())
	require.Equal(t, "special", r.Value(), "the first duplicate wins")
	require.Equal(t, '"', r.QuoteChar())
	require.Equal(t, 3, r.Depth())
	require.False(t, r.IsDefault())

	require.True(t, r.ReadAttributeValue())
	require.Equal(t, NodeText, r.NodeType())
	require.Equal(t, "special", r.Value())
	require.False(t, r.ReadAttributeValue(), "the value is read once")

	require.True(t, r.MoveToAttributeByName("id"))
	require.Equal(t, "7", r.Value())
	require.Equal(t, rune(0), r.QuoteChar(), "unquoted value")

	require.True(t, r.MoveToAttribute(2))
	require.Equal(t, "flag", r.Value(), "minimized attribute")
	require.False(t, r.MoveToAttribute(3))

	require.True(t, r.MoveToElement())
	require.Equal(t, NodeElement, r.NodeType())
	require.Equal(t, "ITEM", r.Name())
	require.False(t, r.MoveToElement())

	v, ok := r.GetAttribute("id")
	require.True(t, ok)
	require.Equal(t, "7", v)
	_, ok = r.GetAttribute("missing")
	require.False(t, ok)

	// the cursor does not disturb the stream
	require.True(t, r.MoveToAttribute(1))
	require.NoError(t, r.Next())
	require.Equal(t, NodeElement, r.NodeType())
	require.Equal(t, "NAME", r.Name())

	// second ITEM gets the DTD default
	for r.Next() == nil {
		if r.NodeType() == NodeElement && r.Name() == "ITEM" {
			break
		}
	}
	require.Equal(t, 1, r.AttributeCount())
	require.True(t, r.MoveToAttribute(0))
	require.Equal(t, "plain", r.Value())
	require.True(t, r.IsDefault())
}

func TestReaderDocType(t *testing.T) {
	t.Run("identifiers as attributes", func(t *testing.T) {
		r := NewReader(strings.NewReader(`<!DOCTYPE OFX PUBLIC "-//OFX//DTD" "ofx.dtd"><OFX></OFX>`))
		defer r.Close()

		require.NoError(t, r.Next())
		require.Equal(t, NodeDocumentType, r.NodeType())
		require.Equal(t, "OFX", r.Name())
		require.Equal(t, 2, r.AttributeCount())

		require.True(t, r.MoveToAttributeByName("PUBLIC"))
		require.True(t, r.ReadAttributeValue())
		require.Equal(t, "-//OFX//DTD", r.Value())
		v, ok := r.GetAttribute("SYSTEM")
		require.True(t, ok)
		require.Equal(t, "ofx.dtd", v)
		require.Nil(t, r.DTD(), "no resolver, no DTD")

		require.NoError(t, r.Next())
		require.Equal(t, "OFX", r.Name())
	})
	t.Run("internal subset", func(t *testing.T) {
		const input = `<!DOCTYPE A [<!ELEMENT A - - (B+)><!ELEMENT B - O (#PCDATA)>]><A><B>x<B>y</A>`
		r := NewReader(strings.NewReader(input))
		defer r.Close()

		require.Equal(t, []string{
			"doctype:A", "<A>", "<B>", "x", "</B>*", "<B>", "y", "</B>*", "</A>",
		}, events(t, r))
		require.NotNil(t, r.DTD(), "the internal subset is loaded")
	})
}

func TestReaderMisc(t *testing.T) {
	testcases := []struct {
		name     string
		input    string
		options  []ReaderOption
		expected []string
	}{
		{
			name:     "processing instructions and comments",
			input:    `<?xml version="1.0"?><!-- hi --><A/>`,
			expected: []string{`pi:xml version="1.0"`, "comment: hi ", "<A/>"},
		},
		{
			name:     "whitespace is reported by default",
			input:    "<A> <B>x</B>\n</A>",
			expected: []string{"<A>", "ws", "<B>", "x", "</B>", "ws", "</A>"},
		},
		{
			name:     "whitespace can be suppressed",
			input:    "<A> <B>x</B>\n</A>",
			options:  []ReaderOption{WithWhitespace(WhitespaceNone)},
			expected: []string{"<A>", "<B>", "x", "</B>", "</A>"},
		},
		{
			name:     "marked CDATA section",
			input:    `<A><![CDATA[<x>&amp;]]></A>`,
			expected: []string{"<A>", "cdata:<x>&amp;", "</A>"},
		},
		{
			name:     "lone less-than is text",
			input:    `<A>1 < 2</A>`,
			expected: []string{"<A>", "1 ", "< 2", "</A>"},
		},
		{
			name:     "case folding",
			input:    `<a><b>x</B></A>`,
			options:  []ReaderOption{WithCaseFolding(CaseFoldUpper)},
			expected: []string{"<A>", "<B>", "x", "</B>", "</A>"},
		},
		{
			name:     "byte order mark is skipped",
			input:    "\ufeff<A></A>",
			expected: []string{"<A>", "</A>"},
		},
		{
			name:     "no DTD means no inference",
			input:    `<A><B>x<C>y</A>`,
			expected: []string{"<A>", "<B>", "x", "<C>", "y", "</C>*", "</B>*", "</A>"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tc.input), tc.options...)
			defer r.Close()
			require.Equal(t, tc.expected, events(t, r))
		})
	}
}

func TestReaderFoldedWithDTD(t *testing.T) {
	dtd := loadReaderDTD(t)
	r := NewReader(strings.NewReader(`<ofx><signon><code>0<memo>x</signon></ofx>`), WithDTD(dtd), WithCaseFolding(CaseFoldUpper))
	defer r.Close()
	require.Equal(t, []string{
		"<OFX>", "<SIGNON>", "<CODE>", "0", "</CODE>*", "<MEMO>", "x", "</MEMO>*", "</SIGNON>", "</OFX>",
	}, events(t, r))
}

func TestReaderNamespaces(t *testing.T) {
	r := NewReader(strings.NewReader(`<a:root xmlns:a="urn:a" xmlns="urn:d"><child a:x="1"/></a:root><plain/>`))
	defer r.Close()

	require.NoError(t, r.Next())
	require.Equal(t, "a", r.Prefix())
	require.Equal(t, "root", r.LocalName())
	require.Equal(t, "urn:a", r.NamespaceURI())

	require.NoError(t, r.Next())
	require.Equal(t, "child", r.LocalName())
	require.Equal(t, "urn:d", r.NamespaceURI(), "default namespace is inherited")
	require.True(t, r.MoveToAttribute(0))
	require.Equal(t, "urn:a", r.NamespaceURI())

	require.NoError(t, r.Next())
	require.Equal(t, NodeEndElement, r.NodeType())
	require.Equal(t, "urn:a", r.NamespaceURI())

	require.NoError(t, r.Next())
	require.Equal(t, "plain", r.Name())
	require.Equal(t, "", r.NamespaceURI(), "scopes are popped with their element")
}

func TestReaderErrors(t *testing.T) {
	r := NewReader(strings.NewReader(`<A><!-- never closed`))
	defer r.Close()
	require.NoError(t, r.Next())
	err := r.Next()
	require.True(t, errors.Is(err, ErrUnexpectedEOF), "unterminated comments fail")

	r = NewReader(strings.NewReader(`<A><![ INCLUDE [ x ]]></A>`))
	defer r.Close()
	require.NoError(t, r.Next())
	require.True(t, errors.Is(r.Next(), ErrNotImplemented))
}

func TestReaderReset(t *testing.T) {
	dtd := loadReaderDTD(t)
	const input = `<OFX><LIST><ITEM><NAME>a<ITEM><NAME>b</LIST></OFX>`

	r := NewReader(strings.NewReader(input), WithDTD(dtd), WithWhitespace(WhitespaceNone))
	defer r.Close()
	first := events(t, r)

	arena := func() map[*node]struct{} {
		m := make(map[*node]struct{})
		for _, n := range r.slots {
			m[n] = struct{}{}
		}
		m[r.scratch] = struct{}{}
		return m
	}
	slots := len(r.slots)
	before := arena()

	r.Reset(strings.NewReader(input))
	second := events(t, r)

	require.Equal(t, first, second, "parsing the same input twice yields the same events")
	require.Equal(t, slots, len(r.slots), "no new slots are allocated")
	require.Equal(t, before, arena(), "node slots are reused across documents")
}
