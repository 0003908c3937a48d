package sgml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDTD = `
<!-- leaves carry text only and may omit their end tag -->
<!ENTITY % leaf "- o (#PCDATA)">
<!ENTITY % inline "#PCDATA | B">
<!ENTITY copy "(c)">
<!ENTITY copy "ignored">
<!ENTITY ext SYSTEM "ext.txt">
<!ELEMENT OFX - - (SIGNON, BANK?)>
<!ELEMENT SIGNON - - (CODE, MEMO?)>
<!ELEMENT (CODE|MEMO) %leaf;>
<!ELEMENT BANK - - (STMT+)>
<!ELEMENT STMT - O (%inline;)* -(BANK) +(MEMO)>
<!ELEMENT B - - (#PCDATA)>
<!ELEMENT HR - O EMPTY>
<!ATTLIST STMT
	id   ID     #IMPLIED
	kind (a|b)  "a"
	ver  CDATA  #FIXED "1">
<!ATTLIST STMT id CDATA #REQUIRED>
<!NOTATION gif SYSTEM "image/gif">
<![ IGNORE [ <!ELEMENT IGNORED - - ANY> ]]>
`

func TestParseDTD(t *testing.T) {
	dtd, err := ParseDTDString("sample", sampleDTD)
	require.NoError(t, err, "ParseDTDString should succeed")

	var names []string
	for name := range dtd.Elements() {
		names = append(names, name)
	}
	require.Equal(t, []string{"OFX", "SIGNON", "CODE", "MEMO", "BANK", "STMT", "B", "HR"}, names)
	require.Nil(t, dtd.FindElement("IGNORED"), "ignored marked sections are skipped")

	t.Run("leaves", func(t *testing.T) {
		for _, name := range []string{"CODE", "MEMO"} {
			decl := dtd.FindElement(name)
			require.NotNil(t, decl, "%s is declared through a name group", name)
			require.False(t, decl.StartTagOptional)
			require.True(t, decl.EndTagOptional)
			require.True(t, decl.TextOnly(), "%s expands the leaf parameter entity", name)
		}
	})
	t.Run("aggregates", func(t *testing.T) {
		ofx := dtd.FindElement("OFX")
		require.False(t, ofx.EndTagOptional)
		require.True(t, ofx.CanContain("SIGNON", dtd))
		require.True(t, ofx.CanContain("BANK", dtd))
		require.False(t, ofx.CanContain("CODE", dtd), "SIGNON cannot be inferred")
		require.Equal(t, OccurrenceOptional, ofx.ContentModel.Model.Members[1].Occurrence)
	})
	t.Run("inclusions and exclusions", func(t *testing.T) {
		stmt := dtd.FindElement("STMT")
		require.True(t, stmt.EndTagOptional)
		require.True(t, stmt.ContentModel.Model.Mixed)
		require.Equal(t, OccurrenceZeroOrMore, stmt.ContentModel.Model.Occurrence)
		require.True(t, stmt.CanContain("B", dtd))
		require.True(t, stmt.CanContain("MEMO", dtd))
		require.False(t, stmt.CanContain("BANK", dtd))
		require.Equal(t, []string{"BANK"}, stmt.Exclusions)
		require.Equal(t, []string{"MEMO"}, stmt.Inclusions)
	})
	t.Run("attributes", func(t *testing.T) {
		stmt := dtd.FindElement("STMT")
		require.Equal(t, 3, stmt.AttList.Len())

		id := stmt.FindAttribute("id")
		require.Equal(t, AttrID, id.Type, "the first ATTLIST wins")
		require.Equal(t, PresenceImplied, id.Presence)

		kind := stmt.FindAttribute("kind")
		require.Equal(t, AttrEnumeration, kind.Type)
		require.Equal(t, []string{"a", "b"}, kind.EnumValues)
		require.Equal(t, "a", kind.Default)
		require.Equal(t, PresenceDefault, kind.Presence)

		ver := stmt.FindAttribute("ver")
		require.Equal(t, PresenceFixed, ver.Presence)
		require.Equal(t, "1", ver.Default)
	})
	t.Run("entities", func(t *testing.T) {
		copyEnt := dtd.FindEntity("copy")
		require.NotNil(t, copyEnt)
		require.Equal(t, "(c)", copyEnt.Literal, "the first declaration wins")

		ext := dtd.FindEntity("ext")
		require.NotNil(t, ext)
		require.False(t, ext.Internal)
		require.Equal(t, "ext.txt", ext.SystemID)

		require.Nil(t, dtd.FindEntity("leaf"), "parameter entities are kept apart")
	})
	t.Run("empty", func(t *testing.T) {
		hr := dtd.FindElement("HR")
		require.Equal(t, ContentEmpty, hr.ContentModel.DeclaredContent)
	})
}

func TestParseDTDErrors(t *testing.T) {
	testcases := map[string]struct {
		input    string
		expected error
	}{
		"parameter entity leaves a group open": {
			input:    `<!ENTITY % open "(A,"><!ELEMENT X - - %open; B)>`,
			expected: ErrMalformedDTD,
		},
		"parameter entity closes a group it did not open": {
			input:    `<!ENTITY % close "B)"><!ELEMENT X - - (A, %close;>`,
			expected: ErrMalformedDTD,
		},
		"INCLUDE marked section": {
			input:    `<![ INCLUDE [ <!ELEMENT A - - ANY> ]]>`,
			expected: ErrNotImplemented,
		},
		"undeclared parameter entity": {
			input:    `<!ELEMENT A - - %nope;>`,
			expected: ErrUndeclaredEntity,
		},
		"recursive parameter entity": {
			input:    `<!ENTITY % a "%a;"><!ELEMENT X - - %a;>`,
			expected: ErrRecursiveEntity,
		},
		"ATTLIST for undeclared element": {
			input:    `<!ATTLIST A id ID #IMPLIED>`,
			expected: ErrUndeclaredElement,
		},
		"mixed connectors": {
			input:    `<!ELEMENT A - - (B, C | D)>`,
			expected: ErrMixedConnectors,
		},
		"unknown declared content": {
			input:    `<!ELEMENT A - - BOGUS>`,
			expected: ErrUnknownContentModel,
		},
		"unterminated comment": {
			input:    `<!-- never ends`,
			expected: ErrUnexpectedEOF,
		},
		"bad character": {
			input:    `<!ELEMENT A - - ANY> ?`,
			expected: ErrInvalidCharacter,
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDTDString("bad", tc.input)
			require.Error(t, err, "ParseDTDString should fail")
			require.True(t, errors.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)

			var perr ErrParseError
			assert.True(t, errors.As(err, &perr), "errors carry a position")
		})
	}
}

func TestParseDTDIgnoreCase(t *testing.T) {
	dtd, err := ParseDTDString("html", `<!ELEMENT html - - (body)><!ELEMENT body - O ANY>`, WithIgnoreCase(true))
	require.NoError(t, err)
	require.True(t, dtd.IgnoreCase())

	html := dtd.FindElement("HTML")
	require.NotNil(t, html, "lookups ignore case")
	require.True(t, html.CanContain("Body", dtd))
	require.NotNil(t, dtd.FindElement("body"))

	strict, err := ParseDTDString("html", `<!ELEMENT html - - (body)>`)
	require.NoError(t, err)
	require.Nil(t, strict.FindElement("HTML"), "lookups are exact by default")
}

func TestParseDTDExternalParameterEntity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaves.ent"), []byte(`<!ELEMENT (NAME|MEMO) - O (#PCDATA)>`), 0o600))

	src := `<!ENTITY % leaves SYSTEM "leaves.ent"> %leaves; <!ELEMENT TRN - - (NAME, MEMO?)>`
	_, err := ParseDTDString("ext", src)
	require.True(t, errors.Is(err, ErrNoResolver), "external entities need a resolver")

	dtd, err := ParseDTDString("ext", src, WithResolver(FileResolver{Dir: dir}))
	require.NoError(t, err)
	require.True(t, dtd.FindElement("NAME").TextOnly())
	require.True(t, dtd.FindElement("TRN").CanContain("MEMO", dtd))
}
