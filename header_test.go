package ofx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadV1Header(t *testing.T) {
	t.Run("blank line", func(t *testing.T) {
		input := []byte("OFXHEADER:100\r\nDATA:OFXSGML\r\nVERSION:151\r\n\r\n<OFX>")
		h, offset, found := readV1Header(input)
		require.True(t, found)
		require.Equal(t, "<OFX>", string(input[offset:]), "the header is skipped exactly")
		require.Equal(t, "100", h.OFXHeader)
		require.Equal(t, 151, h.VersionNumber())
	})
	t.Run("no blank line", func(t *testing.T) {
		input := []byte("OFXHEADER:100\nVERSION:102\n<OFX>\n")
		h, offset, found := readV1Header(input)
		require.True(t, found)
		require.Equal(t, "<OFX>\n", string(input[offset:]), "the header ends at the first tag")
		require.Equal(t, "102", h.Version)
	})
	t.Run("no header", func(t *testing.T) {
		input := []byte("<OFX></OFX>")
		_, offset, found := readV1Header(input)
		require.False(t, found)
		require.Equal(t, 0, offset)
	})
	t.Run("spaces and case", func(t *testing.T) {
		h, _, found := readV1Header([]byte(" charset : 1252 \r\n\r\n"))
		require.True(t, found)
		require.Equal(t, "1252", h.Charset)
	})
}

func TestReadPseudoAttributes(t *testing.T) {
	h := readPseudoAttributes(`OFXHEADER="200" VERSION='211' SECURITY=NONE OLDFILEUID="NONE" NEWFILEUID="abc def"`)
	require.Equal(t, "200", h.OFXHeader)
	require.Equal(t, "211", h.Version)
	require.Equal(t, "NONE", h.Security)
	require.Equal(t, "abc def", h.NewFileUID)

	raw := readPseudoAttributesRaw(`version="1.0" encoding="windows-1252" encoding="utf-8"`)
	require.Equal(t, "windows-1252", raw["encoding"], "the first occurrence wins")
}

func TestHeaderWrite(t *testing.T) {
	h := Header{
		OFXHeader:   "100",
		Data:        "OFXSGML",
		Version:     "102",
		Security:    "NONE",
		Encoding:    "USASCII",
		Charset:     "1252",
		Compression: "NONE",
		OldFileUID:  "NONE",
		NewFileUID:  "NONE",
	}
	var buf bytes.Buffer
	h.WriteV1(&buf)
	require.Equal(t, "OFXHEADER:100\r\nDATA:OFXSGML\r\nVERSION:102\r\nSECURITY:NONE\r\n"+
		"ENCODING:USASCII\r\nCHARSET:1252\r\nCOMPRESSION:NONE\r\nOLDFILEUID:NONE\r\nNEWFILEUID:NONE\r\n\r\n", buf.String())

	got, offset, found := readV1Header(append(buf.Bytes(), "<OFX>"...))
	require.True(t, found)
	require.Equal(t, h, got, "a written header reads back")
	require.Equal(t, buf.Len(), offset)

	h.Version = "211"
	h.OFXHeader = "200"
	require.Equal(t, `OFXHEADER="200" VERSION="211" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"`, h.PseudoAttributes())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Header{}.validateV1(true), "missing fields are tolerated")
	require.NoError(t, Header{Security: "none"}.validateV1(true))
	require.Error(t, Header{Version: "abc"}.validateV1(false))
	require.NoError(t, Header{OFXHeader: "200", Version: "220"}.validateV2(false))
	require.Error(t, Header{Version: "199"}.validateV2(false))
}

func TestFixProcInstAdjacency(t *testing.T) {
	require.Equal(t, `<?OFX VERSION="211"?><OFX>`, string(fixProcInstAdjacency([]byte(`<?OFX VERSION="211"?<OFX>`))))
	in := []byte(`<?OFX VERSION="211"?><OFX>`)
	require.Equal(t, in, fixProcInstAdjacency(in), "well formed input is unchanged")
}
