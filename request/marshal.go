package request

import (
	"bytes"
	"strconv"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/encoding"
	"github.com/lestrrat-go/ofx/s11n"
	xencoding "golang.org/x/text/encoding"
)

// Default versions used for a major version preference
const (
	DefaultV1Version = 102
	DefaultV2Version = 211
)

// ResolveVersion maps a major version preference (1 or 2) to a full
// version number. Full version numbers are returned unchanged, and
// anything else means version 1.
func ResolveVersion(v int) int {
	switch {
	case v == 2:
		return DefaultV2Version
	case v >= 100:
		return v
	default:
		return DefaultV1Version
	}
}

// Marshal serializes the request. Version 1 requests are a header
// block followed by SGML. Version 2 requests are XML with the header
// in an <?OFX?> instruction.
func (r *Request) Marshal(version int) ([]byte, error) {
	version = ResolveVersion(version)
	uid := r.newUID()

	var buf bytes.Buffer
	if version >= 200 {
		h := ofx.Header{
			OFXHeader:  "200",
			Version:    strconv.Itoa(version),
			Security:   "NONE",
			OldFileUID: "NONE",
			NewFileUID: uid,
		}
		buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n")
		buf.WriteString("<?OFX " + h.PseudoAttributes() + "?>\n")
		w := s11n.XMLWriter{}
		if err := w.WriteDoc(&buf, r.Tree); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	h := ofx.Header{
		OFXHeader:   "100",
		Data:        "OFXSGML",
		Version:     strconv.Itoa(version),
		Security:    "NONE",
		Encoding:    "USASCII",
		Charset:     "1252",
		Compression: "NONE",
		OldFileUID:  "NONE",
		NewFileUID:  uid,
	}
	h.WriteV1(&buf)

	var body bytes.Buffer
	w := s11n.SGMLWriter{}
	if err := w.WriteDoc(&body, r.Tree); err != nil {
		return nil, err
	}
	cp, err := encoding.CodePage(h.Charset)
	if err != nil {
		return nil, err
	}
	encoded, err := xencoding.ReplaceUnsupported(cp.NewEncoder()).Bytes(body.Bytes())
	if err != nil {
		return nil, err
	}
	buf.Write(encoded)
	return buf.Bytes(), nil
}
