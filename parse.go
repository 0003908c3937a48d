package ofx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/lestrrat-go/ofx/encoding"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/sax"
	"github.com/lestrrat-go/ofx/sgml"
	pdebug "github.com/lestrrat-go/pdebug/v3"
	xencoding "golang.org/x/text/encoding"
)

type parseConfig struct {
	enforceSecurity bool
	dtd             *sgml.DTD
}

// Parse reads an OFX document. Documents starting with an XML
// declaration are parsed as version 2 XML first; when that fails, and
// for everything else, the version 1 header is read and the body is
// parsed as SGML against the OFX grammar.
func Parse(ctx context.Context, b []byte, options ...ParseOption) (*Document, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	var cfg parseConfig
	for _, o := range options {
		switch o.Ident() {
		case identEnforceSecurity{}:
			cfg.enforceSecurity = o.Value().(bool)
		case identDTD{}:
			cfg.dtd = o.Value().(*sgml.DTD)
		}
	}

	ctx, span := StartSpan(ctx, "ofx.Parse")
	defer span.End()

	if IsHTML(b) {
		return nil, &HTMLResponseError{Body: b}
	}

	if body := trimLeading(b); hasPrefixFold(body, "<?xml") {
		body = fixProcInstAdjacency(body)
		doc, err := parseXML(ctx, body, cfg)
		if err == nil {
			return doc, nil
		}
		var herr *ProtocolHeaderError
		if errors.As(err, &herr) {
			return nil, err
		}
		TraceEvent(ctx, "strict XML parse failed, reading as SGML", slog.Any("error", err))
		b = body
	}
	return parseSGML(ctx, b, cfg)
}

// ParseReader reads all of r and parses it
func ParseReader(ctx context.Context, r io.Reader, options ...ParseOption) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, b, options...)
}

func trimLeading(b []byte) []byte {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	return bytes.TrimLeft(b, " \t\r\n")
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && strings.EqualFold(string(b[:len(prefix)]), prefix)
}

// IsHTML reports a web page, such as a login or maintenance page sent
// in place of an OFX response
func IsHTML(b []byte) bool {
	b = trimLeading(b)
	if hasPrefixFold(b, "<html") {
		return true
	}
	if !hasPrefixFold(b, "<!doctype") {
		return false
	}
	rest := bytes.TrimLeft(b[len("<!doctype"):], " \t\r\n")
	return hasPrefixFold(rest, "html")
}

// fixProcInstAdjacency repairs "?<OFX>", a server bug that drops the
// '>' closing the <?OFX?> instruction
func fixProcInstAdjacency(b []byte) []byte {
	i := bytes.Index(b, []byte("?<OFX>"))
	if i < 0 {
		return b
	}
	fixed := make([]byte, 0, len(b)+1)
	fixed = append(fixed, b[:i+1]...)
	fixed = append(fixed, '>')
	return append(fixed, b[i+1:]...)
}

// bodyEncoding picks the character set of a version 1 body
func bodyEncoding(h Header) (xencoding.Encoding, string, error) {
	switch enc := strings.ToUpper(strings.TrimSpace(h.Encoding)); enc {
	case "", "USASCII":
		e, err := encoding.CodePage(h.Charset)
		if err != nil {
			return nil, "", &ProtocolHeaderError{Key: headerCharset, Value: h.Charset, Err: err}
		}
		name := "windows-" + strings.TrimSpace(h.Charset)
		switch strings.ToUpper(strings.TrimSpace(h.Charset)) {
		case "", "NONE":
			name = "windows-1252"
		}
		return e, name, nil
	case "UTF-8", "UTF8", "UNICODE":
		return nil, "utf-8", nil
	default:
		e := encoding.Load(enc)
		if e == nil {
			return nil, "", &ProtocolHeaderError{Key: headerEncoding, Value: h.Encoding, Err: encoding.ErrUnknownEncoding}
		}
		return e, strings.ToLower(enc), nil
	}
}

// xmlDeclEncoding returns the encoding named by an <?xml?> declaration
func xmlDeclEncoding(b []byte) string {
	if !hasPrefixFold(b, "<?xml") {
		return ""
	}
	end := bytes.Index(b, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := readPseudoAttributesRaw(string(b[len("<?xml"):end]))
	return decl["encoding"]
}

func parseSGML(ctx context.Context, b []byte, cfg parseConfig) (*Document, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	h, offset, found := readV1Header(b)
	body := b[offset:]

	var enc xencoding.Encoding
	encName := "utf-8"
	if found {
		if err := h.validateV1(cfg.enforceSecurity); err != nil {
			return nil, err
		}
		var err error
		if enc, encName, err = bodyEncoding(h); err != nil {
			return nil, err
		}
	} else if label := xmlDeclEncoding(trimLeading(body)); label != "" {
		if enc = encoding.Load(label); enc != nil {
			encName = strings.ToLower(label)
		}
	}

	decoded, err := encoding.Decode(enc, body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	// anything before the first tag is noise
	start := bytes.IndexByte(decoded, '<')
	if start < 0 {
		return nil, &ParseError{Err: ErrNoRoot}
	}
	decoded = decoded[start:]

	version := 0
	if found {
		version = h.VersionNumber()
	} else if pi, ok := findOFXProcInst(decoded); ok {
		h = readPseudoAttributes(pi)
		if err := h.validateV2(cfg.enforceSecurity); err != nil {
			return nil, err
		}
		version = h.VersionNumber()
		if version == 0 {
			version = 200
		}
	}

	dtd := cfg.dtd
	if dtd == nil {
		if dtd, err = DTD(); err != nil {
			return nil, err
		}
	}

	TraceEvent(ctx, "parsing SGML body",
		slog.Int("version", version),
		slog.String("encoding", encName),
		slog.Int("bytes", len(decoded)))

	r := sgml.NewReader(bytes.NewReader(decoded),
		sgml.WithDTD(dtd),
		sgml.WithWhitespace(sgml.WhitespaceNone),
		sgml.WithTraceLogger(TraceLogger(ctx)),
	)
	defer r.Close()

	tb := NewTreeBuilder()
	if err := sax.Run(tb, r, tb); err != nil {
		return nil, &ParseError{Err: err}
	}

	tree := tb.Document()
	node.TrimText(tree)
	if tree.DocumentElement() == nil {
		return nil, &ParseError{Err: ErrNoRoot}
	}
	tree.SetEncoding(encName)

	return &Document{
		Header:  h,
		Version: version,
		Tree:    tree,
	}, nil
}

// findOFXProcInst returns the data of the <?OFX ...?> instruction that
// precedes the root element
func findOFXProcInst(b []byte) (string, bool) {
	for {
		i := bytes.Index(b, []byte("<?"))
		if i < 0 {
			return "", false
		}
		if root := bytes.IndexByte(b, '<'); root >= 0 && root < i {
			// an element comes first
			return "", false
		}
		b = b[i+2:]
		end := bytes.Index(b, []byte("?>"))
		if end < 0 {
			return "", false
		}
		target, data, _ := strings.Cut(string(b[:end]), " ")
		if strings.EqualFold(target, "OFX") {
			return data, true
		}
		b = bytes.TrimLeft(b[end+2:], " \t\r\n")
	}
}
