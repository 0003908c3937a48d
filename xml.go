package ofx

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/lestrrat-go/ofx/encoding"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/sax"
	pdebug "github.com/lestrrat-go/pdebug/v3"
	"golang.org/x/text/transform"
)

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	e := encoding.Load(label)
	if e == nil {
		return nil, encoding.ErrUnknownEncoding
	}
	return transform.NewReader(input, e.NewDecoder()), nil
}

// parseXML reads a version 2 document with a strict XML parser
func parseXML(ctx context.Context, b []byte, cfg parseConfig) (*Document, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charsetReader,
		ValidateInput: true,
		PreserveCData: true,
	}
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, &ParseError{Err: err}
	}

	var h Header
	encName := "utf-8"
	for _, tok := range doc.Child {
		pi, ok := tok.(*etree.ProcInst)
		if !ok {
			continue
		}
		switch strings.ToUpper(pi.Target) {
		case "XML":
			if label := readPseudoAttributesRaw(pi.Inst)["encoding"]; label != "" {
				encName = strings.ToLower(label)
			}
		case "OFX":
			h = readPseudoAttributes(pi.Inst)
		}
	}
	if err := h.validateV2(cfg.enforceSecurity); err != nil {
		return nil, err
	}
	version := h.VersionNumber()
	if version == 0 {
		version = 200
	}

	TraceEvent(ctx, "parsed XML body", slog.Int("version", version), slog.String("encoding", encName))

	tb := NewTreeBuilder()
	if err := runETree(tb, doc, tb); err != nil {
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

// runETree replays an etree document as SAX events, so that XML and
// SGML input end up in the same tree
func runETree(ctx sax.Context, doc *etree.Document, h sax.Handler) error {
	if err := h.StartDocument(ctx); err != nil {
		return err
	}
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && strings.EqualFold(pi.Target, "xml") {
			continue
		}
		if err := emitToken(ctx, tok, h); err != nil {
			return err
		}
	}
	return h.EndDocument(ctx)
}

func emitToken(ctx sax.Context, tok etree.Token, h sax.Handler) error {
	switch t := tok.(type) {
	case *etree.Element:
		attrs := make([]sax.Attribute, 0, len(t.Attr))
		for i := range t.Attr {
			a := &t.Attr[i]
			attrs = append(attrs, sax.NewAttribute(a.FullKey(), a.Space, a.Key, a.NamespaceURI(), a.Value, false))
		}
		uri := t.NamespaceURI()
		if err := h.StartElementNS(ctx, t.Tag, t.Space, uri, attrs); err != nil {
			return err
		}
		for _, c := range t.Child {
			if err := emitToken(ctx, c, h); err != nil {
				return err
			}
		}
		return h.EndElementNS(ctx, t.Tag, t.Space, uri, false)
	case *etree.CharData:
		if t.IsCData() {
			return h.CDataBlock(ctx, []byte(t.Data))
		}
		return h.Characters(ctx, []byte(t.Data))
	case *etree.Comment:
		return h.Comment(ctx, []byte(t.Data))
	case *etree.ProcInst:
		return h.ProcessingInstruction(ctx, t.Target, t.Inst)
	}
	// directives carry nothing the tree keeps
	return nil
}
