package sax

import (
	"errors"
	"io"

	"github.com/lestrrat-go/ofx/sgml"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// Run pulls every node out of r and reports it to h. Callbacks that
// return ErrHandlerUnspecified are skipped; any other error stops the
// run. Empty elements produce a start and an end event.
func Run(ctx Context, r *sgml.Reader, h Handler) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	if err := ignoreUnspecified(h.StartDocument(ctx)); err != nil {
		return err
	}

	var attrs []Attribute
	for {
		err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch r.NodeType() {
		case sgml.NodeElement:
			attrs = attrs[:0]
			for i := range r.AttributeCount() {
				r.MoveToAttribute(i)
				attrs = append(attrs, NewAttribute(r.Name(), r.Prefix(), r.LocalName(), r.NamespaceURI(), r.Value(), r.IsDefault()))
			}
			r.MoveToElement()
			// attrs is reused; handlers must copy what they keep
			err = h.StartElementNS(ctx, r.LocalName(), r.Prefix(), r.NamespaceURI(), attrs)
			if err = ignoreUnspecified(err); err == nil && r.IsEmptyElement() {
				err = h.EndElementNS(ctx, r.LocalName(), r.Prefix(), r.NamespaceURI(), false)
			}
		case sgml.NodeEndElement:
			err = h.EndElementNS(ctx, r.LocalName(), r.Prefix(), r.NamespaceURI(), r.IsSimulated())
		case sgml.NodeText:
			err = h.Characters(ctx, []byte(r.Value()))
		case sgml.NodeWhitespace:
			err = h.IgnorableWhitespace(ctx, []byte(r.Value()))
		case sgml.NodeCDATA:
			err = h.CDataBlock(ctx, []byte(r.Value()))
		case sgml.NodeComment:
			err = h.Comment(ctx, []byte(r.Value()))
		case sgml.NodeProcessingInstruction:
			err = h.ProcessingInstruction(ctx, r.Name(), r.Value())
		case sgml.NodeDocumentType:
			publicID, _ := r.GetAttribute("PUBLIC")
			systemID, _ := r.GetAttribute("SYSTEM")
			err = h.DocumentType(ctx, r.Name(), publicID, systemID, r.Value())
		}
		if err = ignoreUnspecified(err); err != nil {
			return err
		}
	}

	return ignoreUnspecified(h.EndDocument(ctx))
}

func ignoreUnspecified(err error) error {
	if errors.Is(err, ErrHandlerUnspecified) {
		return nil
	}
	return err
}
