package sgml

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/lestrrat-go/ofx/internal/debug"
	"github.com/lestrrat-go/ofx/internal/orderedmap"
	"github.com/lestrrat-go/pdebug/v3"
)

var nullLogger = slog.New(slog.DiscardHandler)

// DTD holds the element and entity declarations of a document type.
// It is read-only once ParseDTD returns.
type DTD struct {
	Name string

	ignoreCase bool
	elements   *orderedmap.Map[string, *ElementDecl]
	entities   map[string]*Entity
	pentities  map[string]*Entity
}

func newDTD(name string, ignoreCase bool) *DTD {
	return &DTD{
		Name:       name,
		ignoreCase: ignoreCase,
		elements:   orderedmap.New[string, *ElementDecl](),
		entities:   make(map[string]*Entity),
		pentities:  make(map[string]*Entity),
	}
}

func (d *DTD) IgnoreCase() bool {
	return d != nil && d.ignoreCase
}

func (d *DTD) key(name string) string {
	if d.ignoreCase {
		return strings.ToUpper(name)
	}
	return name
}

func (d *DTD) equalNames(a, b string) bool {
	if d != nil && d.ignoreCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (d *DTD) FindElement(name string) *ElementDecl {
	if d == nil {
		return nil
	}
	e, _ := d.elements.Get(d.key(name))
	return e
}

// FindEntity looks up a general entity
func (d *DTD) FindEntity(name string) *Entity {
	if d == nil {
		return nil
	}
	return d.entities[name]
}

// Elements iterates over element declarations in declaration order
func (d *DTD) Elements() iter.Seq2[string, *ElementDecl] {
	return d.elements.Range()
}

// ParseDTD parses the declarations read from src
func ParseDTD(name string, src io.Reader, options ...DTDOption) (*DTD, error) {
	var ignoreCase bool
	var resolver Resolver
	tlog := nullLogger
	for _, o := range options {
		switch o.Ident() {
		case identIgnoreCase{}:
			ignoreCase = o.Value().(bool)
		case identResolver{}:
			resolver = o.Value().(Resolver)
		case identTraceLogger{}:
			tlog = o.Value().(*slog.Logger)
		}
	}

	p := &dtdParser{
		dtd:      newDTD(name, ignoreCase),
		resolver: resolver,
		tlog:     tlog,
	}
	doc := NewDocumentEntity(name, src)
	if err := p.stack.push(doc); err != nil {
		return nil, err
	}
	p.cur = doc
	defer p.stack.closeAll()

	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.dtd, nil
}

// ParseDTDString is ParseDTD over a literal
func ParseDTDString(name, s string, options ...DTDOption) (*DTD, error) {
	return ParseDTD(name, strings.NewReader(s), options...)
}

type dtdParser struct {
	dtd      *DTD
	stack    entityStack
	cur      *Entity
	resolver Resolver
	tlog     *slog.Logger
	// model is the content model being parsed, if any
	model *ContentModel
}

const wsChars = " \t\r\n"

func (p *dtdParser) parse() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ch := p.cur.ReadChar()
	for {
		switch {
		case ch == EOF:
			popped, err := p.popEntity()
			if err != nil {
				return err
			}
			if !popped {
				return nil
			}
			ch = p.cur.Lastchar
		case ch == '<':
			if err := p.parseMarkup(); err != nil {
				return err
			}
			ch = p.cur.Lastchar
		case ch == '%':
			if err := p.expandParameterEntity(); err != nil {
				return err
			}
			ch = p.cur.Lastchar
		case isWhitespace(ch):
			ch = p.cur.ReadChar()
		default:
			return p.cur.Error(fmt.Errorf("%w: unexpected %q in DTD", ErrInvalidCharacter, ch))
		}
	}
}

// pushEntity starts reading from e. The first character of e becomes
// the current character.
func (p *dtdParser) pushEntity(e *Entity) error {
	base := p.stack.resolvedURI(p.stack.len() - 1)
	if err := e.Open(p.resolver, base); err != nil {
		return p.cur.Error(err)
	}
	if p.model != nil {
		e.depth = p.model.CurrentDepth
	}
	if err := p.stack.push(e); err != nil {
		_ = e.Close()
		return p.cur.Error(err)
	}
	p.cur = e
	e.ReadChar()
	return nil
}

// popEntity returns to the referencing entity once a parameter entity
// is exhausted. The document entity is never popped.
func (p *dtdParser) popEntity() (bool, error) {
	if p.stack.len() <= 1 {
		return false, nil
	}

	e := p.stack.top()
	if p.model != nil && e.depth >= 0 && p.model.CurrentDepth != e.depth {
		return false, e.Error(fmt.Errorf("%w: parameter entity %%%s; leaves a group open", ErrMalformedDTD, e.Name))
	}
	p.stack.pop()
	_ = e.Close()
	p.cur = p.stack.top()
	return true, nil
}

func (p *dtdParser) current() (rune, error) {
	ch := p.cur.Lastchar
	for ch == EOF {
		popped, err := p.popEntity()
		if err != nil {
			return EOF, err
		}
		if !popped {
			break
		}
		ch = p.cur.Lastchar
	}
	return ch, nil
}

// skipWS skips whitespace inside a declaration, expanding parameter
// entity references and leaving exhausted ones
func (p *dtdParser) skipWS() (rune, error) {
	for {
		ch, err := p.current()
		if err != nil {
			return EOF, err
		}
		switch {
		case isWhitespace(ch):
			p.cur.ReadChar()
		case ch == '%':
			if err := p.expandParameterEntity(); err != nil {
				return EOF, err
			}
		default:
			return ch, nil
		}
	}
}

// expandParameterEntity handles "%name;" with Lastchar on the '%'
func (p *dtdParser) expandParameterEntity() error {
	p.cur.ReadChar()
	name, err := p.cur.ScanToken(wsChars+";", true)
	if err != nil {
		return err
	}
	if p.cur.Lastchar == ';' {
		p.cur.ReadChar()
	}

	decl, ok := p.dtd.pentities[name]
	if !ok {
		return p.cur.Error(fmt.Errorf("%w: %%%s;", ErrUndeclaredEntity, name))
	}
	if pdebug.Enabled {
		pdebug.Printf("expanding parameter entity %%%s;", name)
	}
	return p.pushEntity(decl.instance())
}

func (p *dtdParser) expect(c rune) error {
	ch, err := p.skipWS()
	if err != nil {
		return err
	}
	if ch != c {
		return p.cur.Error(fmt.Errorf("%w: expected %q, found %q", ErrInvalidDeclaration, c, ch))
	}
	p.cur.ReadChar()
	return nil
}

func (p *dtdParser) parseMarkup() error {
	ch := p.cur.ReadChar()
	if ch != '!' {
		return p.cur.Error(fmt.Errorf("%w: expected '<!'", ErrInvalidCharacter))
	}

	ch = p.cur.ReadChar()
	switch ch {
	case '-':
		if p.cur.ReadChar() != '-' {
			return p.cur.Error(fmt.Errorf("%w: expected '<!--'", ErrInvalidCharacter))
		}
		p.cur.ReadChar()
		_, err := p.cur.ScanToEnd("-->")
		return err
	case '[':
		return p.parseMarkedSection()
	}

	tok, err := p.cur.ScanToken(wsChars, true)
	if err != nil {
		return err
	}
	switch strings.ToUpper(tok) {
	case "ENTITY":
		return p.parseEntity()
	case "ELEMENT":
		return p.parseElementDecl()
	case "ATTLIST":
		return p.parseAttList()
	default:
		// NOTATION, SHORTREF, USEMAP, ...
		p.tlog.Debug("skipping declaration", slog.String("decl", tok))
		_, err := p.cur.ScanToEnd(">")
		return err
	}
}

func (p *dtdParser) parseMarkedSection() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	p.cur.ReadChar()
	if _, err := p.skipWS(); err != nil {
		return err
	}
	tok, err := p.cur.ScanToken(wsChars+"[", true)
	if err != nil {
		return err
	}
	ch, err := p.skipWS()
	if err != nil {
		return err
	}
	if ch != '[' {
		return p.cur.Error(fmt.Errorf("%w: expected '[' after marked section keyword", ErrInvalidDeclaration))
	}
	p.cur.ReadChar()

	switch strings.ToUpper(tok) {
	case "IGNORE":
		_, err := p.cur.ScanToEnd("]]>")
		return err
	case "INCLUDE":
		return p.cur.Error(fmt.Errorf("%w: marked section INCLUDE", ErrNotImplemented))
	default:
		return p.cur.Error(fmt.Errorf("%w: marked section %s", ErrNotImplemented, tok))
	}
}

func (p *dtdParser) parseEntity() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ch := p.cur.SkipWhitespace()
	isParameter := false
	if ch == '%' {
		ch = p.cur.ReadChar()
		if !isWhitespace(ch) {
			return p.cur.Error(fmt.Errorf("%w: whitespace required after '%%'", ErrInvalidDeclaration))
		}
		isParameter = true
		p.cur.SkipWhitespace()
	}

	name, err := p.cur.ScanToken(wsChars+">", true)
	if err != nil {
		return err
	}
	e := &Entity{Name: name, IsParameter: isParameter, parent: -1, depth: -1}

	ch, err = p.skipWS()
	if err != nil {
		return err
	}
	if ch == '"' || ch == '\'' {
		lit, err := p.cur.ScanLiteral(ch)
		if err != nil {
			return err
		}
		e.Literal = lit
		e.Internal = true
	} else {
		tok, err := p.cur.ScanToken(wsChars+">", true)
		if err != nil {
			return err
		}
		switch kw := strings.ToUpper(tok); kw {
		case "PUBLIC":
			if e.PublicID, err = p.literal(); err != nil {
				return err
			}
			ch, err := p.skipWS()
			if err != nil {
				return err
			}
			if ch == '"' || ch == '\'' {
				if e.SystemID, err = p.cur.ScanLiteral(ch); err != nil {
					return err
				}
			}
		case "SYSTEM":
			if e.SystemID, err = p.literal(); err != nil {
				return err
			}
		case "CDATA", "SDATA", "PI":
			if e.Literal, err = p.literal(); err != nil {
				return err
			}
			e.Kind = kw
			e.Internal = true
		default:
			return p.cur.Error(fmt.Errorf("%w: entity %s has unexpected %q", ErrInvalidDeclaration, name, tok))
		}
	}

	if err := p.expect('>'); err != nil {
		return err
	}

	table := p.dtd.entities
	if isParameter {
		table = p.dtd.pentities
	}
	if _, exists := table[name]; exists {
		p.tlog.Debug("entity redeclared, first declaration wins", slog.String("entity", e.Key()))
		return nil
	}
	table[name] = e
	return nil
}

// literal skips whitespace and reads a quoted literal
func (p *dtdParser) literal() (string, error) {
	ch, err := p.skipWS()
	if err != nil {
		return "", err
	}
	if ch != '"' && ch != '\'' {
		return "", p.cur.Error(fmt.Errorf("%w: literal expected", ErrInvalidDeclaration))
	}
	return p.cur.ScanLiteral(ch)
}

// parseNames reads either a single name or a name group
func (p *dtdParser) parseNames() ([]string, error) {
	ch, err := p.skipWS()
	if err != nil {
		return nil, err
	}
	if ch == '(' {
		return p.parseNameGroup()
	}
	name, err := p.cur.ScanToken(wsChars+">", true)
	if err != nil {
		return nil, err
	}
	return []string{p.dtd.key(name)}, nil
}

// parseNameGroup reads "(a|b|c)" with Lastchar on the '('
func (p *dtdParser) parseNameGroup() ([]string, error) {
	var names []string
	p.cur.ReadChar()
	for {
		ch, err := p.skipWS()
		if err != nil {
			return nil, err
		}
		switch {
		case ch == ')':
			p.cur.ReadChar()
			return names, nil
		case ch == '|' || ch == ',' || ch == '&':
			p.cur.ReadChar()
		case ch == EOF:
			return nil, p.cur.Error(fmt.Errorf("%w: unterminated name group", ErrMalformedDTD))
		default:
			name, err := p.cur.ScanToken(wsChars+"|,&)", true)
			if err != nil {
				return nil, err
			}
			names = append(names, p.dtd.key(name))
		}
	}
}

func (p *dtdParser) parseElementDecl() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	names, err := p.parseNames()
	if err != nil {
		return err
	}

	ch, err := p.skipWS()
	if err != nil {
		return err
	}

	var sto, eto bool
	if ch == '-' || ch == 'O' || ch == 'o' {
		sto = ch != '-'
		if ch = p.cur.ReadChar(); !isWhitespace(ch) {
			return p.cur.Error(fmt.Errorf("%w: malformed tag minimization", ErrInvalidDeclaration))
		}
		if ch, err = p.skipWS(); err != nil {
			return err
		}
		if ch != '-' && ch != 'O' && ch != 'o' {
			return p.cur.Error(fmt.Errorf("%w: malformed tag minimization", ErrInvalidDeclaration))
		}
		eto = ch != '-'
		p.cur.ReadChar()
	}

	cm := &ContentModel{}
	if err := p.parseContentModel(cm); err != nil {
		return err
	}

	var inclusions, exclusions []string
	for {
		ch, err := p.skipWS()
		if err != nil {
			return err
		}
		if ch == '>' {
			p.cur.ReadChar()
			break
		}
		if ch != '+' && ch != '-' {
			return p.cur.Error(fmt.Errorf("%w: unexpected %q in element declaration", ErrInvalidDeclaration, ch))
		}
		p.cur.ReadChar()
		if p.cur.Lastchar != '(' {
			return p.cur.Error(fmt.Errorf("%w: name group expected", ErrInvalidDeclaration))
		}
		group, err := p.parseNameGroup()
		if err != nil {
			return err
		}
		if ch == '+' {
			inclusions = append(inclusions, group...)
		} else {
			exclusions = append(exclusions, group...)
		}
	}

	for _, name := range names {
		decl := &ElementDecl{
			Name:             name,
			StartTagOptional: sto,
			EndTagOptional:   eto,
			ContentModel:     cm,
			Inclusions:       inclusions,
			Exclusions:       exclusions,
		}
		if err := p.dtd.elements.Set(name, decl); err != nil {
			p.tlog.Debug("element redeclared, first declaration wins", slog.String("element", name))
		}
	}
	if debug.Enabled {
		debug.Dump("content model of "+strings.Join(names, "|"), cm)
	}
	return nil
}

func (p *dtdParser) parseContentModel(cm *ContentModel) error {
	// parameter entities expanded from here on record the group depth
	// they start at
	p.model = cm
	defer func() { p.model = nil }()

	ch, err := p.skipWS()
	if err != nil {
		return err
	}
	if ch == '(' {
		return p.parseModel(cm)
	}

	tok, err := p.cur.ScanToken(wsChars+">", true)
	if err != nil {
		return err
	}
	if err := cm.SetDeclaredContent(tok); err != nil {
		return p.cur.Error(err)
	}
	return nil
}

// parseModel reads a parenthesized model group with Lastchar on the '('
func (p *dtdParser) parseModel(cm *ContentModel) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	depth := cm.CurrentDepth
	cm.PushGroup()
	p.cur.ReadChar()
	for {
		ch, err := p.skipWS()
		if err != nil {
			return err
		}

		switch {
		case ch == EOF:
			return p.cur.Error(fmt.Errorf("%w: unterminated content model", ErrMalformedDTD))
		case ch == '(':
			cm.PushGroup()
			p.cur.ReadChar()
		case ch == ')':
			if e := p.stack.top(); e.depth >= 0 && cm.CurrentDepth <= e.depth {
				return p.cur.Error(fmt.Errorf("%w: parameter entity %%%s; closes a group it did not open", ErrMalformedDTD, e.Name))
			}
			if _, err := cm.PopGroup(); err != nil {
				return p.cur.Error(err)
			}
			// the occurrence indicator must follow immediately, so
			// parameter entity boundaries are not crossed here
			ch = p.cur.ReadChar()
			if _, ok := occurrenceFromRune(ch); ok {
				if err := cm.AddOccurrence(ch); err != nil {
					return p.cur.Error(err)
				}
				p.cur.ReadChar()
			}
			if cm.CurrentDepth == depth {
				return nil
			}
		case ch == ',' || ch == '|' || ch == '&':
			if err := cm.AddConnector(ch); err != nil {
				return p.cur.Error(err)
			}
			p.cur.ReadChar()
		default:
			var sym string
			if ch == '#' {
				p.cur.ReadChar()
				tok, err := p.cur.ScanToken(wsChars+",|&()", true)
				if err != nil {
					return err
				}
				sym = "#" + strings.ToUpper(tok)
			} else {
				tok, err := p.cur.ScanToken(wsChars+",|&()?*+>", true)
				if err != nil {
					return err
				}
				sym = p.dtd.key(tok)
			}
			if err := cm.AddSymbol(sym); err != nil {
				return p.cur.Error(err)
			}
			if _, ok := occurrenceFromRune(p.cur.Lastchar); ok {
				if err := cm.AddOccurrence(p.cur.Lastchar); err != nil {
					return p.cur.Error(err)
				}
				p.cur.ReadChar()
			}
		}
	}
}

func (p *dtdParser) parseAttList() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	names, err := p.parseNames()
	if err != nil {
		return err
	}

	var defs []*AttDef
	for {
		ch, err := p.skipWS()
		if err != nil {
			return err
		}
		if ch == '>' {
			p.cur.ReadChar()
			break
		}
		if ch == EOF {
			return p.cur.Error(fmt.Errorf("%w: unterminated ATTLIST", ErrUnexpectedEOF))
		}

		name, err := p.cur.ScanToken(wsChars, true)
		if err != nil {
			return err
		}
		def := &AttDef{Name: p.dtd.key(name)}

		if ch, err = p.skipWS(); err != nil {
			return err
		}
		if ch == '(' {
			def.Type = AttrEnumeration
			if def.EnumValues, err = p.parseNameGroup(); err != nil {
				return err
			}
		} else {
			tok, err := p.cur.ScanToken(wsChars, true)
			if err != nil {
				return err
			}
			if err := def.setType(tok); err != nil {
				return p.cur.Error(err)
			}
			if def.Type == AttrNotation {
				if ch, err = p.skipWS(); err != nil {
					return err
				}
				if ch != '(' {
					return p.cur.Error(fmt.Errorf("%w: NOTATION requires a name group", ErrInvalidDeclaration))
				}
				if def.EnumValues, err = p.parseNameGroup(); err != nil {
					return err
				}
			}
		}

		if err := p.parseAttDefault(def); err != nil {
			return err
		}
		defs = append(defs, def)
	}

	for _, name := range names {
		e := p.dtd.FindElement(name)
		if e == nil {
			return p.cur.Error(fmt.Errorf("%w: ATTLIST for %s", ErrUndeclaredElement, name))
		}
		e.AddAttDefs(defs)
	}
	return nil
}

func (p *dtdParser) parseAttDefault(def *AttDef) error {
	ch, err := p.skipWS()
	if err != nil {
		return err
	}

	if ch == '#' {
		p.cur.ReadChar()
		tok, err := p.cur.ScanToken(wsChars+">", true)
		if err != nil {
			return err
		}
		if err := def.setPresence(tok); err != nil {
			return p.cur.Error(err)
		}
		if def.Presence != PresenceFixed {
			return nil
		}
		if ch, err = p.skipWS(); err != nil {
			return err
		}
	}

	if ch == '"' || ch == '\'' {
		def.Default, err = p.cur.ScanLiteral(ch)
		return err
	}
	def.Default, err = p.cur.ScanToken(wsChars+">", false)
	return err
}
