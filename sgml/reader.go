package sgml

import (
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/lestrrat-go/ofx/internal/debug"
	"github.com/lestrrat-go/ofx/internal/pool"
	"github.com/lestrrat-go/pdebug/v3"
)

type NodeType int

const (
	NodeNone NodeType = iota
	NodeElement
	NodeEndElement
	NodeText
	NodeWhitespace
	NodeCDATA
	NodeComment
	NodeProcessingInstruction
	NodeDocumentType
	NodeAttribute
)

func (t NodeType) String() string {
	switch t {
	case NodeElement:
		return "Element"
	case NodeEndElement:
		return "EndElement"
	case NodeText:
		return "Text"
	case NodeWhitespace:
		return "Whitespace"
	case NodeCDATA:
		return "CDATA"
	case NodeComment:
		return "Comment"
	case NodeProcessingInstruction:
		return "ProcessingInstruction"
	case NodeDocumentType:
		return "DocumentType"
	case NodeAttribute:
		return "Attribute"
	}
	return "None"
}

type readerState int

const (
	stateInitial readerState = iota
	stateMarkup
	stateEndTag
	statePartialTag
	stateAutoCloseTextOnly
	stateAutoClose
	stateCData
	stateAttr
	stateAttrValue
	stateText
	statePartialText
	stateEOF
)

const (
	tagTerminators   = " \t\r\n/>=<"
	attrTerminators  = " \t\r\n/>=<"
	valueTerminators = " \t\r\n><"
)

var builtinEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"quot": `"`,
	"apos": "'",
}

type attribute struct {
	name   string
	prefix string
	local  string
	uri    string
	value  string
	quote  rune
	def    *AttDef
}

// node is a reusable parse node. Element nodes live in the reader's
// slot arena for as long as the element is open.
type node struct {
	typ        NodeType
	name       string
	prefix     string
	local      string
	uri        string
	value      string
	level      int
	empty      bool
	simulated  bool
	savedState readerState
	decl       *ElementDecl
	hasText    bool
	nsCount    int
	attrs      []attribute
	nattrs     int
}

func (n *node) reset() {
	attrs := n.attrs
	for i := range n.nattrs {
		attrs[i] = attribute{}
	}
	*n = node{attrs: attrs[:0]}
}

func (n *node) addAttribute() *attribute {
	if n.nattrs == len(n.attrs) {
		n.attrs = append(n.attrs, attribute{})
	}
	a := &n.attrs[n.nattrs]
	*a = attribute{}
	n.nattrs++
	return a
}

func (n *node) attribute(name string, dtd *DTD) *attribute {
	for i := range n.nattrs {
		if dtd.equalNames(n.attrs[i].name, name) {
			return &n.attrs[i]
		}
	}
	return nil
}

// Reader is a pull parser over an SGML document. With a DTD it infers
// omitted end tags. Values returned by the accessors are valid until
// the next call to Next.
type Reader struct {
	doc        *Entity
	dtd        *DTD
	configDTD  *DTD
	resolver   Resolver
	tlog       *slog.Logger
	whitespace WhitespaceHandling
	folding    CaseFolding

	state  readerState
	closes int

	slots   []*node
	depth   int
	scratch *node
	text    *node
	end     *node
	held    *node
	cur     *node
	attr    int

	ns  nsScope
	buf []byte
}

func NewReader(src io.Reader, options ...ReaderOption) *Reader {
	r := &Reader{
		tlog:    nullLogger,
		scratch: &node{},
		text:    &node{},
		end:     &node{},
		held:    &node{},
		buf:     pool.ByteSlice().Get(),
	}
	for _, o := range options {
		switch o.Ident() {
		case identDTD{}:
			r.configDTD = o.Value().(*DTD)
		case identWhitespace{}:
			r.whitespace = o.Value().(WhitespaceHandling)
		case identCaseFolding{}:
			r.folding = o.Value().(CaseFolding)
		case identResolver{}:
			r.resolver = o.Value().(Resolver)
		case identTraceLogger{}:
			r.tlog = o.Value().(*slog.Logger)
		}
	}
	r.Reset(src)
	return r
}

// Reset prepares the reader for a new document. Node slots allocated
// by previous documents are kept.
func (r *Reader) Reset(src io.Reader) {
	if r.doc != nil {
		_ = r.doc.Close()
	}
	r.doc = NewDocumentEntity("", src)
	r.dtd = r.configDTD
	r.state = stateInitial
	r.closes = 0
	r.depth = 0
	r.attr = -1
	r.cur = nil
	r.ns.Pop(r.ns.Len())
	if r.buf == nil {
		r.buf = pool.ByteSlice().Get()
	}
}

func (r *Reader) Close() error {
	r.state = stateEOF
	r.depth = 0
	r.cur = nil
	if r.buf != nil {
		pool.ByteSlice().Put(r.buf)
		r.buf = nil
	}
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}

// DTD returns the DTD in effect, which may have been loaded from the
// document type declaration
func (r *Reader) DTD() *DTD {
	return r.dtd
}

// Next advances to the next node. It returns io.EOF once the document
// and every open element have been closed.
func (r *Reader) Next() error {
	if r.state == stateAttr || r.state == stateAttrValue {
		r.state = r.cur.savedState
	}
	r.attr = -1

	for {
		switch r.state {
		case stateInitial:
			if r.doc == nil {
				return io.EOF
			}
			if r.doc.ReadChar() == '\uFEFF' {
				r.doc.ReadChar()
			}
			r.state = stateMarkup
		case stateEOF:
			if r.depth > 0 {
				r.popEnd(true)
				return nil
			}
			return io.EOF
		case stateAutoCloseTextOnly, stateAutoClose:
			if r.closes > 0 {
				r.closes--
				r.popEnd(true)
				if r.closes == 0 {
					r.state = statePartialTag
				} else {
					r.state = stateAutoClose
				}
				return nil
			}
			r.state = statePartialTag
		case statePartialTag:
			r.pushStart()
			return nil
		case stateEndTag:
			if r.closes > 0 {
				r.closes--
				// only the last close matches the end tag as written
				r.popEnd(r.closes > 0)
				if r.closes == 0 {
					r.state = stateMarkup
				}
				return nil
			}
			r.state = stateMarkup
		case statePartialText:
			r.cur = r.held
			r.state = stateCData
			return nil
		case stateCData:
			ok, err := r.readCData()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		case stateText:
			if r.readText(r.buf[:0]) {
				return nil
			}
		case stateMarkup:
			ok, err := r.readMarkup()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		default:
			r.state = stateMarkup
		}
	}
}

func (r *Reader) fold(s string) string {
	switch r.folding {
	case CaseFoldUpper:
		return strings.ToUpper(s)
	case CaseFoldLower:
		return strings.ToLower(s)
	}
	return s
}

func (r *Reader) readMarkup() (bool, error) {
	switch ch := r.doc.Lastchar; {
	case ch == EOF:
		r.state = stateEOF
		return false, nil
	case ch != '<':
		r.state = stateText
		return false, nil
	}

	switch ch := r.doc.ReadChar(); {
	case ch == '/':
		return false, r.readEndTag()
	case ch == '!':
		return r.readBang()
	case ch == '?':
		r.doc.ReadChar()
		if err := r.scanPI(r.text); err != nil {
			return false, err
		}
		r.cur = r.text
		return true, nil
	case isNameStart(ch):
		return r.readStartTag()
	default:
		// not markup after all
		return r.readText(append(r.buf[:0], '<')), nil
	}
}

func (r *Reader) readText(buf []byte) bool {
	ws := len(buf) == 0
	ch := r.doc.Lastchar
	for ch != EOF && ch != '<' {
		if ch == '&' {
			buf = r.expandReference(buf)
			ws = false
			ch = r.doc.Lastchar
			continue
		}
		if !isWhitespace(ch) {
			ws = false
		}
		buf = utf8.AppendRune(buf, ch)
		ch = r.doc.ReadChar()
	}
	r.buf = buf
	r.state = stateMarkup

	if len(buf) == 0 {
		return false
	}
	if ws {
		if r.whitespace == WhitespaceNone {
			return false
		}
		r.emitText(NodeWhitespace, buf)
		return true
	}
	if r.depth > 0 {
		r.slots[r.depth-1].hasText = true
	}
	r.emitText(NodeText, buf)
	return true
}

func (r *Reader) emitText(typ NodeType, buf []byte) {
	t := r.text
	t.reset()
	t.typ = typ
	t.value = string(buf)
	t.level = r.depth
	r.cur = t
	r.buf = buf[:0]
}

// expandReference handles a reference in text with Lastchar on the
// '&'. References that cannot be resolved are kept as written.
func (r *Reader) expandReference(buf []byte) []byte {
	ch := r.doc.ReadChar()
	if ch == '#' {
		start := len(buf)
		buf = append(buf, '&', '#')
		c, raw, err := r.doc.scanCharRef(buf)
		if err != nil {
			r.tlog.Debug("invalid character reference kept as text", slog.Any("error", err))
			return raw
		}
		return utf8.AppendRune(raw[:start], c)
	}
	if !isNameStart(ch) {
		return append(buf, '&')
	}

	start := len(buf)
	buf = append(buf, '&')
	for isNameChar(ch) {
		buf = utf8.AppendRune(buf, ch)
		ch = r.doc.ReadChar()
	}
	name := string(buf[start+1:])

	if v, ok := r.lookupEntity(name); ok {
		buf = append(buf[:start], v...)
		if ch == ';' {
			r.doc.ReadChar()
		}
		return buf
	}

	if ch == ';' {
		buf = append(buf, ';')
		r.doc.ReadChar()
	}
	return buf
}

func (r *Reader) lookupEntity(name string) (string, bool) {
	if e := r.dtd.FindEntity(name); e != nil {
		if e.Internal {
			return e.Literal, true
		}
		r.tlog.Debug("external entity reference kept as text", slog.String("entity", name))
		return "", false
	}
	v, ok := builtinEntities[name]
	return v, ok
}

func (r *Reader) readStartTag() (bool, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	n := r.scratch
	n.reset()
	n.typ = NodeElement

	name, err := r.doc.ScanToken(tagTerminators, false)
	if err != nil {
		return false, err
	}
	n.name = r.fold(name)
	n.prefix, n.local = splitName(n.name)
	if err := r.readAttributes(n); err != nil {
		return false, err
	}

	n.decl = r.dtd.FindElement(n.name)
	if n.decl != nil {
		if cm := n.decl.ContentModel; cm != nil && cm.DeclaredContent == ContentEmpty {
			n.empty = true
		}
		r.applyDefaults(n)
	}

	closes, textOnly := r.validateContent(n.name)
	if closes > 0 {
		r.closes = closes
		if textOnly {
			r.state = stateAutoCloseTextOnly
		} else {
			r.state = stateAutoClose
		}
		return false, nil
	}
	r.pushStart()
	return true, nil
}

func (r *Reader) readAttributes(n *node) error {
	for {
		switch ch := r.doc.SkipWhitespace(); ch {
		case EOF, '<':
			return nil
		case '>':
			r.doc.ReadChar()
			return nil
		case '/':
			if r.doc.ReadChar() == '>' {
				n.empty = true
				r.doc.ReadChar()
				return nil
			}
			continue
		}

		name, err := r.doc.ScanToken(attrTerminators, false)
		if err != nil {
			return err
		}
		if name == "" {
			// stray '='
			r.doc.ReadChar()
			continue
		}
		name = r.fold(name)

		// a name without a value is a minimized attribute
		value := name
		var quote rune
		if r.doc.SkipWhitespace() == '=' {
			r.doc.ReadChar()
			switch ch := r.doc.SkipWhitespace(); ch {
			case '"', '\'':
				quote = ch
				if value, err = r.doc.ScanLiteral(ch); err != nil {
					return err
				}
			default:
				if value, err = r.doc.ScanToken(valueTerminators, false); err != nil {
					return err
				}
			}
		}

		if n.attribute(name, r.dtd) != nil {
			r.tlog.Debug("duplicate attribute ignored",
				slog.String("element", n.name),
				slog.String("attribute", name))
			continue
		}
		a := n.addAttribute()
		a.name = name
		a.prefix, a.local = splitName(name)
		a.value = value
		a.quote = quote
	}
}

func (r *Reader) applyDefaults(n *node) {
	for name, def := range n.decl.AttList.Range() {
		if def.Default == "" || (def.Presence != PresenceDefault && def.Presence != PresenceFixed) {
			continue
		}
		if n.attribute(name, r.dtd) != nil {
			continue
		}
		a := n.addAttribute()
		a.name = name
		a.prefix, a.local = splitName(name)
		a.value = def.Default
		a.def = def
	}
}

func splitName(name string) (string, string) {
	if i := strings.IndexByte(name, ':'); i > 0 && i < len(name)-1 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// validateContent returns how many open elements must be closed before
// an element called name can start. textOnly is set when the innermost
// element was closed because it can only hold text.
func (r *Reader) validateContent(name string) (closes int, textOnly bool) {
	if r.depth == 0 || r.dtd == nil {
		return 0, false
	}

	top := r.slots[r.depth-1]
	if top.decl.TextOnly() || (top.decl == nil && top.hasText) {
		closes = 1
		textOnly = true
	}

	i := r.depth - 1 - closes
	if i < 0 {
		return closes, textOnly
	}
	parent := r.slots[i]
	if parent.decl == nil || parent.decl.CanContain(name, r.dtd) {
		return closes, textOnly
	}

	for j := i; j >= 1; j-- {
		if r.slots[j].decl == nil || !r.slots[j].decl.EndTagOptional {
			break
		}
		if anc := r.slots[j-1].decl; anc != nil && anc.CanContain(name, r.dtd) {
			return closes + i - j + 1, textOnly
		}
	}

	r.tlog.Debug("no open element can contain element, nesting anyway",
		slog.String("element", name),
		slog.String("parent", parent.name))
	if debug.Enabled {
		debug.OpenElements("nesting <"+name+">", r.openNames())
	}
	return closes, textOnly
}

// openNames lists the names of the open elements, outermost first
func (r *Reader) openNames() []string {
	names := make([]string, 0, r.depth)
	for _, n := range r.slots[:r.depth] {
		names = append(names, n.name)
	}
	return names
}

func (r *Reader) pushStart() {
	if r.depth == len(r.slots) {
		r.slots = append(r.slots, &node{})
	}
	n := r.scratch
	r.scratch = r.slots[r.depth]
	r.slots[r.depth] = n
	n.level = r.depth

	for i := range n.nattrs {
		a := &n.attrs[i]
		switch {
		case a.name == "xmlns":
			r.ns.Push("", a.value)
			n.nsCount++
		case a.prefix == "xmlns":
			r.ns.Push(a.local, a.value)
			n.nsCount++
		}
	}
	if r.ns.Len() > 0 {
		n.uri, _ = r.ns.Lookup(n.prefix)
		for i := range n.nattrs {
			if a := &n.attrs[i]; a.prefix != "" && a.prefix != "xmlns" {
				a.uri, _ = r.ns.Lookup(a.prefix)
			}
		}
	}

	r.cur = n
	r.state = stateMarkup
	if n.empty {
		r.ns.Pop(n.nsCount)
		return
	}
	r.depth++
	if cm := n.decl; cm != nil && cm.ContentModel != nil {
		switch cm.ContentModel.DeclaredContent {
		case ContentCDATA, ContentRCDATA:
			r.state = stateCData
		}
	}
}

func (r *Reader) popEnd(simulated bool) {
	n := r.slots[r.depth-1]
	r.depth--
	r.ns.Pop(n.nsCount)

	e := r.end
	e.reset()
	e.typ = NodeEndElement
	e.name = n.name
	e.prefix = n.prefix
	e.local = n.local
	e.uri = n.uri
	e.level = r.depth
	e.simulated = simulated
	r.cur = e
}

func (r *Reader) readEndTag() error {
	r.doc.ReadChar()
	name, err := r.doc.ScanToken(" \t\r\n>", false)
	if err != nil {
		return err
	}
	if r.doc.SkipWhitespace() == '>' {
		r.doc.ReadChar()
	}

	if r.depth == 0 {
		r.tlog.Debug("ignoring end tag with no open element", slog.String("element", name))
		return nil
	}

	// "</>" closes the current element
	if name == "" {
		r.closes = 1
		r.state = stateEndTag
		return nil
	}

	name = r.fold(name)
	for k := r.depth - 1; k >= 0; k-- {
		if r.dtd.equalNames(r.slots[k].name, name) {
			r.closes = r.depth - k
			r.state = stateEndTag
			return nil
		}
	}
	r.tlog.Debug("ignoring unmatched end tag", slog.String("element", name))
	if debug.Enabled {
		debug.OpenElements("unmatched </"+name+">", r.openNames())
	}
	return nil
}

// readBang handles markup starting with "<!"
func (r *Reader) readBang() (bool, error) {
	switch ch := r.doc.ReadChar(); ch {
	case '-':
		if r.doc.ReadChar() != '-' {
			return r.readText(append(r.buf[:0], '<', '!', '-')), nil
		}
		r.doc.ReadChar()
		v, err := r.doc.ScanToEnd("-->")
		if err != nil {
			return false, err
		}
		r.text.reset()
		r.text.typ = NodeComment
		r.text.value = v
		r.text.level = r.depth
		r.cur = r.text
		return true, nil
	case '[':
		return r.readMarkedSection()
	case '>':
		// empty declaration
		r.doc.ReadChar()
		return false, nil
	}

	kw, err := r.doc.ScanToken(wsChars+">[", false)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(kw, "DOCTYPE") {
		return true, r.readDocType()
	}

	r.tlog.Debug("skipping declaration", slog.String("decl", kw))
	_, err = r.doc.ScanToEnd(">")
	return false, err
}

func (r *Reader) readMarkedSection() (bool, error) {
	r.doc.ReadChar()
	r.doc.SkipWhitespace()
	kw, err := r.doc.ScanToken(wsChars+"[", false)
	if err != nil {
		return false, err
	}
	if r.doc.SkipWhitespace() == '[' {
		r.doc.ReadChar()
	}

	v, err := r.doc.ScanToEnd("]]>")
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(kw) {
	case "CDATA":
		r.emitText(NodeCDATA, append(r.buf[:0], v...))
		return true, nil
	case "IGNORE":
		return false, nil
	}
	return false, r.doc.Error(ErrNotImplemented)
}

func (r *Reader) readDocType() error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	n := r.text
	n.reset()
	n.typ = NodeDocumentType
	n.level = r.depth

	r.doc.SkipWhitespace()
	name, err := r.doc.ScanToken(wsChars+">[", false)
	if err != nil {
		return err
	}
	n.name = r.fold(name)

	var publicID, systemID string
	ch := r.doc.SkipWhitespace()
	if ch != '[' && ch != '>' && ch != EOF {
		kw, err := r.doc.ScanToken(wsChars+">[", false)
		if err != nil {
			return err
		}
		ch = r.doc.SkipWhitespace()
		if strings.EqualFold(kw, "PUBLIC") && (ch == '"' || ch == '\'') {
			if publicID, err = r.doc.ScanLiteral(ch); err != nil {
				return err
			}
			ch = r.doc.SkipWhitespace()
		}
		if ch == '"' || ch == '\'' {
			if systemID, err = r.doc.ScanLiteral(ch); err != nil {
				return err
			}
			ch = r.doc.SkipWhitespace()
		}
	}

	if ch == '[' {
		r.doc.ReadChar()
		if n.value, err = r.doc.ScanToEnd("]"); err != nil {
			return err
		}
		ch = r.doc.SkipWhitespace()
	}
	if ch == '>' {
		r.doc.ReadChar()
	}

	if publicID != "" {
		a := n.addAttribute()
		a.name, a.local, a.value, a.quote = "PUBLIC", "PUBLIC", publicID, '"'
	}
	if systemID != "" {
		a := n.addAttribute()
		a.name, a.local, a.value, a.quote = "SYSTEM", "SYSTEM", systemID, '"'
	}

	if r.dtd == nil {
		r.loadDocumentDTD(n.name, publicID, systemID, n.value)
	}
	r.cur = n
	return nil
}

// loadDocumentDTD builds a DTD from the internal subset and, when a
// resolver is available, the external subset. Failures are logged and
// parsing continues without a DTD.
func (r *Reader) loadDocumentDTD(name, publicID, systemID, subset string) {
	if subset == "" && (systemID == "" || r.resolver == nil) {
		return
	}

	var src io.Reader = strings.NewReader(subset)
	options := []DTDOption{WithTraceLogger(r.tlog)}
	if r.resolver != nil {
		options = append(options, WithResolver(r.resolver))
		if systemID != "" {
			rc, _, err := r.resolver.Open(publicID, systemID, "")
			if err != nil {
				r.tlog.Debug("failed to open external DTD", slog.String("system", systemID), slog.Any("error", err))
			} else {
				defer rc.Close()
				// the internal subset is read first so its declarations win
				src = io.MultiReader(src, strings.NewReader("\n"), rc)
			}
		}
	}
	dtd, err := ParseDTD(name, src, options...)
	if err != nil {
		r.tlog.Debug("failed to load document type", slog.String("name", name), slog.Any("error", err))
		return
	}
	if dtd.elements.Len() == 0 {
		return
	}
	r.dtd = dtd
}

// scanPI reads a processing instruction into n with Lastchar on the
// first character after "<?"
func (r *Reader) scanPI(n *node) error {
	v, err := r.doc.ScanToEnd(">")
	if err != nil {
		return err
	}
	v = strings.TrimSuffix(v, "?")

	n.reset()
	n.typ = NodeProcessingInstruction
	n.level = r.depth
	target, rest, _ := strings.Cut(v, " ")
	n.name = target
	n.local = target
	n.value = strings.TrimLeft(rest, wsChars)
	return nil
}

// readCData reads the content of an element declared CDATA or RCDATA.
// Only the end tag of that element ends it.
func (r *Reader) readCData() (bool, error) {
	top := r.slots[r.depth-1]
	typ := NodeCDATA
	if top.decl.ContentModel.DeclaredContent == ContentRCDATA {
		typ = NodeText
	}

	buf := r.buf[:0]
	ch := r.doc.Lastchar
	for ch != EOF {
		switch {
		case ch == '&' && typ == NodeText:
			buf = r.expandReference(buf)
			ch = r.doc.Lastchar
			continue
		case ch != '<':
			buf = utf8.AppendRune(buf, ch)
			ch = r.doc.ReadChar()
			continue
		}

		switch ch = r.doc.ReadChar(); ch {
		case '/':
			r.doc.ReadChar()
			name, err := r.doc.ScanToken(" \t\r\n>", false)
			if err != nil {
				return false, err
			}
			if r.dtd.equalNames(r.fold(name), top.name) {
				if r.doc.SkipWhitespace() == '>' {
					r.doc.ReadChar()
				}
				r.closes = 1
				r.state = stateEndTag
				return r.flushCData(typ, buf), nil
			}
			buf = append(buf, '<', '/')
			buf = append(buf, name...)
			ch = r.doc.Lastchar
		case '!':
			if r.doc.ReadChar() != '-' {
				buf = append(buf, '<', '!')
				ch = r.doc.Lastchar
				continue
			}
			if r.doc.ReadChar() != '-' {
				buf = append(buf, '<', '!', '-')
				ch = r.doc.Lastchar
				continue
			}
			r.doc.ReadChar()
			v, err := r.doc.ScanToEnd("-->")
			if err != nil {
				return false, err
			}
			r.held.reset()
			r.held.typ = NodeComment
			r.held.value = v
			r.held.level = r.depth
			return r.queueHeld(typ, buf), nil
		case '?':
			r.doc.ReadChar()
			if err := r.scanPI(r.held); err != nil {
				return false, err
			}
			return r.queueHeld(typ, buf), nil
		default:
			buf = append(buf, '<')
		}
	}

	r.state = stateEOF
	return r.flushCData(typ, buf), nil
}

// queueHeld reports buffered character data first when a comment or
// processing instruction interrupts it
func (r *Reader) queueHeld(typ NodeType, buf []byte) bool {
	if len(buf) == 0 {
		r.cur = r.held
		return true
	}
	r.flushCData(typ, buf)
	r.state = statePartialText
	return true
}

func (r *Reader) flushCData(typ NodeType, buf []byte) bool {
	if len(buf) == 0 {
		r.buf = buf
		return false
	}
	r.slots[r.depth-1].hasText = true
	r.emitText(typ, buf)
	return true
}

func (r *Reader) attribute() *attribute {
	if r.cur == nil || r.attr < 0 || r.attr >= r.cur.nattrs {
		return nil
	}
	return &r.cur.attrs[r.attr]
}

func (r *Reader) NodeType() NodeType {
	if r.attribute() != nil {
		if r.state == stateAttrValue {
			return NodeText
		}
		return NodeAttribute
	}
	if r.cur == nil {
		return NodeNone
	}
	return r.cur.typ
}

func (r *Reader) Name() string {
	if a := r.attribute(); a != nil {
		if r.state == stateAttrValue {
			return ""
		}
		return a.name
	}
	if r.cur == nil {
		return ""
	}
	return r.cur.name
}

func (r *Reader) LocalName() string {
	if a := r.attribute(); a != nil {
		return a.local
	}
	if r.cur == nil {
		return ""
	}
	return r.cur.local
}

func (r *Reader) Prefix() string {
	if a := r.attribute(); a != nil {
		return a.prefix
	}
	if r.cur == nil {
		return ""
	}
	return r.cur.prefix
}

func (r *Reader) NamespaceURI() string {
	if a := r.attribute(); a != nil {
		return a.uri
	}
	if r.cur == nil {
		return ""
	}
	return r.cur.uri
}

func (r *Reader) Value() string {
	if a := r.attribute(); a != nil {
		return a.value
	}
	if r.cur == nil {
		return ""
	}
	return r.cur.value
}

// Depth is the nesting level of the current node. Attributes are one
// level below their element and attribute values two.
func (r *Reader) Depth() int {
	if r.cur == nil {
		return 0
	}
	if r.attribute() != nil {
		if r.state == stateAttrValue {
			return r.cur.level + 2
		}
		return r.cur.level + 1
	}
	return r.cur.level
}

func (r *Reader) IsEmptyElement() bool {
	return r.cur != nil && r.cur.typ == NodeElement && r.cur.empty
}

// IsSimulated reports an end element that was inferred rather than
// read from the document
func (r *Reader) IsSimulated() bool {
	return r.cur != nil && r.cur.simulated
}

// IsDefault reports an attribute supplied by the DTD
func (r *Reader) IsDefault() bool {
	a := r.attribute()
	return a != nil && a.def != nil
}

// QuoteChar returns the quote used for the current attribute value, or
// zero when it was unquoted
func (r *Reader) QuoteChar() rune {
	if a := r.attribute(); a != nil {
		return a.quote
	}
	return 0
}

func (r *Reader) AttributeCount() int {
	if r.cur == nil {
		return 0
	}
	switch r.cur.typ {
	case NodeElement, NodeDocumentType:
		return r.cur.nattrs
	}
	return 0
}

// MoveToAttribute positions the cursor on the i-th attribute
func (r *Reader) MoveToAttribute(i int) bool {
	if i < 0 || i >= r.AttributeCount() {
		return false
	}
	if r.state != stateAttr && r.state != stateAttrValue {
		r.cur.savedState = r.state
	}
	r.state = stateAttr
	r.attr = i
	return true
}

func (r *Reader) MoveToAttributeByName(name string) bool {
	n := r.AttributeCount()
	for i := range n {
		if r.dtd.equalNames(r.cur.attrs[i].name, r.fold(name)) {
			return r.MoveToAttribute(i)
		}
	}
	return false
}

// MoveToElement returns from an attribute to its element
func (r *Reader) MoveToElement() bool {
	if r.attr < 0 {
		return false
	}
	r.attr = -1
	r.state = r.cur.savedState
	return true
}

// ReadAttributeValue moves onto the value of the current attribute. It
// returns false when there is no attribute or the value was already read.
func (r *Reader) ReadAttributeValue() bool {
	if r.attribute() == nil || r.state == stateAttrValue {
		return false
	}
	r.state = stateAttrValue
	return true
}

func (r *Reader) GetAttribute(name string) (string, bool) {
	n := r.AttributeCount()
	for i := range n {
		if a := &r.cur.attrs[i]; r.dtd.equalNames(a.name, r.fold(name)) {
			return a.value, true
		}
	}
	return "", false
}
