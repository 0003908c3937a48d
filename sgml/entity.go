package sgml

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lestrrat-go/ofx/internal/pool"
	"github.com/lestrrat-go/ofx/internal/stack"
)

// EOF is returned by ReadChar when the entity is exhausted
const EOF = rune(-1)

const documentEntityName = "#document"

// Resolver opens external entities. Only external entities ever reach
// a Resolver; internal (literal) entities are read from memory.
type Resolver interface {
	// Open returns the entity's content along with the URI it was
	// resolved to. base is the resolved URI of the referencing entity.
	Open(publicID, systemID, base string) (io.ReadCloser, string, error)
}

// FileResolver resolves system identifiers as local file paths,
// relative to the referencing entity when not absolute.
type FileResolver struct {
	Dir string
}

func (r FileResolver) Open(_, systemID, base string) (io.ReadCloser, string, error) {
	if systemID == "" {
		return nil, "", fmt.Errorf("%w: empty system identifier", ErrNoResolver)
	}

	path := systemID
	if !filepath.IsAbs(path) {
		dir := r.Dir
		if base != "" {
			dir = filepath.Dir(base)
		}
		path = filepath.Join(dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// Entity is a named character source: the document itself, an
// internal literal, or an external resource.
type Entity struct {
	Name     string
	PublicID string
	SystemID string
	Literal  string
	// Kind is the declared data type of the entity ("CDATA", "SDATA"
	// or "PI"), empty for ordinary text entities
	Kind        string
	Internal    bool
	IsParameter bool

	Line         int
	LinePosition int
	Lastchar     rune
	IsWhitespace bool

	uri    string
	parent int
	depth  int
	r      io.RuneReader
	closer io.Closer
	buf    []byte
}

func NewInternalEntity(name, literal string) *Entity {
	return &Entity{
		Name:     name,
		Literal:  literal,
		Internal: true,
		parent:   -1,
		depth:    -1,
	}
}

func NewExternalEntity(name, publicID, systemID string) *Entity {
	return &Entity{
		Name:     name,
		PublicID: publicID,
		SystemID: systemID,
		parent:   -1,
		depth:    -1,
	}
}

// NewDocumentEntity wraps an already open stream
func NewDocumentEntity(name string, src io.Reader) *Entity {
	if name == "" {
		name = documentEntityName
	}
	e := &Entity{
		Name:   name,
		parent: -1,
		depth:  -1,
		Line:   1,
	}
	e.r = runeReader(src)
	e.buf = pool.ByteSlice().Get()
	return e
}

func runeReader(src io.Reader) io.RuneReader {
	if rr, ok := src.(io.RuneReader); ok {
		return rr
	}
	return bufio.NewReader(src)
}

// Key identifies the entity on an entity stack
func (e *Entity) Key() string {
	if e.IsParameter {
		return "%" + e.Name
	}
	return "&" + e.Name
}

// instance returns a fresh, unopened copy of a declared entity
func (e *Entity) instance() *Entity {
	return &Entity{
		Name:        e.Name,
		PublicID:    e.PublicID,
		SystemID:    e.SystemID,
		Literal:     e.Literal,
		Kind:        e.Kind,
		Internal:    e.Internal,
		IsParameter: e.IsParameter,
		parent:      -1,
		depth:       -1,
	}
}

// Open prepares the entity for reading. base is the resolved URI of
// the referencing entity.
func (e *Entity) Open(resolver Resolver, base string) error {
	e.Line = 1
	e.LinePosition = 0
	if e.buf == nil {
		e.buf = pool.ByteSlice().Get()
	}
	if e.r != nil {
		return nil
	}

	if e.Internal {
		e.r = strings.NewReader(e.Literal)
		return nil
	}

	if resolver == nil {
		return fmt.Errorf("%w: %q", ErrNoResolver, e.SystemID)
	}
	rc, uri, err := resolver.Open(e.PublicID, e.SystemID, base)
	if err != nil {
		return fmt.Errorf("failed to open entity %q: %w", e.Name, err)
	}
	e.uri = uri
	e.r = bufio.NewReader(rc)
	e.closer = rc
	return nil
}

func (e *Entity) Close() error {
	var err error
	if e.closer != nil {
		err = e.closer.Close()
		e.closer = nil
	}
	e.r = nil
	if e.buf != nil {
		pool.ByteSlice().Put(e.buf)
		e.buf = nil
	}
	return err
}

// ReadChar advances to the next character and returns it. The
// returned value is also available as Lastchar until the next call.
func (e *Entity) ReadChar() rune {
	var c rune
	if e.r == nil {
		c = EOF
	} else {
		r, _, err := e.r.ReadRune()
		switch {
		case err != nil:
			c = EOF
		case r == 0:
			c = ' '
		default:
			c = r
		}
	}

	switch c {
	case '\n':
		e.Line++
		e.LinePosition = 0
	case EOF:
	default:
		e.LinePosition++
	}
	e.Lastchar = c
	e.IsWhitespace = isWhitespace(c)
	return c
}

func (e *Entity) SkipWhitespace() rune {
	ch := e.Lastchar
	for ch != EOF && isWhitespace(ch) {
		ch = e.ReadChar()
	}
	return ch
}

// ScanToken accumulates characters starting at Lastchar until one of
// the terminators (or EOF) is seen. The terminator is not consumed.
// With nmtoken set, the token must be a valid name.
func (e *Entity) ScanToken(term string, nmtoken bool) (string, error) {
	ch := e.Lastchar
	if nmtoken && ch != '_' && !unicode.IsLetter(ch) {
		return "", e.Error(fmt.Errorf("%w: invalid name start character %q", ErrInvalidCharacter, ch))
	}

	buf := e.buf[:0]
	for ch != EOF && !strings.ContainsRune(term, ch) {
		if nmtoken && !isNameChar(ch) {
			e.buf = buf
			return "", e.Error(fmt.Errorf("%w: invalid name character %q", ErrInvalidCharacter, ch))
		}
		buf = utf8.AppendRune(buf, ch)
		ch = e.ReadChar()
	}
	e.buf = buf
	return string(buf), nil
}

// ScanLiteral reads a quoted literal. Lastchar must be the opening
// quote. Numeric character references are expanded; named entity
// references are left as they are.
func (e *Entity) ScanLiteral(quote rune) (string, error) {
	buf := e.buf[:0]
	ch := e.ReadChar()
	for ch != EOF && ch != quote {
		if ch == '&' {
			ch = e.ReadChar()
			if ch == '#' {
				r, err := e.ExpandCharEntity()
				if err != nil {
					e.buf = buf
					return "", err
				}
				buf = utf8.AppendRune(buf, r)
				ch = e.Lastchar
				continue
			}
			buf = append(buf, '&')
			continue
		}
		buf = utf8.AppendRune(buf, ch)
		ch = e.ReadChar()
	}
	e.buf = buf

	if ch == EOF {
		return string(buf), e.Error(fmt.Errorf("%w: unterminated literal", ErrUnexpectedEOF))
	}
	e.ReadChar()
	return string(buf), nil
}

// ScanToEnd reads up to and including the terminator, returning what
// came before it. Lastchar must be the first character to examine.
func (e *Entity) ScanToEnd(term string) (string, error) {
	pat := []rune(term)
	fail := prefixFunction(pat)

	buf := e.buf[:0]
	k := 0
	ch := e.Lastchar
	for ch != EOF {
		for k > 0 && ch != pat[k] {
			// give back the part of the partial match that can no
			// longer be a prefix of the terminator
			nk := fail[k-1]
			for _, r := range pat[:k-nk] {
				buf = utf8.AppendRune(buf, r)
			}
			k = nk
		}

		if ch == pat[k] {
			k++
			if k == len(pat) {
				e.ReadChar()
				e.buf = buf
				return string(buf), nil
			}
		} else {
			buf = utf8.AppendRune(buf, ch)
		}
		ch = e.ReadChar()
	}

	for _, r := range pat[:k] {
		buf = utf8.AppendRune(buf, r)
	}
	e.buf = buf
	return string(buf), e.Error(fmt.Errorf("%w: expected %q", ErrUnexpectedEOF, term))
}

func prefixFunction(pat []rune) []int {
	fail := make([]int, len(pat))
	k := 0
	for i := 1; i < len(pat); i++ {
		for k > 0 && pat[i] != pat[k] {
			k = fail[k-1]
		}
		if pat[i] == pat[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

// ExpandCharEntity parses a numeric character reference. Lastchar
// must be the '#'. A terminating ';' is consumed when present.
func (e *Entity) ExpandCharEntity() (rune, error) {
	r, _, err := e.scanCharRef(nil)
	return r, err
}

// scanCharRef is ExpandCharEntity that also appends the characters it
// consumed after the '#' to raw.
func (e *Entity) scanCharRef(raw []byte) (rune, []byte, error) {
	ch := e.ReadChar()
	v := 0
	digits := 0
	if ch == 'x' || ch == 'X' {
		raw = utf8.AppendRune(raw, ch)
		ch = e.ReadChar()
		for {
			d, ok := hexValue(ch)
			if !ok {
				break
			}
			v = v*16 + d
			digits++
			if v > unicode.MaxRune {
				return 0, raw, e.Error(ErrInvalidCharRef)
			}
			raw = utf8.AppendRune(raw, ch)
			ch = e.ReadChar()
		}
	} else {
		for ch >= '0' && ch <= '9' {
			v = v*10 + int(ch-'0')
			digits++
			if v > unicode.MaxRune {
				return 0, raw, e.Error(ErrInvalidCharRef)
			}
			raw = utf8.AppendRune(raw, ch)
			ch = e.ReadChar()
		}
	}

	if digits == 0 {
		return 0, raw, e.Error(ErrInvalidCharRef)
	}
	if ch == ';' {
		raw = append(raw, ';')
		e.ReadChar()
	}

	r := rune(v)
	if !utf8.ValidRune(r) {
		return 0, raw, e.Error(ErrInvalidCharRef)
	}
	return r, raw, nil
}

// Error attaches the current position to err
func (e *Entity) Error(err error) error {
	if _, ok := err.(ErrParseError); ok {
		return err
	}
	return ErrParseError{
		Err:        err,
		Entity:     e.Name,
		LineNumber: e.Line,
		Column:     e.LinePosition,
	}
}

func hexValue(c rune) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isNameChar(c rune) bool {
	return c == '_' || c == '.' || c == '-' || c == ':' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// entityStack holds the entities being read, innermost last. Frames
// refer to their parent by index.
type entityStack struct {
	frames stack.Unique[*Entity]
}

func (s *entityStack) push(e *Entity) error {
	e.parent = s.frames.Len() - 1
	if err := s.frames.Push(e); err != nil {
		return fmt.Errorf("%w: %s", ErrRecursiveEntity, e.Key())
	}
	return nil
}

func (s *entityStack) pop() *Entity {
	e, ok := s.frames.Top()
	if !ok {
		return nil
	}
	s.frames.Pop()
	return e
}

func (s *entityStack) top() *Entity {
	e, _ := s.frames.Top()
	return e
}

func (s *entityStack) len() int {
	return s.frames.Len()
}

// resolvedURI returns the URI of the frame at index i, falling back to
// the nearest ancestor that has one
func (s *entityStack) resolvedURI(i int) string {
	for i >= 0 && i < s.frames.Len() {
		if uri := s.frames[i].uri; uri != "" {
			return uri
		}
		i = s.frames[i].parent
	}
	return ""
}

func (s *entityStack) closeAll() {
	for s.frames.Len() > 0 {
		_ = s.pop().Close()
	}
}
