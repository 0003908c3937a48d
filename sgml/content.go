package sgml

import (
	"fmt"
	"strings"

	"github.com/lestrrat-go/ofx/internal/orderedmap"
)

type Connector int

const (
	ConnectorNone Connector = iota
	ConnectorSequence
	ConnectorOr
	ConnectorAnd
)

func connectorFromRune(c rune) Connector {
	switch c {
	case ',':
		return ConnectorSequence
	case '|':
		return ConnectorOr
	case '&':
		return ConnectorAnd
	}
	return ConnectorNone
}

type Occurrence int

const (
	OccurrenceRequired Occurrence = iota
	OccurrenceOptional
	OccurrenceZeroOrMore
	OccurrenceOneOrMore
)

func occurrenceFromRune(c rune) (Occurrence, bool) {
	switch c {
	case '?':
		return OccurrenceOptional, true
	case '*':
		return OccurrenceZeroOrMore, true
	case '+':
		return OccurrenceOneOrMore, true
	}
	return OccurrenceRequired, false
}

type DeclaredContent int

const (
	ContentDefault DeclaredContent = iota
	ContentCDATA
	ContentRCDATA
	ContentEmpty
	ContentAny
)

// Member is one entry of a Group: either a symbol or a nested group
type Member struct {
	Symbol     string
	Group      *Group
	Occurrence Occurrence
}

type Group struct {
	Connector  Connector
	Occurrence Occurrence
	// Mixed is set when the group names #PCDATA
	Mixed   bool
	Members []Member
}

// maxContainDepth bounds the search through elements with omissible
// start tags, which may refer to each other
const maxContainDepth = 16

func (g *Group) CanContain(name string, dtd *DTD) bool {
	return g.canContain(name, dtd, 0)
}

func (g *Group) canContain(name string, dtd *DTD, depth int) bool {
	if depth > maxContainDepth {
		return false
	}

	for _, m := range g.Members {
		if m.Group == nil && dtd.equalNames(m.Symbol, name) {
			return true
		}
	}

	// not a direct member: look through nested groups and through
	// members whose start tag may be omitted
	for _, m := range g.Members {
		if m.Group != nil {
			if m.Group.canContain(name, dtd, depth+1) {
				return true
			}
			continue
		}

		e := dtd.FindElement(m.Symbol)
		if e != nil && e.StartTagOptional && e.canContain(name, dtd, depth+1) {
			return true
		}
	}
	return false
}

// ContentModel is the declared content of an element. Groups are
// built through PushGroup/PopGroup while the declaration is parsed.
type ContentModel struct {
	DeclaredContent DeclaredContent
	CurrentDepth    int
	Model           *Group

	stack []*Group
}

func (cm *ContentModel) current() *Group {
	if len(cm.stack) == 0 {
		return nil
	}
	return cm.stack[len(cm.stack)-1]
}

func (cm *ContentModel) PushGroup() {
	g := &Group{}
	if parent := cm.current(); parent != nil {
		parent.Members = append(parent.Members, Member{Group: g})
	} else if cm.Model == nil {
		cm.Model = g
	}
	cm.stack = append(cm.stack, g)
	cm.CurrentDepth = len(cm.stack)
}

// PopGroup closes the innermost group and returns the new depth
func (cm *ContentModel) PopGroup() (int, error) {
	if len(cm.stack) == 0 {
		return 0, fmt.Errorf("%w: unbalanced ')'", ErrMalformedDTD)
	}
	cm.stack[len(cm.stack)-1] = nil
	cm.stack = cm.stack[:len(cm.stack)-1]
	cm.CurrentDepth = len(cm.stack)
	return cm.CurrentDepth, nil
}

func (cm *ContentModel) AddSymbol(sym string) error {
	g := cm.current()
	if g == nil {
		return fmt.Errorf("%w: symbol %q outside of a group", ErrMalformedDTD, sym)
	}
	if sym == "#PCDATA" {
		g.Mixed = true
		return nil
	}
	g.Members = append(g.Members, Member{Symbol: sym})
	return nil
}

func (cm *ContentModel) AddConnector(c rune) error {
	g := cm.current()
	if g == nil {
		return fmt.Errorf("%w: connector %q outside of a group", ErrMalformedDTD, c)
	}
	conn := connectorFromRune(c)
	if conn == ConnectorNone {
		return fmt.Errorf("%w: invalid connector %q", ErrMalformedDTD, c)
	}
	if g.Connector != ConnectorNone && g.Connector != conn {
		return fmt.Errorf("%w: %q", ErrMixedConnectors, c)
	}
	g.Connector = conn
	return nil
}

// AddOccurrence applies the indicator to the most recent member, or to
// the whole model once the outermost group has been closed.
func (cm *ContentModel) AddOccurrence(c rune) error {
	o, ok := occurrenceFromRune(c)
	if !ok {
		return fmt.Errorf("%w: invalid occurrence indicator %q", ErrMalformedDTD, c)
	}

	g := cm.current()
	if g == nil {
		if cm.Model == nil {
			return fmt.Errorf("%w: occurrence indicator outside of a group", ErrMalformedDTD)
		}
		cm.Model.Occurrence = o
		return nil
	}
	if len(g.Members) == 0 {
		g.Occurrence = o
		return nil
	}
	g.Members[len(g.Members)-1].Occurrence = o
	return nil
}

func (cm *ContentModel) SetDeclaredContent(s string) error {
	switch strings.ToUpper(s) {
	case "EMPTY":
		cm.DeclaredContent = ContentEmpty
	case "RCDATA":
		cm.DeclaredContent = ContentRCDATA
	case "CDATA":
		cm.DeclaredContent = ContentCDATA
	case "ANY":
		cm.DeclaredContent = ContentAny
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContentModel, s)
	}
	return nil
}

// TextOnly reports a model of bare #PCDATA
func (cm *ContentModel) TextOnly() bool {
	if cm == nil || cm.DeclaredContent != ContentDefault || cm.Model == nil {
		return false
	}
	return cm.Model.Mixed && len(cm.Model.Members) == 0
}

func (cm *ContentModel) CanContain(name string, dtd *DTD) bool {
	return cm.canContain(name, dtd, 0)
}

func (cm *ContentModel) canContain(name string, dtd *DTD, depth int) bool {
	if cm == nil {
		return false
	}
	switch cm.DeclaredContent {
	case ContentAny:
		return true
	case ContentDefault:
	default:
		return false
	}
	if cm.Model == nil {
		return false
	}
	return cm.Model.canContain(name, dtd, depth)
}

type AttributeType int

const (
	AttrCDATA AttributeType = iota
	AttrEntity
	AttrEntities
	AttrID
	AttrIDRef
	AttrIDRefs
	AttrName
	AttrNames
	AttrNmtoken
	AttrNmtokens
	AttrNumber
	AttrNumbers
	AttrNutoken
	AttrNutokens
	AttrNotation
	AttrEnumeration
)

var attributeTypes = map[string]AttributeType{
	"CDATA":    AttrCDATA,
	"ENTITY":   AttrEntity,
	"ENTITIES": AttrEntities,
	"ID":       AttrID,
	"IDREF":    AttrIDRef,
	"IDREFS":   AttrIDRefs,
	"NAME":     AttrName,
	"NAMES":    AttrNames,
	"NMTOKEN":  AttrNmtoken,
	"NMTOKENS": AttrNmtokens,
	"NUMBER":   AttrNumber,
	"NUMBERS":  AttrNumbers,
	"NUTOKEN":  AttrNutoken,
	"NUTOKENS": AttrNutokens,
	"NOTATION": AttrNotation,
}

type AttributePresence int

const (
	PresenceDefault AttributePresence = iota
	PresenceFixed
	PresenceRequired
	PresenceImplied
)

type AttDef struct {
	Name       string
	Type       AttributeType
	EnumValues []string
	Default    string
	Presence   AttributePresence
}

func (a *AttDef) setType(s string) error {
	t, ok := attributeTypes[strings.ToUpper(s)]
	if !ok {
		return fmt.Errorf("%w: attribute type %q", ErrInvalidDeclaration, s)
	}
	a.Type = t
	return nil
}

func (a *AttDef) setPresence(s string) error {
	switch strings.ToUpper(s) {
	case "FIXED":
		a.Presence = PresenceFixed
	case "REQUIRED":
		a.Presence = PresenceRequired
	case "IMPLIED", "CURRENT", "CONREF":
		a.Presence = PresenceImplied
	default:
		return fmt.Errorf("%w: attribute presence #%s", ErrInvalidDeclaration, s)
	}
	return nil
}

type AttList = orderedmap.Map[string, *AttDef]

type ElementDecl struct {
	Name             string
	StartTagOptional bool
	EndTagOptional   bool
	ContentModel     *ContentModel
	Inclusions       []string
	Exclusions       []string
	AttList          *AttList
}

// AddAttDefs attaches attribute definitions. A name that is already
// defined keeps its first definition.
func (e *ElementDecl) AddAttDefs(defs []*AttDef) {
	if e.AttList == nil {
		e.AttList = orderedmap.New[string, *AttDef]()
	}
	for _, d := range defs {
		// ErrDuplicateEntry: first wins
		_ = e.AttList.Set(d.Name, d)
	}
}

func (e *ElementDecl) FindAttribute(name string) *AttDef {
	if e.AttList == nil {
		return nil
	}
	d, _ := e.AttList.Get(name)
	return d
}

// CanContain reports whether name may appear directly inside this
// element, considering exclusions first and inclusions second.
func (e *ElementDecl) CanContain(name string, dtd *DTD) bool {
	return e.canContain(name, dtd, 0)
}

func (e *ElementDecl) canContain(name string, dtd *DTD, depth int) bool {
	for _, x := range e.Exclusions {
		if dtd.equalNames(x, name) {
			return false
		}
	}
	for _, x := range e.Inclusions {
		if dtd.equalNames(x, name) {
			return true
		}
	}
	return e.ContentModel.canContain(name, dtd, depth)
}

func (e *ElementDecl) TextOnly() bool {
	return e != nil && e.ContentModel.TextOnly()
}
