package ofx

import (
	"regexp"
	"strings"

	"github.com/lestrrat-go/ofx/node"
)

// RedactedValue replaces secrets in persisted documents
const RedactedValue = "********"

var redactedElements = map[string]struct{}{
	"USERID":      {},
	"USERPASS":    {},
	"NEWUSERPASS": {},
	"USERKEY":     {},
	"SESSCOOKIE":  {},
	"USERCRED1":   {},
	"USERCRED2":   {},
	"MFAPHRASEA":  {},
	"ACCESSKEY":   {},
	"AUTHTOKEN":   {},
}

// IsSecretElement reports whether the text of the named element is
// masked by Redact
func IsSecretElement(name string) bool {
	_, ok := redactedElements[strings.ToUpper(name)]
	return ok
}

// Redact returns a copy of doc with secret values masked. doc itself
// is left untouched.
func Redact(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	dup := *doc
	if doc.Tree != nil {
		dup.Tree = node.CloneDocument(doc.Tree)
		RedactTree(dup.Tree)
	}
	return &dup
}

// RedactTree masks secret values in place
func RedactTree(n node.Node) {
	_ = node.Walk(n, func(c node.Node) error {
		e, ok := c.(*node.Element)
		if !ok || !IsSecretElement(e.LocalName()) {
			return nil
		}
		if e.Text() != "" {
			e.SetText(RedactedValue)
		}
		return node.ErrSkipChildren
	})
}

var secretPattern = regexp.MustCompile(`(?i)(<(?:USERID|USERPASS|NEWUSERPASS|USERKEY|SESSCOOKIE|USERCRED1|USERCRED2|MFAPHRASEA|ACCESSKEY|AUTHTOKEN)>)([^<\r\n]*)`)

// RedactBytes masks secret values in serialized OFX, for payloads that
// could not be parsed
func RedactBytes(b []byte) []byte {
	return secretPattern.ReplaceAllFunc(b, func(m []byte) []byte {
		sub := secretPattern.FindSubmatch(m)
		if len(strings.TrimSpace(string(sub[2]))) == 0 {
			return m
		}
		out := append([]byte(nil), sub[1]...)
		return append(out, RedactedValue...)
	})
}
