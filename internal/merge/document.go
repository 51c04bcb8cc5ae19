package merge

import (
	"fmt"
	"strings"

	"jarsmith/internal/mapping"
)

// Record is one row of a secondary mapping document: the element as named in the document's
// source namespace, and the name it receives in the document's target namespace.
type Record struct {
	Token mapping.Token
	Name  string
}

// Document is a flat list of records between two namespace labels.
type Document struct {
	Source  string
	Target  string
	Records []Record
}

// HasNamespace reports whether the document declares the namespace label.
func (d *Document) HasNamespace(ns string) bool {
	return d.Source == ns || d.Target == ns
}

// Add appends a record.
func (d *Document) Add(tok mapping.Token, name string) {
	d.Records = append(d.Records, Record{Token: tok, Name: name})
}

// FromTree flattens two namespaces of a tree into a document. Records are emitted in tree order:
// each class followed by its fields and methods.
func FromTree(t *mapping.Tree, from, to string) (*Document, error) {
	fromID := t.NamespaceID(from)
	toID := t.NamespaceID(to)

	if fromID < 0 || toID < 0 {
		return nil, fmt.Errorf("%w: tree has %v, need %s and %s",
			ErrMissingNamespace, t.Namespaces(), from, to)
	}

	doc := &Document{Source: from, Target: to}

	for _, c := range t.Classes() {
		doc.Add(mapping.TokenOf(c, fromID), c.Name(toID))

		for _, f := range c.Fields() {
			doc.Add(mapping.TokenOf(f, fromID), f.Name(toID))
		}

		for _, m := range c.Methods() {
			doc.Add(mapping.TokenOf(m, fromID), m.Name(toID))
		}
	}

	return doc, nil
}

// FromNameTable builds an owner-less document from a searge-name table. The element kind is
// inferred from the key prefix ("field_"/"f_" for fields, "func_"/"m_" for methods); other
// rows are skipped.
func FromNameTable(entries []mapping.NameEntry, from, to string) *Document {
	doc := &Document{Source: from, Target: to}

	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Key, "field_"), strings.HasPrefix(e.Key, "f_"):
			doc.Add(mapping.FieldToken("", e.Key, ""), e.Name)
		case strings.HasPrefix(e.Key, "func_"), strings.HasPrefix(e.Key, "m_"):
			doc.Add(mapping.MethodToken("", e.Key, ""), e.Name)
		}
	}

	return doc
}

// JoinKeyFunc normalizes a token before it is used as a join key. It is applied to both the
// primary tree's tokens and the document's tokens.
type JoinKeyFunc func(mapping.Token) mapping.Token

// ExactKey joins on the full token.
func ExactKey(t mapping.Token) mapping.Token {
	return t
}

// IgnoreFieldDescriptor joins fields by owner and name only, for sources without field types.
func IgnoreFieldDescriptor(t mapping.Token) mapping.Token {
	if t.Kind() == mapping.KindField {
		return t.WithoutDesc()
	}

	return t
}

// MemberNameOnly joins members by kind and name alone, for owner-less sources whose member
// names are globally unique.
func MemberNameOnly(t mapping.Token) mapping.Token {
	switch t.Kind() {
	case mapping.KindField:
		return mapping.FieldToken("", t.Name(), "")
	case mapping.KindMethod:
		return mapping.MethodToken("", t.Name(), "")
	default:
		return t
	}
}
