package mapping

import "fmt"

// Kind is the kind of element a Token identifies.
type Kind int

const (
	KindClass Kind = iota
	KindField
	KindMethod
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Token is an immutable structural identity of a class, field or method, used to join
// records coming from differently shaped mapping sources. Owner is nil for classes and for
// members of sources that do not record owners.
type Token struct {
	kind  Kind
	owner *Token
	name  string
	desc  string
}

// ClassToken returns the token of a class.
func ClassToken(name string) Token {
	return Token{kind: KindClass, name: name}
}

// FieldToken returns the token of a field. owner may be empty for owner-less sources.
func FieldToken(owner, name, desc string) Token {
	return Token{kind: KindField, owner: ownerToken(owner), name: name, desc: desc}
}

// MethodToken returns the token of a method. owner may be empty for owner-less sources.
func MethodToken(owner, name, desc string) Token {
	return Token{kind: KindMethod, owner: ownerToken(owner), name: name, desc: desc}
}

func ownerToken(owner string) *Token {
	if owner == "" {
		return nil
	}

	t := ClassToken(owner)

	return &t
}

// Kind returns the token kind.
func (t Token) Kind() Kind { return t.kind }

// Name returns the element name.
func (t Token) Name() string { return t.name }

// Desc returns the descriptor, empty when the source did not record one.
func (t Token) Desc() string { return t.desc }

// Owner returns the owning class token and whether one is present.
func (t Token) Owner() (Token, bool) {
	if t.owner == nil {
		return Token{}, false
	}

	return *t.owner, true
}

// OwnerName returns the owning class name, or "".
func (t Token) OwnerName() string {
	if t.owner == nil {
		return ""
	}

	return t.owner.name
}

// WithoutDesc returns the same token with the descriptor removed.
func (t Token) WithoutDesc() Token {
	t.desc = ""
	return t
}

// WithName returns the same token with a different element name.
func (t Token) WithName(name string) Token {
	t.name = name
	return t
}

// Equal reports structural equality.
func (t Token) Equal(o Token) bool {
	return t.Key() == o.Key()
}

// TokenKey is the comparable form of a Token, suitable as a map key.
type TokenKey struct {
	Kind  Kind
	Owner string
	Name  string
	Desc  string
}

// Key returns the comparable key of the token.
func (t Token) Key() TokenKey {
	return TokenKey{Kind: t.kind, Owner: t.OwnerName(), Name: t.name, Desc: t.desc}
}

// String renders the token as owner.name desc.
func (t Token) String() string {
	switch {
	case t.kind == KindClass:
		return t.name
	case t.owner == nil:
		return fmt.Sprintf("%s %s", t.name, t.desc)
	default:
		return fmt.Sprintf("%s.%s %s", t.owner.name, t.name, t.desc)
	}
}

// TokenOf returns the token of a tree element as seen from namespace ns.
func TokenOf(elem any, ns int) Token {
	switch e := elem.(type) {
	case *Class:
		return ClassToken(e.Name(ns))
	case *Field:
		return FieldToken(e.owner.Name(ns), e.Name(ns), e.Desc(ns))
	case *Method:
		return MethodToken(e.owner.Name(ns), e.Name(ns), e.Desc(ns))
	default:
		panic(fmt.Sprintf("mapping: no token for %T", elem))
	}
}
