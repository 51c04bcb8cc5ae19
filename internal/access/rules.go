package access

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"jarsmith/internal/classfile"
	"jarsmith/internal/common"
	"jarsmith/internal/mapping"
)

// ErrInvalidRule indicates an access transformer line that cannot be parsed.
var ErrInvalidRule = errors.New("invalid access transformer rule")

// Level is a visibility level, ordered from most to least restrictive.
type Level int

const (
	LevelPrivate Level = iota
	LevelPackage
	LevelProtected
	LevelPublic
)

var levelNames = map[string]Level{
	"private":   LevelPrivate,
	"default":   LevelPackage,
	"protected": LevelProtected,
	"public":    LevelPublic,
}

func (l Level) String() string {
	switch l {
	case LevelPrivate:
		return "private"
	case LevelProtected:
		return "protected"
	case LevelPublic:
		return "public"
	default:
		return "default"
	}
}

// FinalChange is a change to the final modifier, ordered by strength.
type FinalChange int

const (
	FinalKeep FinalChange = iota
	FinalAdd
	FinalRemove
)

// Directive is the access change requested for one target.
type Directive struct {
	Level Level
	Final FinalChange
}

func (d Directive) widen(o Directive) Directive {
	return Directive{Level: max(d.Level, o.Level), Final: max(d.Final, o.Final)}
}

func (d Directive) String() string {
	switch d.Final {
	case FinalAdd:
		return d.Level.String() + "+f"
	case FinalRemove:
		return d.Level.String() + "-f"
	default:
		return d.Level.String()
	}
}

// Target names a class, a member, or every field or method of a class. Member is "*" for
// wildcards; Desc is "()" for the method wildcard and empty for fields and the field wildcard.
type Target struct {
	Class  string
	Member string
	Desc   string
}

// IsMethod reports whether the target names a method or the method wildcard.
func (t Target) IsMethod() bool {
	return strings.HasPrefix(t.Desc, "(")
}

func (t Target) String() string {
	if t.Member == "" {
		return strings.ReplaceAll(t.Class, "/", ".")
	}

	return strings.ReplaceAll(t.Class, "/", ".") + " " + t.Member + t.Desc
}

// Rules is a set of access directives keyed by target.
type Rules struct {
	entries map[Target]Directive
}

// NewRules returns an empty rule set.
func NewRules() *Rules {
	return &Rules{entries: make(map[Target]Directive)}
}

// Add widens the directive of a target.
func (r *Rules) Add(t Target, d Directive) {
	if have, ok := r.entries[t]; ok {
		d = have.widen(d)
	}

	r.entries[t] = d
}

// Get returns the directive of a target.
func (r *Rules) Get(t Target) (Directive, bool) {
	d, ok := r.entries[t]
	return d, ok
}

// Len returns the number of targets.
func (r *Rules) Len() int {
	return len(r.entries)
}

// Targets returns the targets in a deterministic order.
func (r *Rules) Targets() []Target {
	out := make([]Target, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}

	slices.SortFunc(out, func(a, b Target) int {
		return strings.Compare(a.Class+"\x00"+a.Member+"\x00"+a.Desc, b.Class+"\x00"+b.Member+"\x00"+b.Desc)
	})

	return out
}

// Merge widens r with every directive of other.
func (r *Rules) Merge(other *Rules) {
	for t, d := range other.entries {
		r.Add(t, d)
	}
}

// Parse reads access transformer lines. source names the input in error messages.
func Parse(rd io.Reader, source string) (*Rules, error) {
	rules := NewRules()
	sc := bufio.NewScanner(rd)
	lineNo := 0

	for sc.Scan() {
		lineNo++

		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		t, d, err := parseRule(fields)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}

		rules.Add(t, d)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read access transformer %s: %w", source, err)
	}

	return rules, nil
}

// LoadFile parses an access transformer file.
func LoadFile(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access transformer: %w", err)
	}
	defer f.Close()

	return Parse(f, path)
}

func parseRule(fields []string) (Target, Directive, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return Target{}, Directive{}, fmt.Errorf("%w: want <access> <class> [member]", ErrInvalidRule)
	}

	keyword := fields[0]

	var d Directive

	switch {
	case strings.HasSuffix(keyword, "-f"):
		d.Final = FinalRemove
		keyword = strings.TrimSuffix(keyword, "-f")
	case strings.HasSuffix(keyword, "+f"):
		d.Final = FinalAdd
		keyword = strings.TrimSuffix(keyword, "+f")
	}

	level, ok := levelNames[keyword]
	if !ok {
		return Target{}, Directive{}, fmt.Errorf("%w: unknown access %q", ErrInvalidRule, fields[0])
	}

	d.Level = level
	t := Target{Class: common.InternalName(fields[1])}

	if len(fields) == 3 {
		member := fields[2]
		if i := strings.IndexByte(member, '('); i >= 0 {
			t.Member, t.Desc = member[:i], member[i:]
			if t.Member == "*" && t.Desc != "()" {
				return Target{}, Directive{}, fmt.Errorf("%w: method wildcard must be *()", ErrInvalidRule)
			}
		} else {
			t.Member = member
		}

		if t.Member == "" {
			return Target{}, Directive{}, fmt.Errorf("%w: empty member name", ErrInvalidRule)
		}
	}

	return t, d, nil
}

// Write serializes the rules, one line per target, in a deterministic order.
func (r *Rules) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, t := range r.Targets() {
		fmt.Fprintf(bw, "%s %s\n", r.entries[t], t)
	}

	return bw.Flush()
}

// Hash returns the hex sha256 of the canonical serialization.
func (r *Rules) Hash() string {
	h := sha256.New()
	_ = r.Write(h)

	return hex.EncodeToString(h.Sum(nil))
}

// Remap translates every target from namespace from to namespace to of the tree. Members the
// tree does not know keep their names; descriptors are always translated.
func (r *Rules) Remap(tree *mapping.Tree, from, to string) (*Rules, error) {
	fromID, err := tree.Namespace(from)
	if err != nil {
		return nil, err
	}

	toID, err := tree.Namespace(to)
	if err != nil {
		return nil, err
	}

	mapClass := tree.ClassMapper(fromID, toID)
	out := NewRules()

	for t, d := range r.entries {
		mt := Target{Class: mapping.MapType(t.Class, mapClass), Member: t.Member, Desc: t.Desc}

		if t.Member != "" && t.Member != "*" {
			if c := tree.ClassByName(fromID, t.Class); c != nil {
				mt.Member = remapMember(c, t, fromID, toID)
			}

			mt.Desc = mapping.MapDesc(t.Desc, mapClass)
		}

		out.Add(mt, d)
	}

	return out, nil
}

func remapMember(c *mapping.Class, t Target, from, to int) string {
	if t.IsMethod() {
		for _, m := range c.Methods() {
			if m.Name(from) == t.Member && m.Desc(from) == t.Desc {
				return m.Name(to)
			}
		}

		return t.Member
	}

	for _, f := range c.Fields() {
		if f.Name(from) == t.Member {
			return f.Name(to)
		}
	}

	return t.Member
}

// Apply changes the access flags of a class, its members and its own InnerClasses entry. It
// reports whether any flag changed.
func (r *Rules) Apply(c *classfile.Class) (bool, error) {
	name := c.Name()
	changed := false

	if d, ok := r.entries[Target{Class: name}]; ok {
		// Top-level class files are either public or package-private.
		level := d.Level
		if level == LevelProtected {
			level = LevelPublic
		}

		changed = setAccess(&c.Access, Directive{Level: level, Final: d.Final}) || changed

		ok, err := r.applyInnerClass(c, name, d)
		if err != nil {
			return false, err
		}

		changed = changed || ok
	}

	fieldsAll, hasFieldsAll := r.entries[Target{Class: name, Member: "*"}]
	methodsAll, hasMethodsAll := r.entries[Target{Class: name, Member: "*", Desc: "()"}]

	for _, f := range c.Fields {
		d, ok := r.entries[Target{Class: name, Member: c.MemberName(f)}]
		if hasFieldsAll {
			d, ok = d.widen(fieldsAll), true
		}

		if ok {
			changed = setAccess(&f.Access, d) || changed
		}
	}

	for _, m := range c.Methods {
		mname := c.MemberName(m)
		if mname == "<clinit>" {
			continue
		}

		d, ok := r.entries[Target{Class: name, Member: mname, Desc: c.MemberDesc(m)}]
		if hasMethodsAll {
			d, ok = d.widen(methodsAll), true
		}

		if ok {
			changed = setAccess(&m.Access, d) || changed
		}
	}

	return changed, nil
}

func (r *Rules) applyInnerClass(c *classfile.Class, name string, d Directive) (bool, error) {
	i := c.Attributes.Index(c.Pool, classfile.AttrInnerClasses)
	if i < 0 {
		return false, nil
	}

	entries, err := classfile.DecodeInnerClasses(c.Attributes[i].Info)
	if err != nil {
		return false, err
	}

	changed := false

	for j := range entries {
		if c.Pool.ClassName(entries[j].InnerClass) == name {
			changed = setAccess(&entries[j].Access, d) || changed
		}
	}

	if changed {
		c.Attributes[i].Info = classfile.EncodeInnerClasses(entries)
	}

	return changed, nil
}

func levelOf(flags uint16) Level {
	switch {
	case flags&classfile.AccPublic != 0:
		return LevelPublic
	case flags&classfile.AccProtected != 0:
		return LevelProtected
	case flags&classfile.AccPrivate != 0:
		return LevelPrivate
	default:
		return LevelPackage
	}
}

func setAccess(flags *uint16, d Directive) bool {
	old := *flags
	f := old

	if d.Level > levelOf(f) {
		f &^= classfile.AccVisibility

		switch d.Level {
		case LevelPublic:
			f |= classfile.AccPublic
		case LevelProtected:
			f |= classfile.AccProtected
		}
	}

	switch d.Final {
	case FinalRemove:
		f &^= classfile.AccFinal
	case FinalAdd:
		f |= classfile.AccFinal
	}

	*flags = f

	return f != old
}
