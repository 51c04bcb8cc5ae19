package merge

import (
	"fmt"

	"go.uber.org/zap"

	"jarsmith/internal/diagnostic"
	"jarsmith/internal/mapping"
)

// Diagnostic codes emitted by the merge engine.
const (
	CodeUnmatchedRecord   = "unmatched_record"
	CodeAmbiguousFallback = "ambiguous_fallback"
	CodeFallbackMatch     = "fallback_match"
	CodeUnknownField      = "unknown_migrated_field"
)

// Options configures MergeNamespace.
type Options struct {
	// JoinNamespace is the primary tree namespace whose names the document's source side uses.
	JoinNamespace string
	// TargetNamespace receives the document's names. It is added when the tree lacks it.
	TargetNamespace string
	// JoinKey normalizes tokens on both sides before joining. Defaults to ExactKey.
	JoinKey JoinKeyFunc
	// TryMatchRegardlessOfRenames enables the second join tier for methods: owner and descriptor
	// from JoinNamespace, method name from FallbackNamespace.
	TryMatchRegardlessOfRenames bool
	// FallbackNamespace is the namespace used for tier-2 method names.
	FallbackNamespace string
	// Lenient turns unmatched records into warnings instead of errors.
	Lenient bool
	// Overwrite replaces names already present in an existing target column.
	Overwrite bool
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

type element interface {
	Name(ns int) string
	DstName(ns int) string
	SetName(ns int, name string)
}

// MergeNamespace joins doc onto a copy of primary and returns the merged tree.
//
// Records are joined by Token equality (tier 1). A join key without an owner (MemberNameOnly)
// assigns the record to every row sharing the member name; any other key matching several rows
// is an inconsistency. When TryMatchRegardlessOfRenames is set, a
// method record that misses tier 1 is looked up by (owner, fallback-namespace name, descriptor);
// the first candidate in tree order wins and additional candidates are reported as
// ambiguous_fallback warnings. Two document records that claim the same key with different names
// are always fatal.
func MergeNamespace(primary *mapping.Tree, doc *Document, opts Options) (*mapping.Tree, *diagnostic.Diagnostics, error) {
	if opts.JoinKey == nil {
		opts.JoinKey = ExactKey
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	diags := &diagnostic.Diagnostics{}

	joinID := primary.NamespaceID(opts.JoinNamespace)
	if joinID < 0 {
		return nil, diags, fmt.Errorf("%w: primary tree lacks join namespace %q", ErrMissingNamespace, opts.JoinNamespace)
	}

	if !doc.HasNamespace(opts.TargetNamespace) {
		return nil, diags, fmt.Errorf("%w: document %s->%s lacks %q",
			ErrMissingNamespace, doc.Source, doc.Target, opts.TargetNamespace)
	}

	fallbackID := -1
	if opts.TryMatchRegardlessOfRenames {
		fallbackID = primary.NamespaceID(opts.FallbackNamespace)
		if fallbackID < 0 {
			return nil, diags, fmt.Errorf("%w: primary tree lacks fallback namespace %q",
				ErrMissingNamespace, opts.FallbackNamespace)
		}
	}

	if err := checkDocumentKeys(doc, opts.JoinKey); err != nil {
		return nil, diags, err
	}

	out, targetID, err := withTarget(primary, opts.TargetNamespace)
	if err != nil {
		return nil, diags, err
	}

	idx := buildIndex(out, joinID, opts.JoinKey)

	var fallback map[mapping.TokenKey][]*mapping.Method
	if fallbackID >= 0 {
		fallback = buildFallbackIndex(out, joinID, fallbackID, opts.JoinKey)
	}

	matched, viaFallback := 0, 0

	for _, rec := range doc.Records {
		joined := opts.JoinKey(rec.Token)
		key := joined.Key()

		if cands := idx[key]; len(cands) > 0 {
			// An owner-less key names a member in every class that declares it, such as
			// overrides sharing one intermediate name.
			if len(cands) > 1 && !ownerless(joined) {
				return nil, diags, inconsistency(rec.Token, "join key matches %d rows of the primary tree", len(cands))
			}

			for _, c := range cands {
				assign(c, targetID, rec.Name, opts.Overwrite)
			}

			matched++

			continue
		}

		if fallback != nil && rec.Token.Kind() == mapping.KindMethod {
			if cands := fallback[key]; len(cands) > 0 {
				if len(cands) > 1 {
					d := diags.AddWarning(CodeAmbiguousFallback,
						fmt.Sprintf("%d fallback candidates, using the first", len(cands)),
						rec.Token.OwnerName(), rec.Token.Name()+rec.Token.Desc())
					for _, c := range cands {
						d.Suggestions = append(d.Suggestions, c.Name(joinID))
					}
				}

				assign(cands[0], targetID, rec.Name, opts.Overwrite)
				diags.AddInfo(CodeFallbackMatch, "matched through "+opts.FallbackNamespace,
					rec.Token.OwnerName(), rec.Token.Name()+rec.Token.Desc())
				viaFallback++

				continue
			}
		}

		if !opts.Lenient {
			return nil, diags, inconsistency(rec.Token, "no row in namespace %s", opts.JoinNamespace)
		}

		d := diags.AddWarning(CodeUnmatchedRecord, "record dropped: no row in "+opts.JoinNamespace,
			rec.Token.OwnerName(), rec.Token.Name()+rec.Token.Desc())
		d.Suggestions = suggest(out, joinID, rec.Token)
	}

	opts.Logger.Debug("merged namespace",
		zap.String("target", opts.TargetNamespace),
		zap.Int("records", len(doc.Records)),
		zap.Int("matched", matched),
		zap.Int("fallback", viaFallback),
		zap.Int("dropped", len(diags.WithCode(CodeUnmatchedRecord))))

	return out, diags, nil
}

func ownerless(tok mapping.Token) bool {
	return tok.Kind() != mapping.KindClass && tok.OwnerName() == ""
}

func withTarget(primary *mapping.Tree, target string) (*mapping.Tree, int, error) {
	if id := primary.NamespaceID(target); id >= 0 {
		if id == 0 {
			return nil, -1, fmt.Errorf("%w: cannot merge into the source namespace %q", ErrMappingInconsistency, target)
		}

		return primary.Copy(), id, nil
	}

	return primary.WithNamespace(target)
}

func assign(e element, ns int, name string, overwrite bool) {
	if name == "" {
		return
	}

	if e.DstName(ns) != "" && !overwrite {
		return
	}

	e.SetName(ns, name)
}

func checkDocumentKeys(doc *Document, joinKey JoinKeyFunc) error {
	seen := make(map[mapping.TokenKey]string, len(doc.Records))

	for _, rec := range doc.Records {
		key := joinKey(rec.Token).Key()
		if prev, ok := seen[key]; ok {
			if prev != rec.Name {
				return inconsistency(rec.Token, "claimed by two records (%q and %q)", prev, rec.Name)
			}

			continue
		}

		seen[key] = rec.Name
	}

	return nil
}

func buildIndex(t *mapping.Tree, ns int, joinKey JoinKeyFunc) map[mapping.TokenKey][]element {
	idx := make(map[mapping.TokenKey][]element)

	add := func(e element, tok mapping.Token) {
		key := joinKey(tok).Key()
		idx[key] = append(idx[key], e)
	}

	for _, c := range t.Classes() {
		add(c, mapping.TokenOf(c, ns))

		for _, f := range c.Fields() {
			add(f, mapping.TokenOf(f, ns))
		}

		for _, m := range c.Methods() {
			add(m, mapping.TokenOf(m, ns))
		}
	}

	return idx
}

func buildFallbackIndex(t *mapping.Tree, joinID, fallbackID int, joinKey JoinKeyFunc) map[mapping.TokenKey][]*mapping.Method {
	idx := make(map[mapping.TokenKey][]*mapping.Method)

	for _, c := range t.Classes() {
		for _, m := range c.Methods() {
			tok := mapping.MethodToken(c.Name(joinID), m.Name(fallbackID), m.Desc(joinID))
			key := joinKey(tok).Key()
			idx[key] = append(idx[key], m)
		}
	}

	return idx
}
