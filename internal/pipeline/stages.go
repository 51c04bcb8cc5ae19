package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"jarsmith/internal/access"
	"jarsmith/internal/classfile"
	"jarsmith/internal/config"
	"jarsmith/internal/jar"
	"jarsmith/internal/patch"
	"jarsmith/internal/transform"
)

// StripStage keeps the entries of a raw input jar that match the include patterns and none of
// the exclude patterns.
type StripStage struct {
	base
	input            string
	include, exclude []string
}

// NewStripStage returns the stage keeping the entries of the input jar that pass the filters.
func NewStripStage(name, input string, out *Artifact, include, exclude []string) *StripStage {
	return &StripStage{
		base: base{
			name:   name,
			output: out,
			inputs: []SideInput{
				FileInput(input),
				ValueInput("include", include...),
				ValueInput("exclude", exclude...),
			},
		},
		input:   input,
		include: include,
		exclude: exclude,
	}
}

func (s *StripStage) Run(_ context.Context, rs *RunState) error {
	a, err := readInputJar(s.input)
	if err != nil {
		return err
	}

	kept, err := jar.Filter(a, s.include, s.exclude)
	if err != nil {
		return err
	}

	rs.Logger.Debug("stripped jar",
		zap.String("stage", s.name),
		zap.Int("entries", a.Len()),
		zap.Int("kept", kept.Len()))

	return s.saveJar(kept)
}

// RemapStage renames every class of a jar from one mapping namespace to another. Class file
// entries are moved to their new names.
type RemapStage struct {
	base
	input    *Artifact
	mappings *Artifact
	from, to string
	// Hook observes every rename. May be nil.
	Hook transform.DebugHook
}

// NewRemapStage returns the stage renaming input from namespace from to namespace to.
func NewRemapStage(name string, needs []string, input, mappings, out *Artifact, from, to string) *RemapStage {
	return &RemapStage{
		base: base{
			name:   name,
			needs:  needs,
			output: out,
			inputs: []SideInput{ValueInput("namespaces", from, to)},
		},
		input:    input,
		mappings: mappings,
		from:     from,
		to:       to,
	}
}

func (s *RemapStage) Run(ctx context.Context, rs *RunState) error {
	tree, err := rs.Tree(s.mappings.Path)
	if err != nil {
		return err
	}

	from, err := tree.Namespace(s.from)
	if err != nil {
		return err
	}

	to, err := tree.Namespace(s.to)
	if err != nil {
		return err
	}

	a, err := readJar(s.input)
	if err != nil {
		return err
	}

	hierarchy := transform.NewHierarchy()

	var names []string

	for _, entry := range a.Classes() {
		data, _ := a.Get(entry)

		c, err := classfile.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry, err)
		}

		hierarchy.Add(c)
		names = append(names, c.Name())
	}

	inner := transform.NewInnerClassNamer(tree, from, to, names)
	remapper := transform.NewRemapper(transform.NewTreeMapper(tree, from, to, inner), hierarchy)
	tctx := transform.Context{Tree: tree, Hook: s.Hook, Logger: rs.Logger}

	err = jar.TransformClasses(ctx, a, rs.Workers, func(_ context.Context, _ string, data []byte) ([]byte, error) {
		return transform.ApplyBytes(data, tctx, remapper.Transform())
	})
	if err != nil {
		return err
	}

	out := jar.New()

	for _, entry := range a.Names() {
		data, _ := a.Get(entry)
		if jar.IsClass(entry) {
			entry = jar.EntryName(remapper.MapType(jar.ClassName(entry)))
		}

		out.Put(entry, data)
	}

	rs.Logger.Debug("remapped jar",
		zap.String("stage", s.name),
		zap.String("from", s.from),
		zap.String("to", s.to),
		zap.Int("classes", len(names)),
		zap.Int("derived_inner_names", inner.Len()))

	return s.saveJar(out)
}

// PatchStage applies binary patches of one side. Legacy archives are applied in process; the
// console format is handed to an external tool. Without patches the input is passed through.
type PatchStage struct {
	base
	input   *Artifact
	side    string
	format  string
	patches string
	patcher *patch.ConsolePatcher
}

// NewPatchStage returns the stage applying the side's binary patches in the given format.
func NewPatchStage(name string, needs []string, input, out *Artifact, side, format, patches string, patcher *patch.ConsolePatcher) *PatchStage {
	s := &PatchStage{
		base: base{
			name:   name,
			needs:  needs,
			output: out,
			inputs: []SideInput{ValueInput("patch", side, format)},
		},
		input:   input,
		side:    side,
		format:  format,
		patches: patches,
		patcher: patcher,
	}

	if patches != "" {
		s.inputs = append(s.inputs, FileInput(patches))
	}

	if patcher != nil {
		s.inputs = append(s.inputs, ValueInput("patcher", append([]string{patcher.Tool}, patcher.Args...)...))
	}

	return s
}

func (s *PatchStage) Run(ctx context.Context, rs *RunState) error {
	if s.patches == "" {
		a, err := readJar(s.input)
		if err != nil {
			return err
		}

		return s.saveJar(a)
	}

	if s.format == config.PatchConsole {
		return s.runConsole(ctx, rs)
	}

	set, err := patch.LoadArchive(s.patches, s.side)
	if err != nil {
		return ioError("load patches", err)
	}

	a, err := readJar(s.input)
	if err != nil {
		return err
	}

	stats, err := patch.ApplyArchive(ctx, a, set, patch.ApplyOptions{Workers: rs.Workers, Logger: rs.Logger})
	if err != nil {
		return err
	}

	rs.Logger.Info("applied binary patches",
		zap.String("side", s.side),
		zap.Int("patched", stats.Patched),
		zap.Int("created", stats.Created))

	return s.saveJar(a)
}

func (s *PatchStage) runConsole(ctx context.Context, rs *RunState) error {
	if s.patcher == nil {
		return fmt.Errorf("%w: console patches without a patch tool", patch.ErrToolFailed)
	}

	raw := strings.TrimSuffix(s.output.Path, ".jar") + ".raw.jar"
	defer os.Remove(raw)

	p := *s.patcher
	p.Logger = rs.Logger

	if err := p.Patch(ctx, s.input.Path, raw, s.patches); err != nil {
		return err
	}

	a, err := jar.Read(raw)
	if err != nil {
		return ioError("read patch tool output", err)
	}

	return s.saveJar(a)
}

// UnionStage copies every entry of the clean jar that the patched jar lacks.
type UnionStage struct {
	base
	patched *Artifact
	clean   *Artifact
}

// NewUnionStage returns the stage adding the clean classes the patched jar lacks.
func NewUnionStage(name string, needs []string, patched, clean, out *Artifact) *UnionStage {
	return &UnionStage{
		base:    base{name: name, needs: needs, output: out},
		patched: patched,
		clean:   clean,
	}
}

func (s *UnionStage) Run(_ context.Context, rs *RunState) error {
	a, err := readJar(s.patched)
	if err != nil {
		return err
	}

	clean, err := readJar(s.clean)
	if err != nil {
		return err
	}

	n := jar.Union(a, clean)
	rs.Logger.Debug("copied missing entries", zap.String("stage", s.name), zap.Int("entries", n))

	return s.saveJar(a)
}

// ClassStage runs a per-class transform over every class of a jar.
type ClassStage struct {
	base
	input *Artifact
	fn    transform.Transform
}

// NewClassStage returns a stage running fn over every class of input.
func NewClassStage(name string, needs []string, input, out *Artifact, fn transform.Transform, inputs ...SideInput) *ClassStage {
	return &ClassStage{
		base:  base{name: name, needs: needs, output: out, inputs: inputs},
		input: input,
		fn:    fn,
	}
}

// NewStripParametersStage removes synthetic parameter names matching patterns.
func NewStripParametersStage(name string, needs []string, input, out *Artifact, patterns []string) (*ClassStage, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid synthetic parameter pattern %q: %w", p, err)
		}

		res = append(res, re)
	}

	return NewClassStage(name, needs, input, out, transform.StripParameterNames(res...),
		ValueInput("patterns", patterns...)), nil
}

// NewFixAnnotationsStage recomputes constructor parameter annotation counts.
func NewFixAnnotationsStage(name string, needs []string, input, out *Artifact) *ClassStage {
	return NewClassStage(name, needs, input, out, transform.FixConstructorParameterAnnotations())
}

func (s *ClassStage) Run(ctx context.Context, rs *RunState) error {
	a, err := readJar(s.input)
	if err != nil {
		return err
	}

	if err := transformJar(ctx, a, rs, s.fn); err != nil {
		return err
	}

	return s.saveJar(a)
}

func transformJar(ctx context.Context, a *jar.Archive, rs *RunState, fn transform.Transform) error {
	tctx := transform.Context{Logger: rs.Logger}

	return jar.TransformClasses(ctx, a, rs.Workers, func(_ context.Context, _ string, data []byte) ([]byte, error) {
		return transform.ApplyBytes(data, tctx, fn)
	})
}

// MergeStage combines the client and server variants into one jar.
//
// In structural mode classes present in both variants are merged member by member and classes
// present in one variant are marked with a side annotation. In duplicate mode the client jar is
// taken as is; the platform ships no server-only classes, and any found are reported and
// dropped. Both modes normalize side annotations to the canonical vocabulary afterwards.
type MergeStage struct {
	base
	client     *Artifact
	server     *Artifact
	mode       string
	sides      transform.SideVocabulary
	alternates []transform.SideVocabulary
}

// NewMergeStage returns the stage merging the client and server jars with the given mode.
func NewMergeStage(name string, needs []string, client, server, out *Artifact, mode string, sides transform.SideVocabulary, alternates ...transform.SideVocabulary) *MergeStage {
	return &MergeStage{
		base: base{
			name:   name,
			needs:  needs,
			output: out,
			inputs: []SideInput{ValueInput("merge", mode, sides.Annotation)},
		},
		client:     client,
		server:     server,
		mode:       mode,
		sides:      sides,
		alternates: alternates,
	}
}

func (s *MergeStage) Run(ctx context.Context, rs *RunState) error {
	client, err := readJar(s.client)
	if err != nil {
		return err
	}

	var server *jar.Archive

	if s.server != nil {
		if server, err = readJar(s.server); err != nil {
			return err
		}
	}

	switch {
	case server == nil:
	case s.mode == config.MergeStructural:
		if err := s.structural(ctx, rs, client, server); err != nil {
			return err
		}
	default:
		dropped := 0

		for _, entry := range server.Classes() {
			if !client.Has(entry) {
				dropped++
			}
		}

		if dropped > 0 {
			rs.Logger.Warn("server-only classes dropped by duplicate merge", zap.Int("classes", dropped))
		}
	}

	if err := transformJar(ctx, client, rs, transform.MergeSideAnnotations(s.sides, s.alternates...)); err != nil {
		return err
	}

	return s.saveJar(client)
}

func (s *MergeStage) structural(ctx context.Context, rs *RunState, client, server *jar.Archive) error {
	err := jar.TransformClasses(ctx, client, rs.Workers, func(_ context.Context, entry string, data []byte) ([]byte, error) {
		sdata, ok := server.Get(entry)
		if !ok {
			return markBytes(data, s.sides, transform.SideClient)
		}

		if bytes.Equal(data, sdata) {
			return data, nil
		}

		cc, err := classfile.Parse(data)
		if err != nil {
			return nil, err
		}

		sc, err := classfile.Parse(sdata)
		if err != nil {
			return nil, err
		}

		if err := transform.MergeVariants(cc, sc, s.sides); err != nil {
			return nil, err
		}

		return cc.Bytes()
	})
	if err != nil {
		return err
	}

	clientOnly := 0

	for _, entry := range client.Classes() {
		if !server.Has(entry) {
			clientOnly++
		}
	}

	serverOnly := 0

	for _, entry := range server.Names() {
		if client.Has(entry) {
			continue
		}

		data, _ := server.Get(entry)

		if jar.IsClass(entry) {
			if data, err = markBytes(data, s.sides, transform.SideServer); err != nil {
				return fmt.Errorf("%s: %w", entry, err)
			}

			serverOnly++
		}

		client.Put(entry, data)
	}

	rs.Logger.Info("merged variants",
		zap.Int("client_only", clientOnly),
		zap.Int("server_only", serverOnly))

	return nil
}

func markBytes(data []byte, sides transform.SideVocabulary, side transform.Side) ([]byte, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}

	if err := transform.MarkClass(c, sides, side); err != nil {
		return nil, err
	}

	return c.Bytes()
}

// AccessStage applies access transformer files. Rules written in another namespace than the
// jar's are remapped through the mapping tree first.
type AccessStage struct {
	base
	input    *Artifact
	mappings *Artifact
	files    []string
	from, to string
}

// NewAccessStage returns the stage applying the access transformer files, written in namespace
// from, to a jar in namespace to.
func NewAccessStage(name string, needs []string, input, mappings, out *Artifact, files []string, from, to string) *AccessStage {
	s := &AccessStage{
		base: base{
			name:   name,
			needs:  needs,
			output: out,
			inputs: []SideInput{ValueInput("namespaces", from, to)},
		},
		input:    input,
		mappings: mappings,
		files:    files,
		from:     from,
		to:       to,
	}

	for _, f := range files {
		s.inputs = append(s.inputs, FileInput(f))
	}

	return s
}

func (s *AccessStage) Run(ctx context.Context, rs *RunState) error {
	rules := access.NewRules()

	for _, f := range s.files {
		r, err := access.LoadFile(f)
		if err != nil {
			return ioError("load access transformer", err)
		}

		rules.Merge(r)
	}

	if s.from != s.to && rules.Len() > 0 {
		tree, err := rs.Tree(s.mappings.Path)
		if err != nil {
			return err
		}

		if rules, err = rules.Remap(tree, s.from, s.to); err != nil {
			return err
		}
	}

	a, err := readJar(s.input)
	if err != nil {
		return err
	}

	if rules.Len() > 0 {
		if err := transformJar(ctx, a, rs, transform.AccessTransform(rules)); err != nil {
			return err
		}
	}

	rs.Logger.Debug("applied access transformers", zap.Int("rules", rules.Len()), zap.String("hash", rules.Hash()))

	return s.saveJar(a)
}

// TagStage publishes the final jar, tagged with the pipeline version.
type TagStage struct {
	base
	input   *Artifact
	version string
}

// NewTagStage returns the stage writing the final versioned jar.
func NewTagStage(name string, needs []string, input, out *Artifact, version string) *TagStage {
	return &TagStage{
		base: base{
			name:   name,
			needs:  needs,
			output: out,
			inputs: []SideInput{ValueInput("version", version)},
		},
		input:   input,
		version: version,
	}
}

func (s *TagStage) Run(_ context.Context, _ *RunState) error {
	a, err := readJar(s.input)
	if err != nil {
		return err
	}

	m, err := a.Manifest()
	if err != nil {
		return err
	}

	m.Set("Implementation-Version", s.version)
	a.SetManifest(m)

	return s.saveJar(a)
}
