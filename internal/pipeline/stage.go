package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"jarsmith/internal/jar"
	"jarsmith/internal/mapping"
)

// Stage is one step of a pipeline.
type Stage interface {
	// Name identifies the stage. Names are unique within a pipeline.
	Name() string
	// Needs lists the stages whose outputs this stage reads.
	Needs() []string
	// Outputs lists the artifacts the stage writes.
	Outputs() []*Artifact
	// IsDirty reports whether the stage must run, and why.
	IsDirty(rs *RunState) (bool, string)
	// Run produces the outputs.
	Run(ctx context.Context, rs *RunState) error
}

// RunState is shared by the stages of one run.
type RunState struct {
	// ID identifies the run in logs.
	ID      string
	Refresh bool
	Workers int
	Logger  *zap.Logger

	dirty map[string]bool

	mu    sync.Mutex
	trees map[string]*mapping.Tree
}

func newRunState(id string, refresh bool, workers int, logger *zap.Logger) *RunState {
	return &RunState{
		ID:      id,
		Refresh: refresh,
		Workers: workers,
		Logger:  logger,
		dirty:   make(map[string]bool),
		trees:   make(map[string]*mapping.Tree),
	}
}

// Dirty reports whether a stage was scheduled to run. The answer is fixed before any stage runs.
func (rs *RunState) Dirty(stage string) bool {
	return rs.dirty[stage]
}

// Tree loads a tiny mapping file once per run. Callers must not modify the returned tree.
func (rs *RunState) Tree(path string) (*mapping.Tree, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if t, ok := rs.trees[path]; ok {
		return t, nil
	}

	t, err := mapping.LoadFile(path)
	if err != nil {
		return nil, ioError("load mappings", err)
	}

	rs.trees[path] = t

	return t, nil
}

// base implements the bookkeeping shared by all stages: one output artifact and a fingerprint
// over side inputs.
type base struct {
	name   string
	needs  []string
	output *Artifact
	inputs []SideInput
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Needs() []string {
	return b.needs
}

func (b *base) Outputs() []*Artifact {
	return []*Artifact{b.output}
}

func (b *base) fingerprint() (string, error) {
	return Fingerprint(b.name, b.inputs)
}

func (b *base) IsDirty(rs *RunState) (bool, string) {
	if rs.Refresh {
		return true, "refresh requested"
	}

	for _, n := range b.needs {
		if rs.Dirty(n) {
			return true, "upstream " + n + " is dirty"
		}
	}

	if !b.output.Exists() {
		return true, "output missing"
	}

	want, err := b.fingerprint()
	if err != nil {
		return true, err.Error()
	}

	have, err := b.output.Fingerprint()
	if err != nil {
		return true, "unreadable fingerprint: " + err.Error()
	}

	if have != want {
		return true, "fingerprint changed"
	}

	return false, ""
}

// saveJar tags the archive with the stage fingerprint and writes it to the output path.
func (b *base) saveJar(a *jar.Archive) error {
	fp, err := b.fingerprint()
	if err != nil {
		return ioError("fingerprint side inputs", err)
	}

	if err := a.SetTag(fp); err != nil {
		return fmt.Errorf("failed to tag %s: %w", b.output.Name, err)
	}

	if err := a.Write(b.output.Path); err != nil {
		return ioError("write "+b.output.Name, err)
	}

	return nil
}

// saveFile writes data to the output path and the fingerprint to its sidecar. The sidecar is
// written last, so a crash in between leaves a file whose fingerprint does not match.
func (b *base) saveFile(data []byte) error {
	fp, err := b.fingerprint()
	if err != nil {
		return ioError("fingerprint side inputs", err)
	}

	if err := writeFile(b.output.Path, data); err != nil {
		return ioError("write "+b.output.Name, err)
	}

	if err := writeFile(b.output.sidecar(), []byte(fp+"\n")); err != nil {
		return ioError("write fingerprint of "+b.output.Name, err)
	}

	return nil
}

func readJar(a *Artifact) (*jar.Archive, error) {
	out, err := jar.Read(a.Path)
	if err != nil {
		return nil, ioError("read "+a.Name, err)
	}

	return out, nil
}

func readInputJar(path string) (*jar.Archive, error) {
	out, err := jar.Read(path)
	if err != nil {
		return nil, ioError("read input", err)
	}

	return out, nil
}

func writeFile(path string, data []byte) error {
	return jar.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
