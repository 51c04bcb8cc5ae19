package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeStage struct {
	base
	runs        int
	outputAtRun bool
	fail        error
	during      func() error
}

func newFake(dir, name, value string, needs ...string) *fakeStage {
	return &fakeStage{base: base{
		name:   name,
		needs:  needs,
		output: &Artifact{Name: name, Path: filepath.Join(dir, name+".txt")},
		inputs: []SideInput{ValueInput("value", value)},
	}}
}

func (f *fakeStage) Run(_ context.Context, _ *RunState) error {
	f.runs++
	f.outputAtRun = f.output.Exists()

	if f.during != nil {
		if err := f.during(); err != nil {
			return err
		}
	}

	if f.fail != nil {
		return f.fail
	}

	return f.saveFile([]byte(f.name))
}

// chain returns A -> B -> C -> D.
func chain(t *testing.T) (*Pipeline, map[string]*fakeStage) {
	t.Helper()

	dir := t.TempDir()
	stages := map[string]*fakeStage{
		"A": newFake(dir, "A", "1"),
		"B": newFake(dir, "B", "1", "A"),
		"C": newFake(dir, "C", "1", "B"),
		"D": newFake(dir, "D", "1", "C"),
	}

	p, err := New([]Stage{stages["D"], stages["C"], stages["B"], stages["A"]}, Options{})
	require.NoError(t, err)

	return p, stages
}

func names(p *Pipeline) []string {
	var out []string
	for _, s := range p.Stages() {
		out = append(out, s.Name())
	}

	return out
}

func TestPipeline_OrdersByNeeds(t *testing.T) {
	p, _ := chain(t)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(p))
	assert.Equal(t, []int{0, 1, 2, 3}, p.waves)
}

func TestPipeline_RunsOnlyWhatIsStale(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, stages := chain(t)
	ctx := context.Background()

	report, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, report.Ran())
	assert.NotEmpty(t, report.RunID)

	a, _ := report.Stage("A")
	assert.Equal(t, "output missing", a.Reason)

	report, err = p.Run(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Ran(), "everything is up to date")

	for _, s := range stages {
		assert.Equal(t, 1, s.runs, s.name)
	}
}

func TestPipeline_DirtyStageForcesLaterStages(t *testing.T) {
	p, stages := chain(t)
	ctx := context.Background()

	_, err := p.Run(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(stages["B"].output.Path))

	report, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, report.Ran())

	b, _ := report.Stage("B")
	assert.Equal(t, "output missing", b.Reason)

	c, _ := report.Stage("C")
	assert.Equal(t, "after dirty stage B", c.Reason)

	assert.Equal(t, 1, stages["A"].runs)
	assert.Equal(t, 2, stages["D"].runs)
	assert.False(t, stages["D"].outputAtRun, "stale outputs are deleted before the run")
	assert.True(t, stages["D"].output.Dirty)
	assert.False(t, stages["A"].output.Dirty)
}

func TestPipeline_FingerprintChange(t *testing.T) {
	p, stages := chain(t)
	ctx := context.Background()

	_, err := p.Run(ctx, false)
	require.NoError(t, err)

	stages["C"].inputs = []SideInput{ValueInput("value", "2")}

	report, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, report.Ran())

	c, _ := report.Stage("C")
	assert.Equal(t, "fingerprint changed", c.Reason)
}

func TestPipeline_Refresh(t *testing.T) {
	p, _ := chain(t)
	ctx := context.Background()

	_, err := p.Run(ctx, false)
	require.NoError(t, err)

	report, err := p.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, report.Ran())

	a, _ := report.Stage("A")
	assert.Equal(t, "refresh requested", a.Reason)
}

func TestPipeline_PropagatesAcrossBranches(t *testing.T) {
	dir := t.TempDir()
	left := newFake(dir, "left", "1")
	right := newFake(dir, "right", "1")
	join := newFake(dir, "join", "1", "left", "right")

	p, err := New([]Stage{left, right, join}, Options{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Run(ctx, false)
	require.NoError(t, err)

	require.NoError(t, left.output.Remove())

	report, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "join"}, report.Ran(), "right comes after left in the fixed order")
}

func TestPipeline_StagesOfOneWaveRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()

	var started sync.WaitGroup
	started.Add(2)

	barrier := func() error {
		started.Done()

		done := make(chan struct{})
		go func() {
			started.Wait()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("sibling stage never started")
		}
	}

	left := newFake(dir, "left", "1")
	left.during = barrier
	right := newFake(dir, "right", "1")
	right.during = barrier

	p, err := New([]Stage{left, right}, Options{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), false)
	require.NoError(t, err)
}

func TestPipeline_StageFailure(t *testing.T) {
	p, stages := chain(t)
	boom := errors.New("boom")
	stages["C"].fail = boom

	report, err := p.Run(context.Background(), false)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "C", se.Stage)
	assert.Equal(t, "C", se.Artifact)

	assert.Equal(t, 0, stages["D"].runs)
	assert.False(t, stages["C"].output.Exists())

	assert.Equal(t, []string{"A", "B"}, report.Ran(), "failed and aborted stages did not run")

	c, _ := report.Stage("C")
	assert.True(t, c.Scheduled)
	assert.False(t, c.Ran)

	d, _ := report.Stage("D")
	assert.True(t, d.Scheduled)
	assert.False(t, d.Ran)
}

func TestPipeline_SideInputFileMissing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(in, []byte("v1"), 0o644))

	s := newFake(dir, "A", "1")
	s.inputs = append(s.inputs, FileInput(in))

	p, err := New([]Stage{s}, Options{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(in, []byte("v2"), 0o644))

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, report.Ran())

	require.NoError(t, os.Remove(in))

	_, err = p.Run(context.Background(), false)
	require.ErrorIs(t, err, ErrStageIO)
}

func TestNew_Rejects(t *testing.T) {
	dir := t.TempDir()

	_, err := New([]Stage{newFake(dir, "A", "1", "B"), newFake(dir, "B", "1", "A")}, Options{})
	require.ErrorIs(t, err, ErrCycle)

	_, err = New([]Stage{newFake(dir, "A", "1", "missing")}, Options{})
	require.ErrorIs(t, err, ErrUnknownStage)

	_, err = New([]Stage{newFake(dir, "A", "1"), newFake(dir, "A", "2")}, Options{})
	require.Error(t, err)
}

func TestTopoSort_Order(t *testing.T) {
	order, err := topoSort(4, func(i int) []int {
		switch i {
		case 0:
			return []int{2}
		case 1:
			return nil
		case 3:
			return []int{1}
		default:
			return nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0, 3}, order)
}

func TestTopoSort_Errors(t *testing.T) {
	_, err := topoSort(2, func(i int) []int { return []int{1 - i} })
	require.ErrorIs(t, err, ErrCycle)

	_, err = topoSort(1, func(int) []int { return []int{5} })
	require.Error(t, err)

	order, err := topoSort(0, nil)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint("stage", []SideInput{ValueInput("k", "1")})
	require.NoError(t, err)
	assert.Regexp(t, `^`+Version+`\+[0-9a-f]{16}$`, a)

	b, err := Fingerprint("stage", []SideInput{ValueInput("k", "2")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	c, err := Fingerprint("other", []SideInput{ValueInput("k", "1")})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "the stage name is part of the fingerprint")

	_, err = Fingerprint("stage", []SideInput{FileInput(filepath.Join(t.TempDir(), "nope"))})
	require.Error(t, err)
}

func TestLayout(t *testing.T) {
	l := Layout{GlobalDir: "/cache", ProjectDir: "/project", Version: "1.20.1"}

	g := l.Jar("merged", ScopeGlobal)
	assert.Equal(t, filepath.Join("/cache", "1.20.1", "merged.jar"), g.Path)
	assert.Equal(t, "merged", g.Name)
	assert.True(t, g.IsJar())

	f := l.File("mappings.tiny", ScopeProject)
	assert.Equal(t, filepath.Join("/project", "1.20.1", "mappings.tiny"), f.Path)
	assert.Equal(t, "mappings", f.Name)
	assert.False(t, f.IsJar())
	assert.Equal(t, "project", f.Scope.String())
}
