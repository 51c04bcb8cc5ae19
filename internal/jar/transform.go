package jar

import (
	"context"
	"fmt"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// ClassFunc transforms the bytes of one class file entry. Returning nil data deletes the entry.
type ClassFunc func(ctx context.Context, name string, data []byte) ([]byte, error)

// TransformClasses runs fn over every class file of the archive on at most workers goroutines
// (GOMAXPROCS when workers <= 0) and stores the results. The first error cancels the remaining
// tasks and is returned; the archive is only modified when every task succeeded.
func TransformClasses(ctx context.Context, a *Archive, workers int, fn ClassFunc) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	names := a.Classes()
	results := make([][]byte, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		data := a.entries[name]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out, err := fn(gctx, name, data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			results[i] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		if results[i] == nil {
			delete(a.entries, name)
			continue
		}

		a.entries[name] = results[i]
	}

	return nil
}

// Union copies every entry of secondary that primary lacks into primary and returns the number
// of copied entries.
func Union(primary, secondary *Archive) int {
	n := 0

	for name, data := range secondary.entries {
		if _, ok := primary.entries[name]; ok {
			continue
		}

		primary.entries[name] = data
		n++
	}

	return n
}

// Filter returns the entries of a whose names match at least one include pattern and no exclude
// pattern. Patterns use doublestar syntax ("net/minecraft/**", "**/*.class"). An empty include
// list keeps everything.
func Filter(a *Archive, include, exclude []string) (*Archive, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	out := New()

	for name, data := range a.entries {
		if len(include) > 0 && !matchAny(include, name) {
			continue
		}

		if matchAny(exclude, name) {
			continue
		}

		out.entries[name] = data
	}

	return out, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// patterns were validated by Filter
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}

	return false
}
