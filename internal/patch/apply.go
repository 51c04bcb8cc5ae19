package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"jarsmith/internal/jar"
	"jarsmith/internal/logging"
	"jarsmith/internal/toolexec"
)

// Stats counts the classes touched by a patch run.
type Stats struct {
	Patched int
	Created int
}

// ApplyOptions configures ApplyJar and ApplyArchive.
type ApplyOptions struct {
	// Workers bounds the number of classes patched concurrently. Defaults to GOMAXPROCS.
	Workers int
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// ApplyArchive patches the classes of a in place. Every record is checked before the archive is
// modified: a checksum mismatch or a record for a missing class leaves a untouched.
//
// A record reads the clean bytes of its source class. When the source differs from the target,
// the result is stored under the target entry and the source entry is left as it was.
func ApplyArchive(ctx context.Context, a *jar.Archive, set *Set, opts ApplyOptions) (Stats, error) {
	var stats Stats

	// results of records that do not patch their own entry in place
	moved := jar.New()

	for _, entry := range set.Entries() {
		rec := set.records[entry]

		if src := rec.SourceEntry(); rec.Exists && src != entry {
			clean, ok := a.Get(src)
			if !ok {
				return stats, fmt.Errorf("%w: %s (source of %s)", ErrMissingClass, src, entry)
			}

			out, err := rec.Apply(clean)
			if err != nil {
				return stats, err
			}

			moved.Put(entry, out)

			continue
		}

		if a.Has(entry) {
			continue
		}

		if rec.Exists {
			return stats, fmt.Errorf("%w: %s", ErrMissingClass, entry)
		}

		out, err := rec.Apply(nil)
		if err != nil {
			return stats, err
		}

		moved.Put(entry, out)
	}

	patched := a.Clone()

	err := jar.TransformClasses(ctx, patched, opts.Workers, func(_ context.Context, name string, data []byte) ([]byte, error) {
		rec, ok := set.Get(name)
		if !ok || moved.Has(name) {
			return data, nil
		}

		return rec.Apply(data)
	})
	if err != nil {
		return stats, err
	}

	for _, entry := range patched.Names() {
		data, _ := patched.Get(entry)
		if _, ok := set.Get(entry); ok && !moved.Has(entry) {
			stats.Patched++
		}

		a.Put(entry, data)
	}

	for _, entry := range moved.Names() {
		data, _ := moved.Get(entry)
		if set.records[entry].Exists {
			stats.Patched++
		} else {
			stats.Created++
		}

		a.Put(entry, data)
	}

	logging.OrNop(opts.Logger).Debug("applied binary patches",
		zap.String("side", set.Side),
		zap.Int("patched", stats.Patched),
		zap.Int("created", stats.Created))

	return stats, nil
}

// ApplyJar patches the jar at input and writes the result to output. Nothing is written unless
// every record applies, so a checksum mismatch leaves no output file.
func ApplyJar(ctx context.Context, input, output string, set *Set, opts ApplyOptions) (Stats, error) {
	a, err := jar.Read(input)
	if err != nil {
		return Stats{}, err
	}

	stats, err := ApplyArchive(ctx, a, set, opts)
	if err != nil {
		return stats, err
	}

	if err := a.Write(output); err != nil {
		return stats, fmt.Errorf("failed to write patched jar: %w", err)
	}

	return stats, nil
}

// ConsolePatcher applies modern patch bundles with an external tool invoked as
//
//	<Tool> <Args...> --clean <input> --output <output> --apply <patches>
//
// The tool only writes the classes it patched; callers union the result with the clean jar.
type ConsolePatcher struct {
	Runner toolexec.Runner
	Tool   string
	Args   []string
	Logger *zap.Logger
}

// Patch runs the tool and waits for it. On failure the output file is removed.
func (p *ConsolePatcher) Patch(ctx context.Context, input, output, patches string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := append(append([]string(nil), p.Args...),
		"--clean", input,
		"--output", output,
		"--apply", patches)

	logging.OrNop(p.Logger).Debug("running patch tool", zap.String("tool", p.Tool), zap.Strings("args", args))

	if _, err := p.Runner.Run(ctx, p.Tool, args...); err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("%w: %w", ErrToolFailed, err)
	}

	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("%w: no output written: %w", ErrToolFailed, err)
	}

	return nil
}
