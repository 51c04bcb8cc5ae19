package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jarsmith/internal/jar"
)

// Scope selects the cache directory an artifact lives in.
type Scope int

const (
	// ScopeGlobal artifacts depend only on the game version and are shared between projects.
	ScopeGlobal Scope = iota
	// ScopeProject artifacts depend on project inputs such as access transformers.
	ScopeProject
)

func (s Scope) String() string {
	if s == ScopeProject {
		return "project"
	}

	return "global"
}

// Artifact is a file produced by a stage.
type Artifact struct {
	Name  string
	Scope Scope
	Path  string
	// Dirty is set by the runner when the producing stage is scheduled to run.
	Dirty bool
}

// IsJar reports whether the artifact is a jar, which stores its fingerprint in the manifest.
func (a *Artifact) IsJar() bool {
	return strings.HasSuffix(a.Path, ".jar")
}

func (a *Artifact) sidecar() string {
	return a.Path + ".fingerprint"
}

// Exists reports whether the artifact file is present.
func (a *Artifact) Exists() bool {
	_, err := os.Stat(a.Path)
	return err == nil
}

// Fingerprint returns the stored fingerprint, or "" when none was written.
func (a *Artifact) Fingerprint() (string, error) {
	if a.IsJar() {
		return jar.ReadTag(a.Path)
	}

	data, err := os.ReadFile(a.sidecar())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// Remove deletes the artifact and its sidecar. Missing files are not an error.
func (a *Artifact) Remove() error {
	for _, p := range []string{a.Path, a.sidecar()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

// Layout names artifact paths: <scope dir>/<version>/<name><ext>.
type Layout struct {
	GlobalDir  string
	ProjectDir string
	Version    string
}

// Jar returns a jar artifact.
func (l Layout) Jar(name string, scope Scope) *Artifact {
	return l.File(name+".jar", scope)
}

// File returns an artifact with an explicit file name.
func (l Layout) File(file string, scope Scope) *Artifact {
	dir := l.GlobalDir
	if scope == ScopeProject {
		dir = l.ProjectDir
	}

	return &Artifact{
		Name:  strings.TrimSuffix(file, filepath.Ext(file)),
		Scope: scope,
		Path:  filepath.Join(dir, l.Version, file),
	}
}
