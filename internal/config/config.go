// Package config loads the YAML description of a jarsmith pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Merge strategies.
const (
	MergeStructural = "structural"
	MergeDuplicate  = "duplicate"
)

// Patch formats.
const (
	PatchLegacy  = "legacy"
	PatchConsole = "console"
)

// Side annotation vocabularies.
const (
	SidesFabric      = "fabric"
	SidesForge       = "forge"
	SidesLegacyForge = "legacy_forge"
)

// Join keys of secondary mapping documents.
const (
	JoinExact           = "exact"
	JoinIgnoreFieldDesc = "ignore_field_desc"
	JoinMemberNameOnly  = "member_name"
)

// Config is the pipeline configuration.
type Config struct {
	// Version is the game version. It names the cache directories.
	Version string `yaml:"version"`
	// PlatformVersion selects the patch format and merge strategy: 1 uses legacy patch archives
	// and a structural variant merge, 2 and later the console patcher and a duplicate merge.
	PlatformVersion int `yaml:"platform_version"`
	// Project names the project-scoped artifacts.
	Project string `yaml:"project,omitempty"`

	Cache      Cache      `yaml:"cache"`
	Inputs     Inputs     `yaml:"inputs"`
	Mappings   Mappings   `yaml:"mappings"`
	Namespaces Namespaces `yaml:"namespaces"`
	Strip      Strip      `yaml:"strip"`
	Tools      Tools      `yaml:"tools"`

	// Workers bounds per-class parallelism. 0 uses GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
	// SideAnnotations is the canonical side annotation vocabulary.
	SideAnnotations string `yaml:"side_annotations,omitempty"`
	// SyntheticParameterPatterns are regular expressions of parameter names to strip.
	SyntheticParameterPatterns []string `yaml:"synthetic_parameter_patterns,omitempty"`
	// PatchFormat and Merge override the choices implied by PlatformVersion.
	PatchFormat string `yaml:"patch_format,omitempty"`
	Merge       string `yaml:"merge,omitempty"`
}

// Cache holds the two cache roots.
type Cache struct {
	Global  string `yaml:"global"`
	Project string `yaml:"project"`
}

// Inputs are the files the pipeline consumes.
type Inputs struct {
	Client             string   `yaml:"client"`
	Server             string   `yaml:"server,omitempty"`
	Patches            string   `yaml:"patches,omitempty"`
	AccessTransformers []string `yaml:"access_transformers,omitempty"`
}

// Mappings describes how the mapping tree is assembled.
type Mappings struct {
	// Base is a tiny v2 file holding at least the official and intermediate namespaces.
	Base string `yaml:"base"`
	// Merges are joined onto the base tree in order.
	Merges []Merge `yaml:"merges,omitempty"`
	// InheritInnerClasses lists namespaces whose unmapped inner classes inherit their outer
	// class's name.
	InheritInnerClasses []string `yaml:"inherit_inner_classes,omitempty"`
	// Migration is an optional field descriptor migration table applied to MigrationNamespace.
	Migration          string `yaml:"migration,omitempty"`
	MigrationNamespace string `yaml:"migration_namespace,omitempty"`
}

// Merge is one secondary mapping document.
type Merge struct {
	File string `yaml:"file"`
	// Format is tiny, tsrg or csv. Defaults from the file extension.
	Format string `yaml:"format,omitempty"`
	// From is the namespace the document's source names are in; it must exist in the tree.
	From string `yaml:"from"`
	// To is the namespace added to the tree.
	To string `yaml:"to"`
	// Fallback enables tier-2 method matching through this namespace.
	Fallback  string `yaml:"fallback,omitempty"`
	JoinKey   string `yaml:"join_key,omitempty"`
	Lenient   bool   `yaml:"lenient,omitempty"`
	Overwrite bool   `yaml:"overwrite,omitempty"`
}

// Namespaces names the three namespaces the pipeline moves a jar through.
type Namespaces struct {
	Official     string `yaml:"official"`
	Intermediate string `yaml:"intermediate"`
	Final        string `yaml:"final"`
	// Access is the namespace access transformer files are written in.
	Access string `yaml:"access,omitempty"`
}

// Strip selects the entries StripUnreachable keeps.
type Strip struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Tools configures external processes.
type Tools struct {
	Java        string   `yaml:"java,omitempty"`
	Patcher     string   `yaml:"patcher,omitempty"`
	PatcherArgs []string `yaml:"patcher_args,omitempty"`
}

// LoadFile loads and parses a configuration file. Relative paths are resolved against the
// file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.resolve(filepath.Dir(path))

	return c, nil
}

// Parse parses YAML data into a Config, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var c Config

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(c *Config) {
	if c.PlatformVersion == 0 {
		c.PlatformVersion = 2
	}

	if c.Project == "" {
		c.Project = "project"
	}

	if c.Cache.Global == "" {
		c.Cache.Global = defaultGlobalCache()
	}

	if c.Cache.Project == "" {
		c.Cache.Project = filepath.Join(".jarsmith", "cache")
	}

	if c.Namespaces.Official == "" {
		c.Namespaces.Official = "official"
	}

	if c.Namespaces.Intermediate == "" {
		c.Namespaces.Intermediate = "intermediary"
	}

	if c.Namespaces.Final == "" {
		c.Namespaces.Final = "named"
	}

	if c.Namespaces.Access == "" {
		c.Namespaces.Access = c.Namespaces.Intermediate
	}

	if c.SideAnnotations == "" {
		c.SideAnnotations = SidesFabric
	}

	if len(c.Strip.Exclude) == 0 {
		c.Strip.Exclude = []string{"META-INF/*.SF", "META-INF/*.RSA", "META-INF/*.DSA", "META-INF/*.EC"}
	}

	if c.Tools.Java == "" {
		c.Tools.Java = "java"
	}

	if c.PatchFormat == "" {
		c.PatchFormat = PatchConsole
		if c.PlatformVersion == 1 {
			c.PatchFormat = PatchLegacy
		}
	}

	if c.Merge == "" {
		c.Merge = MergeDuplicate
		if c.PlatformVersion == 1 {
			c.Merge = MergeStructural
		}
	}

	for i := range c.Mappings.Merges {
		m := &c.Mappings.Merges[i]
		if m.Format == "" {
			m.Format = FormatOf(m.File)
		}

		if m.JoinKey == "" {
			m.JoinKey = JoinExact
			if m.Format == "csv" {
				// name tables carry no owners
				m.JoinKey = JoinMemberNameOnly
			}
		}
	}

	if c.Mappings.Migration != "" && c.Mappings.MigrationNamespace == "" {
		c.Mappings.MigrationNamespace = c.Namespaces.Final
	}
}

func defaultGlobalCache() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "jarsmith")
	}

	return filepath.Join(".jarsmith", "global")
}

// FormatOf infers a mapping document format from its file extension.
func FormatOf(file string) string {
	switch filepath.Ext(file) {
	case ".tsrg", ".srg":
		return "tsrg"
	case ".csv":
		return "csv"
	default:
		return "tiny"
	}
}

// Validate reports every missing or invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}

	if c.Inputs.Client == "" {
		errs = append(errs, errors.New("inputs.client is required"))
	}

	if c.Mappings.Base == "" {
		errs = append(errs, errors.New("mappings.base is required"))
	}

	if c.PlatformVersion < 1 {
		errs = append(errs, fmt.Errorf("platform_version %d is not supported", c.PlatformVersion))
	}

	if !slices.Contains([]string{PatchLegacy, PatchConsole}, c.PatchFormat) {
		errs = append(errs, fmt.Errorf("unknown patch_format %q", c.PatchFormat))
	}

	if !slices.Contains([]string{MergeStructural, MergeDuplicate}, c.Merge) {
		errs = append(errs, fmt.Errorf("unknown merge %q", c.Merge))
	}

	if c.Merge == MergeStructural && c.Inputs.Server == "" {
		errs = append(errs, errors.New("structural merge needs inputs.server"))
	}

	if c.PatchFormat == PatchConsole && c.Inputs.Patches != "" && c.Tools.Patcher == "" {
		errs = append(errs, errors.New("console patches need tools.patcher"))
	}

	if !slices.Contains([]string{SidesFabric, SidesForge, SidesLegacyForge}, c.SideAnnotations) {
		errs = append(errs, fmt.Errorf("unknown side_annotations %q", c.SideAnnotations))
	}

	for i, m := range c.Mappings.Merges {
		if m.File == "" || m.From == "" || m.To == "" {
			errs = append(errs, fmt.Errorf("mappings.merges[%d]: file, from and to are required", i))
		}

		if !slices.Contains([]string{"tiny", "tsrg", "csv"}, m.Format) {
			errs = append(errs, fmt.Errorf("mappings.merges[%d]: unknown format %q", i, m.Format))
		}

		if !slices.Contains([]string{JoinExact, JoinIgnoreFieldDesc, JoinMemberNameOnly}, m.JoinKey) {
			errs = append(errs, fmt.Errorf("mappings.merges[%d]: unknown join_key %q", i, m.JoinKey))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	abs(&c.Cache.Project)
	abs(&c.Inputs.Client)
	abs(&c.Inputs.Server)
	abs(&c.Inputs.Patches)
	abs(&c.Mappings.Base)
	abs(&c.Mappings.Migration)

	for i := range c.Inputs.AccessTransformers {
		abs(&c.Inputs.AccessTransformers[i])
	}

	for i := range c.Mappings.Merges {
		abs(&c.Mappings.Merges[i].File)
	}
}

// Marshal serializes a Config to YAML.
func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
