package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jarsmith/internal/config"
	"jarsmith/internal/diagnostic"
	"jarsmith/internal/logging"
	"jarsmith/internal/mapping"
	"jarsmith/internal/merge"
)

// MappingsStage assembles the mapping tree from the base file and the secondary documents.
type MappingsStage struct {
	base
	cfg config.Mappings
}

// NewMappingsStage returns the stage writing the merged tree to out.
func NewMappingsStage(out *Artifact, cfg config.Mappings) *MappingsStage {
	s := &MappingsStage{
		base: base{name: "merge-mappings", output: out},
		cfg:  cfg,
	}

	s.inputs = append(s.inputs, FileInput(cfg.Base))

	for _, m := range cfg.Merges {
		s.inputs = append(s.inputs,
			FileInput(m.File),
			ValueInput("merge:"+m.File, m.Format, m.From, m.To, m.Fallback, m.JoinKey,
				fmt.Sprint(m.Lenient), fmt.Sprint(m.Overwrite)))
	}

	s.inputs = append(s.inputs, ValueInput("inherit", cfg.InheritInnerClasses...))

	if cfg.Migration != "" {
		s.inputs = append(s.inputs, FileInput(cfg.Migration), ValueInput("migration", cfg.MigrationNamespace))
	}

	return s
}

func (s *MappingsStage) Run(_ context.Context, rs *RunState) error {
	tree, diags, err := BuildTree(s.cfg, rs.Logger)
	if err != nil {
		return err
	}

	for _, w := range diags.Warnings {
		rs.Logger.Warn(w.String(), zap.String("code", w.Code))
	}

	data, err := mapping.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to serialize mappings: %w", err)
	}

	return s.saveFile(data)
}

// BuildTree loads the base tree and applies every configured merge, inner class inheritance and
// field migration, in that order. Warnings of lenient merges are collected, not returned as errors.
func BuildTree(cfg config.Mappings, logger *zap.Logger) (*mapping.Tree, *diagnostic.Diagnostics, error) {
	logger = logging.OrNop(logger)
	diags := &diagnostic.Diagnostics{}

	tree, err := mapping.LoadFile(cfg.Base)
	if err != nil {
		return nil, diags, ioError("load base mappings", err)
	}

	for _, m := range cfg.Merges {
		doc, err := LoadDocument(m)
		if err != nil {
			return nil, diags, err
		}

		merged, d, err := merge.MergeNamespace(tree, doc, merge.Options{
			JoinNamespace:               m.From,
			TargetNamespace:             m.To,
			JoinKey:                     JoinKey(m.JoinKey),
			TryMatchRegardlessOfRenames: m.Fallback != "",
			FallbackNamespace:           m.Fallback,
			Lenient:                     m.Lenient,
			Overwrite:                   m.Overwrite,
			Logger:                      logger,
		})
		if err != nil {
			return nil, diags, fmt.Errorf("failed to merge %s: %w", m.File, err)
		}

		diags.Merge(*d)
		tree = merged
	}

	src := tree.SrcNamespace()

	for _, ns := range cfg.InheritInnerClasses {
		n, err := merge.InheritInnerClassNames(tree, src, ns)
		if err != nil {
			return nil, diags, err
		}

		logger.Debug("inherited inner class names", zap.String("namespace", ns), zap.Int("classes", n))
	}

	if cfg.Migration != "" {
		table, err := merge.LoadMigrationTable(cfg.Migration)
		if err != nil {
			return nil, diags, ioError("load migration table", err)
		}

		n, d, err := merge.MigrateFieldDescriptors(tree, cfg.MigrationNamespace, table)
		if err != nil {
			return nil, diags, err
		}

		diags.Merge(*d)
		logger.Debug("migrated field descriptors", zap.Int("fields", n))
	}

	return tree, diags, nil
}

// LoadDocument reads a secondary mapping document in the merge's format.
func LoadDocument(m config.Merge) (*merge.Document, error) {
	switch m.Format {
	case "tsrg":
		t, err := mapping.LoadTSRGFile(m.File, m.From, m.To)
		if err != nil {
			return nil, ioError("load "+m.File, err)
		}

		return merge.FromTree(t, m.From, m.To)
	case "csv":
		entries, err := mapping.LoadNameTableFile(m.File)
		if err != nil {
			return nil, ioError("load "+m.File, err)
		}

		return merge.FromNameTable(entries, m.From, m.To), nil
	default:
		t, err := mapping.LoadFile(m.File)
		if err != nil {
			return nil, ioError("load "+m.File, err)
		}

		return merge.FromTree(t, m.From, m.To)
	}
}

// JoinKey returns the join key function of a configured join_key value.
func JoinKey(name string) merge.JoinKeyFunc {
	switch name {
	case config.JoinIgnoreFieldDesc:
		return merge.IgnoreFieldDescriptor
	case config.JoinMemberNameOnly:
		return merge.MemberNameOnly
	default:
		return merge.ExactKey
	}
}
