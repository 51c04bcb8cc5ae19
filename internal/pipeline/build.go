package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"jarsmith/internal/config"
	"jarsmith/internal/patch"
	"jarsmith/internal/toolexec"
	"jarsmith/internal/transform"
)

// Stage names of a built pipeline. Per-variant stages carry a "-client" or "-server" suffix.
const (
	StageMergeMappings   = "merge-mappings"
	StageStrip           = "strip-unreachable"
	StageRemapIntermed   = "remap-intermediate"
	StagePatch           = "apply-binary-patches"
	StageCopyMissing     = "copy-missing-classes"
	StageStripParameters = "strip-synthetic-parameter-names"
	StageFixAnnotations  = "fix-parameter-annotation-counts"
	StageMergeVariants   = "merge-variants"
	StageAccess          = "apply-access-transforms"
	StageRemapFinal      = "remap-final"
	StageTag             = "tag-with-pipeline-version"
)

// BuildOptions carries the collaborators Build cannot derive from the configuration.
type BuildOptions struct {
	// Runner starts the console patch tool. Defaults to an OS runner.
	Runner toolexec.Runner
	// Hook observes renames of both remap stages. May be nil.
	Hook   transform.DebugHook
	Logger *zap.Logger
}

// Build composes the stages described by cfg:
//
//	merge-mappings
//	per variant: strip-unreachable -> remap-intermediate -> apply-binary-patches ->
//	             copy-missing-classes -> strip-synthetic-parameter-names ->
//	             fix-parameter-annotation-counts
//	merge-variants -> apply-access-transforms -> remap-final -> tag-with-pipeline-version
//
// The server variant is only built when cfg names a server jar.
func Build(cfg *config.Config, opts BuildOptions) (*Pipeline, error) {
	if opts.Runner == nil {
		opts.Runner = toolexec.NewOSRunner()
	}

	layout := Layout{GlobalDir: cfg.Cache.Global, ProjectDir: cfg.Cache.Project, Version: cfg.Version}
	ns := cfg.Namespaces

	mappingsOut := layout.File("mappings.tiny", ScopeGlobal)
	stages := []Stage{NewMappingsStage(mappingsOut, cfg.Mappings)}

	var patcher *patch.ConsolePatcher
	if cfg.PatchFormat == config.PatchConsole && cfg.Tools.Patcher != "" {
		patcher = &patch.ConsolePatcher{
			Runner: opts.Runner,
			Tool:   cfg.Tools.Java,
			Args:   append([]string{"-jar", cfg.Tools.Patcher}, cfg.Tools.PatcherArgs...),
		}
	}

	sides, err := sideVocabulary(cfg.SideAnnotations)
	if err != nil {
		return nil, err
	}

	variants := map[string]string{patch.SideClient: cfg.Inputs.Client}
	if cfg.Inputs.Server != "" {
		variants[patch.SideServer] = cfg.Inputs.Server
	}

	finals := make(map[string]*Artifact)

	for _, side := range []string{patch.SideClient, patch.SideServer} {
		input, ok := variants[side]
		if !ok {
			continue
		}

		name := func(stage string) string { return stage + "-" + side }
		art := func(suffix string) *Artifact { return layout.Jar(side+"-"+suffix, ScopeGlobal) }

		stripped := art("stripped")
		intermediate := art(ns.Intermediate)
		patched := art("patched")
		complete := art("complete")
		params := art("params")
		fixed := art("fixed")

		stripParams, err := NewStripParametersStage(name(StageStripParameters), []string{name(StageCopyMissing)},
			complete, params, cfg.SyntheticParameterPatterns)
		if err != nil {
			return nil, err
		}

		remap := NewRemapStage(name(StageRemapIntermed), []string{name(StageStrip), StageMergeMappings},
			stripped, mappingsOut, intermediate, ns.Official, ns.Intermediate)
		remap.Hook = opts.Hook

		stages = append(stages,
			NewStripStage(name(StageStrip), input, stripped, cfg.Strip.Include, cfg.Strip.Exclude),
			remap,
			NewPatchStage(name(StagePatch), []string{name(StageRemapIntermed)},
				intermediate, patched, side, cfg.PatchFormat, cfg.Inputs.Patches, patcher),
			NewUnionStage(name(StageCopyMissing), []string{name(StagePatch)}, patched, intermediate, complete),
			stripParams,
			NewFixAnnotationsStage(name(StageFixAnnotations), []string{name(StageStripParameters)}, params, fixed),
		)

		finals[side] = fixed
	}

	mergeNeeds := []string{StageFixAnnotations + "-" + patch.SideClient}
	if finals[patch.SideServer] != nil {
		mergeNeeds = append(mergeNeeds, StageFixAnnotations+"-"+patch.SideServer)
	}

	merged := layout.Jar("merged", ScopeGlobal)
	accessed := layout.Jar(cfg.Project+"-access", ScopeProject)
	final := layout.Jar(cfg.Project+"-"+ns.Final, ScopeProject)
	tagged := layout.Jar(cfg.Project+"-"+cfg.Version, ScopeProject)

	remapFinal := NewRemapStage(StageRemapFinal, []string{StageAccess, StageMergeMappings},
		accessed, mappingsOut, final, ns.Intermediate, ns.Final)
	remapFinal.Hook = opts.Hook

	stages = append(stages,
		NewMergeStage(StageMergeVariants, mergeNeeds, finals[patch.SideClient], finals[patch.SideServer],
			merged, cfg.Merge, sides, alternates(sides)...),
		NewAccessStage(StageAccess, []string{StageMergeVariants, StageMergeMappings},
			merged, mappingsOut, accessed, cfg.Inputs.AccessTransformers, ns.Access, ns.Intermediate),
		remapFinal,
		NewTagStage(StageTag, []string{StageRemapFinal}, final, tagged, cfg.Version),
	)

	return New(stages, Options{Workers: cfg.Workers, Logger: opts.Logger})
}

// Output returns the artifact of the final stage.
func (p *Pipeline) Output() *Artifact {
	if len(p.stages) == 0 {
		return nil
	}

	return p.stages[len(p.stages)-1].Outputs()[0]
}

func sideVocabulary(name string) (transform.SideVocabulary, error) {
	switch name {
	case config.SidesFabric:
		return transform.FabricSides, nil
	case config.SidesForge:
		return transform.ForgeSides, nil
	case config.SidesLegacyForge:
		return transform.LegacyForgeSides, nil
	default:
		return transform.SideVocabulary{}, fmt.Errorf("unknown side annotations %q", name)
	}
}

// alternates returns the vocabularies other than canonical, which are rewritten into it.
func alternates(canonical transform.SideVocabulary) []transform.SideVocabulary {
	var out []transform.SideVocabulary

	for _, v := range []transform.SideVocabulary{transform.FabricSides, transform.ForgeSides, transform.LegacyForgeSides} {
		if v != canonical {
			out = append(out, v)
		}
	}

	return out
}
