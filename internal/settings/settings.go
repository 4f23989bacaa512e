// Package settings resolves the environment and project file into the inputs
// of the configuration builder and the assets pipeline.
package settings

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/cozy/cozy-build/internal/buildconfig"
)

// Settings are the raw values gathered from flags and environment variables.
type Settings struct {
	ProjectDir       string
	Mode             buildconfig.Mode
	Debug            bool
	EnabledFlags     []string
	FilenameTemplate string
	InjectStyles     bool
}

// Resolved is everything a build needs, with project paths made absolute.
type Resolved struct {
	ProjectRoot string
	Env         buildconfig.Env
	Builder     buildconfig.Builder
	Project     Project
}

// Configuration builds the configuration for the resolved environment.
func (r Resolved) Configuration() buildconfig.Configuration {
	return r.Builder.Build(r.Env)
}

// Resolve combines s with the project file found in s.ProjectDir.
func Resolve(s Settings) (Resolved, error) {
	root, err := filepath.Abs(s.ProjectDir)
	if err != nil {
		return Resolved{}, err
	}

	project, err := LoadProject(filepath.Join(root, ProjectFile))
	if err != nil {
		return Resolved{}, err
	}

	project.SrcDir = absJoin(root, project.SrcDir)
	project.NodeModulesDir = absJoin(root, project.NodeModulesDir)
	project.OutputDir = absJoin(root, project.OutputDir)
	if project.HTMLTemplate != "" {
		project.HTMLTemplate = absJoin(root, project.HTMLTemplate)
	}
	for i, entry := range project.Entries {
		project.Entries[i] = absJoin(root, entry)
	}

	builder := buildconfig.NewBuilder(buildconfig.Paths{
		SrcDir:         project.SrcDir,
		NodeModulesDir: project.NodeModulesDir,
	})
	if project.ScriptTarget != "" {
		builder.ScriptTarget = project.ScriptTarget
	}
	if len(project.StyleEngines) > 0 {
		engines := project.StyleEngines
		builder.StylePlugins = func(buildconfig.Env) []buildconfig.StyleStep {
			return []buildconfig.StyleStep{{Kind: buildconfig.StepPrefix, Engines: engines}}
		}
	}

	template := s.FilenameTemplate
	if template == "" {
		template = "app"
	}

	return Resolved{
		ProjectRoot: root,
		Env: buildconfig.Env{
			Mode:             s.Mode,
			Debug:            s.Debug,
			EnabledFlags:     NormalizeFlags(s.EnabledFlags),
			FilenameTemplate: template,
			StyleLoader:      buildconfig.StyleLoaderFor(s.Mode, s.InjectStyles),
		},
		Builder: builder,
		Project: project,
	}, nil
}

// NormalizeFlags trims flag names and drops blanks and repeats, keeping the
// first occurrence order.
func NormalizeFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		f = strings.TrimSpace(f)
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func absJoin(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
