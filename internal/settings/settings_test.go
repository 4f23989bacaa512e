package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProject_Missing(t *testing.T) {
	project, err := LoadProject(filepath.Join(t.TempDir(), ProjectFile))
	require.NoError(t, err)
	assert.Equal(t, DefaultProject(), project)
}

func TestLoadProject_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	require.NoError(t, os.WriteFile(path, []byte("output: dist\nentries:\n  - src/targets/browser/index.js\nprecompress: true\n"), 0o600))

	project, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, "dist", project.OutputDir)
	assert.Equal(t, "src", project.SrcDir)
	assert.Equal(t, []string{"src/targets/browser/index.js"}, project.Entries)
	assert.True(t, project.Precompress)
}

func TestLoadProject_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	require.NoError(t, os.WriteFile(path, []byte("entries: {"), 0o600))

	_, err := LoadProject(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse project file")
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte("target: es2017\nengines: [safari10]\n"), 0o600))

	resolved, err := Resolve(Settings{
		ProjectDir:   dir,
		Mode:         buildconfig.ModeDevelopment,
		Debug:        true,
		EnabledFlags: []string{" offline ", "", "offline", "beta"},
		InjectStyles: true,
	})
	require.NoError(t, err)

	assert.Equal(t, buildconfig.Env{
		Mode:             buildconfig.ModeDevelopment,
		Debug:            true,
		EnabledFlags:     []string{"offline", "beta"},
		FilenameTemplate: "app",
		StyleLoader:      buildconfig.StyleInject,
	}, resolved.Env)

	assert.Equal(t, dir, resolved.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "build"), resolved.Project.OutputDir)
	assert.Equal(t, []string{filepath.Join(dir, "src", "main.js")}, resolved.Project.Entries)

	cfg := resolved.Configuration()
	assert.Equal(t, []string{filepath.Join(dir, "src"), filepath.Join(dir, "node_modules")}, cfg.Resolution.Modules)

	script := cfg.TransformRules[0].Use[0].(buildconfig.ScriptLoader)
	assert.Equal(t, "es2017", script.Target)

	postcss := cfg.TransformRules[1].Use[2].(buildconfig.PostCSSLoader)
	assert.Equal(t, []buildconfig.StyleStep{{Kind: buildconfig.StepPrefix, Engines: []string{"safari10"}}}, postcss.Plugins)
	assert.Equal(t, buildconfig.LoaderInject, cfg.TransformRules[1].Use[0].Kind())
}

func TestResolve_ProductionIgnoresInject(t *testing.T) {
	resolved, err := Resolve(Settings{
		ProjectDir:       t.TempDir(),
		Mode:             buildconfig.ModeProduction,
		FilenameTemplate: "drive",
		InjectStyles:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, buildconfig.StyleExtract, resolved.Env.StyleLoader)
	assert.Equal(t, "drive", resolved.Env.FilenameTemplate)
	assert.Empty(t, resolved.Env.EnabledFlags)
	assert.NotNil(t, resolved.Env.EnabledFlags)
}
