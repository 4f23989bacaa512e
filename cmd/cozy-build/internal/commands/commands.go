package commands

import (
	"path/filepath"

	"github.com/cozy/cozy-build/internal/assets"
	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/cozy/cozy-build/internal/settings"
)

type Globals struct {
	Debug   bool
	Version string
}

// SettingsFlags are the environment derived inputs shared by every command.
type SettingsFlags struct {
	Dir          string   `help:"project directory" default:"." type:"existingdir" env:"COZY_BUILD_DIR"`
	Mode         string   `help:"build mode" default:"development" enum:"development,production" env:"NODE_ENV"`
	Flags        []string `help:"feature flags compiled into the build" env:"COZY_FLAGS"`
	Filename     string   `help:"base name of extracted stylesheets" default:"app" env:"COZY_BUILD_FILENAME"`
	InjectStyles bool     `help:"inject stylesheets from scripts instead of extracting them (development only)" env:"COZY_BUILD_INJECT_STYLES"`
}

func (s SettingsFlags) resolve(globals *Globals) (settings.Resolved, error) {
	return settings.Resolve(settings.Settings{
		ProjectDir:       s.Dir,
		Mode:             buildconfig.Mode(s.Mode),
		Debug:            globals.Debug,
		EnabledFlags:     s.Flags,
		FilenameTemplate: s.Filename,
		InjectStyles:     s.InjectStyles,
	})
}

func newPipeline(resolved settings.Resolved) (*assets.Pipeline, error) {
	project := resolved.Project
	return assets.New(assets.Config{
		EntryPoints:  project.Entries,
		WorkingDir:   resolved.ProjectRoot,
		OutputDir:    project.OutputDir,
		MetafilePath: filepath.Join(project.OutputDir, "meta.json"),
		HTMLTemplate: project.HTMLTemplate,
		Precompress:  project.Precompress,
		Minify:       resolved.Env.Mode.IsProduction(),
	}, resolved.Configuration())
}
