package buildconfig

// Mode selects the build flavour.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// IsProduction reports whether m is the production mode. Any unrecognised value is
// treated as development; rejecting bad modes is left to the caller.
func (m Mode) IsProduction() bool {
	return m == ModeProduction
}

// StyleLoaderKind selects the first loader of the stylesheet pipeline.
type StyleLoaderKind string

const (
	// StyleExtract pulls stylesheets out of the script output into separate .css files.
	StyleExtract StyleLoaderKind = "extract"
	// StyleInject turns stylesheets into script modules that append a <style> element.
	StyleInject StyleLoaderKind = "inject"
)

// StyleLoaderFor returns the style loader for the given mode. Production builds
// always extract; development builds inject only when asked to.
func StyleLoaderFor(mode Mode, inject bool) StyleLoaderKind {
	if !mode.IsProduction() && inject {
		return StyleInject
	}
	return StyleExtract
}

// Env holds the environment derived settings a configuration is built from.
type Env struct {
	Mode             Mode
	Debug            bool
	EnabledFlags     []string
	FilenameTemplate string
	// StyleLoader defaults to StyleLoaderFor(Mode, false) when empty.
	StyleLoader StyleLoaderKind
}

func (e Env) styleLoader() StyleLoaderKind {
	if e.StyleLoader == "" {
		return StyleLoaderFor(e.Mode, false)
	}
	return e.StyleLoader
}

// Paths are the search roots used for module resolution.
type Paths struct {
	// SrcDir is the application source root.
	SrcDir string
	// NodeModulesDir is the installed dependency root.
	NodeModulesDir string
}

// DefaultPaths returns the conventional roots relative to the project directory.
func DefaultPaths() Paths {
	return Paths{
		SrcDir:         "src",
		NodeModulesDir: "node_modules",
	}
}
