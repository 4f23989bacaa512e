package buildconfig

import (
	"encoding/json"
	"path/filepath"
)

const (
	// EnabledFlagsSymbol is the global identifier the enabled flag list is compiled into.
	EnabledFlagsSymbol = "__ENABLED_FLAGS__"

	// DefaultScriptTarget is the language level scripts are downleveled to.
	DefaultScriptTarget = "es2015"
)

var (
	// TransformExempt lists dependencies that ship untranspiled sources and
	// must go through the script transform.
	TransformExempt = []string{"cozy-ui", "cozy-bar", "cozy-client-js"}

	scriptFiles     = MustPattern("**.js")
	styleFiles      = MustPattern("**.css")
	fontFiles       = MustPattern("**.{eot,ttf,woff,woff2}")
	prebuiltBundles = MustPattern("**/node_modules/localforage/dist/**")
)

// DefaultStylePlugins is the per-file stylesheet pipeline: vendor prefixes for
// the supported browsers.
func DefaultStylePlugins(Env) []StyleStep {
	return []StyleStep{
		{Kind: StepPrefix, Engines: []string{"chrome58", "edge16", "firefox57", "ios11", "safari11"}},
	}
}

// Builder assembles Configurations.
type Builder struct {
	Paths Paths
	// StylePlugins supplies the per-file stylesheet steps. Nil means none.
	StylePlugins func(Env) []StyleStep
	// ScriptTarget defaults to DefaultScriptTarget.
	ScriptTarget string
}

// NewBuilder returns a Builder with the default style plugins and script target.
func NewBuilder(paths Paths) Builder {
	return Builder{
		Paths:        paths,
		StylePlugins: DefaultStylePlugins,
		ScriptTarget: DefaultScriptTarget,
	}
}

// Build returns the configuration for env using the default paths.
func Build(env Env) Configuration {
	return NewBuilder(DefaultPaths()).Build(env)
}

// Build returns the configuration for env. It performs no I/O.
func (b Builder) Build(env Env) Configuration {
	return Configuration{
		Resolution: Resolution{
			Modules:    []string{b.Paths.SrcDir, b.Paths.NodeModulesDir},
			Extensions: []string{".js", ".json", ".css"},
			Symlinks:   false,
		},
		FailFast:       true,
		TransformRules: []Rule{b.scriptRule(), b.styleRule(env), fontRule()},
		SkipParsing:    []Pattern{prebuiltBundles},
		PostProcessors: []Plugin{
			extractPlugin(env),
			cssAssetsPlugin(env),
			HashedChunkIDsPlugin{HashFunction: "blake3", DigestLength: 8},
			definePlugin(env),
		},
	}
}

func (b Builder) scriptRule() Rule {
	target := b.ScriptTarget
	if target == "" {
		target = DefaultScriptTarget
	}

	return Rule{
		Test: scriptFiles,
		Exclude: DependencyExclusion{
			Root:   filepath.Base(b.Paths.NodeModulesDir),
			Exempt: TransformExempt,
		},
		Use: []Loader{
			ScriptLoader{
				CacheDirectory: filepath.Join(b.Paths.NodeModulesDir, ".cache", "cozy-build", "js"),
				Target:         target,
				JSX:            false,
			},
		},
	}
}

func (b Builder) styleRule(env Env) Rule {
	var first Loader = ExtractLoader{}
	if env.styleLoader() == StyleInject {
		first = InjectLoader{}
	}

	var plugins []StyleStep
	if b.StylePlugins != nil {
		plugins = b.StylePlugins(env)
	}

	return Rule{
		Test: styleFiles,
		Use: []Loader{
			first,
			CSSImportLoader{SourceMap: true, ImportLoaders: 1},
			PostCSSLoader{Plugins: plugins},
		},
	}
}

func fontRule() Rule {
	return Rule{
		Test: fontFiles,
		Use:  []Loader{FileLoader{Name: "[name].[ext]"}},
	}
}

func extractPlugin(env Env) ExtractCSSPlugin {
	suffix := ""
	if env.Mode.IsProduction() {
		suffix = ".min"
	}

	return ExtractCSSPlugin{
		Filename:      env.FilenameTemplate + suffix + ".css",
		ChunkFilename: env.FilenameTemplate + ".[id]" + suffix + ".css",
	}
}

func cssAssetsPlugin(env Env) CSSAssetsPlugin {
	steps := []StyleStep{
		{Kind: StepDiscardDuplicates},
		{Kind: StepDiscardEmpty},
	}
	if env.Mode.IsProduction() {
		steps = append(steps, StyleStep{Kind: StepCompact, PreserveHacks: true, RemoveAllComments: true})
	}

	return CSSAssetsPlugin{
		Test:  styleFiles,
		Log:   env.Debug,
		Steps: steps,
	}
}

func definePlugin(env Env) DefinePlugin {
	flags := env.EnabledFlags
	if flags == nil {
		flags = []string{}
	}

	// a []string always marshals
	encoded, _ := json.Marshal(flags)

	return DefinePlugin{
		Definitions: map[string]string{EnabledFlagsSymbol: string(encoded)},
	}
}
