package buildconfig

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func findPlugin[T Plugin](t *testing.T, cfg Configuration) T {
	t.Helper()
	for _, p := range cfg.PostProcessors {
		if v, ok := p.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("plugin %T not found", zero)
	return zero
}

func TestBuild_Production(t *testing.T) {
	cfg := Build(Env{Mode: ModeProduction, EnabledFlags: []string{"offline"}, FilenameTemplate: "app"})

	require.Len(t, cfg.PostProcessors, 4)
	assert.Equal(t, PluginExtractCSS, cfg.PostProcessors[0].Kind())
	assert.Equal(t, PluginCSSAssets, cfg.PostProcessors[1].Kind())
	assert.Equal(t, PluginHashedChunkIDs, cfg.PostProcessors[2].Kind())
	assert.Equal(t, PluginDefine, cfg.PostProcessors[3].Kind())

	extract := findPlugin[ExtractCSSPlugin](t, cfg)
	assert.Equal(t, "app.min.css", extract.Filename)
	assert.Equal(t, "app.[id].min.css", extract.ChunkFilename)

	assets := findPlugin[CSSAssetsPlugin](t, cfg)
	assert.False(t, assets.Log)
	assert.Equal(t, []StyleStep{
		{Kind: StepDiscardDuplicates},
		{Kind: StepDiscardEmpty},
		{Kind: StepCompact, PreserveHacks: true, RemoveAllComments: true},
	}, assets.Steps)
}

func TestBuild_Development(t *testing.T) {
	cfg := Build(Env{Mode: ModeDevelopment, Debug: true, EnabledFlags: []string{}, FilenameTemplate: "app"})

	require.Len(t, cfg.PostProcessors, 4)

	extract := findPlugin[ExtractCSSPlugin](t, cfg)
	assert.Equal(t, "app.css", extract.Filename)
	assert.False(t, strings.HasSuffix(extract.ChunkFilename, ".min.css"))
	assert.Contains(t, extract.ChunkFilename, "[id]")

	assets := findPlugin[CSSAssetsPlugin](t, cfg)
	assert.True(t, assets.Log)
	assert.False(t, HasStep(assets.Steps, StepCompact))
	assert.True(t, HasStep(assets.Steps, StepDiscardDuplicates))
	assert.True(t, HasStep(assets.Steps, StepDiscardEmpty))
}

func TestBuild_CompactionOnlyInProduction(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{mode: ModeProduction, want: true},
		{mode: ModeDevelopment, want: false},
		{mode: Mode("staging"), want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			for _, debug := range []bool{true, false} {
				cfg := Build(Env{Mode: tt.mode, Debug: debug, FilenameTemplate: "app"})
				assets := findPlugin[CSSAssetsPlugin](t, cfg)
				assert.Equal(t, tt.want, HasStep(assets.Steps, StepCompact))
			}
		})
	}
}

func TestBuild_EnabledFlagsDefinition(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  string
	}{
		{name: "nil", flags: nil, want: `[]`},
		{name: "empty", flags: []string{}, want: `[]`},
		{name: "single", flags: []string{"offline"}, want: `["offline"]`},
		{name: "quoted", flags: []string{"a\"b", "c"}, want: `["a\"b","c"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mode := range []Mode{ModeProduction, ModeDevelopment} {
				for _, debug := range []bool{true, false} {
					cfg := Build(Env{Mode: mode, Debug: debug, EnabledFlags: tt.flags, FilenameTemplate: "app"})
					def := findPlugin[DefinePlugin](t, cfg)
					require.Equal(t, tt.want, def.Definitions[EnabledFlagsSymbol])

					var decoded []string
					require.NoError(t, json.Unmarshal([]byte(def.Definitions[EnabledFlagsSymbol]), &decoded))
				}
			}
		})
	}
}

func TestBuild_ScriptRuleExclusion(t *testing.T) {
	cfg := Build(Env{Mode: ModeProduction, FilenameTemplate: "app"})
	script := cfg.TransformRules[0]
	require.Equal(t, LoaderScript, script.Use[0].Kind())

	tests := []struct {
		path string
		want bool
	}{
		{path: "/app/src/index.js", want: true},
		{path: "/app/src/components/node_modules_list.js", want: true},
		{path: "/app/node_modules/cozy-ui/react/index.js", want: true},
		{path: "/app/node_modules/cozy-bar/dist/cozy-bar.js", want: true},
		{path: "/app/node_modules/cozy-client-js/dist/cozy-client.js", want: true},
		{path: "/app/node_modules/lodash/lodash.js", want: false},
		{path: "/app/node_modules/cozy-bar-extra/index.js", want: false},
		{path: "/app/node_modules/cozy-bar/node_modules/lodash/lodash.js", want: false},
		{path: "/app/node_modules/@babel/runtime/helpers/extends.js", want: false},
		{path: "/app/src/styles/app.css", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, script.Matches(tt.path))
		})
	}
}

func TestBuild_FontRule(t *testing.T) {
	cfg := Build(Env{Mode: ModeDevelopment, FilenameTemplate: "app"})
	require.Len(t, cfg.TransformRules, 3)

	script, style, font := cfg.TransformRules[0], cfg.TransformRules[1], cfg.TransformRules[2]

	for _, path := range []string{
		"/app/src/fonts/Lato.eot",
		"/app/src/fonts/Lato.ttf",
		"/app/node_modules/cozy-ui/fonts/Lato.woff",
		"/app/src/fonts/Lato.woff2",
	} {
		assert.True(t, font.Matches(path), path)
		assert.False(t, script.Matches(path), path)
		assert.False(t, style.Matches(path), path)
	}

	assert.False(t, font.Matches("/app/src/fonts/Lato.otf"))
	require.Len(t, font.Use, 1)
	assert.Equal(t, FileLoader{Name: "[name].[ext]"}, font.Use[0])
}

func TestBuild_StyleRule(t *testing.T) {
	tests := []struct {
		name  string
		env   Env
		first LoaderKind
	}{
		{name: "production extracts", env: Env{Mode: ModeProduction, StyleLoader: StyleLoaderFor(ModeProduction, true)}, first: LoaderExtract},
		{name: "development extracts by default", env: Env{Mode: ModeDevelopment}, first: LoaderExtract},
		{name: "development injects on request", env: Env{Mode: ModeDevelopment, StyleLoader: StyleLoaderFor(ModeDevelopment, true)}, first: LoaderInject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := Build(tt.env).TransformRules[1]
			require.Len(t, style.Use, 3)
			assert.Equal(t, tt.first, style.Use[0].Kind())
			assert.Equal(t, CSSImportLoader{SourceMap: true, ImportLoaders: 1}, style.Use[1])
			assert.Equal(t, LoaderPostCSS, style.Use[2].Kind())
			assert.True(t, style.Matches("/app/src/styles/index.css"))
		})
	}
}

func TestBuild_StylePluginsCollaborator(t *testing.T) {
	b := NewBuilder(DefaultPaths())
	b.StylePlugins = func(env Env) []StyleStep {
		return []StyleStep{{Kind: StepPrefix, Engines: []string{"safari" + string(env.Mode[:1])}}}
	}

	style := b.Build(Env{Mode: ModeProduction}).TransformRules[1]
	assert.Equal(t, PostCSSLoader{Plugins: []StyleStep{{Kind: StepPrefix, Engines: []string{"safarip"}}}}, style.Use[2])

	b.StylePlugins = nil
	style = b.Build(Env{Mode: ModeProduction}).TransformRules[1]
	assert.Empty(t, style.Use[2].(PostCSSLoader).Plugins)
}

func TestBuild_ModeIndependentParts(t *testing.T) {
	var envs []Env
	for _, mode := range []Mode{ModeProduction, ModeDevelopment} {
		for _, debug := range []bool{true, false} {
			envs = append(envs, Env{Mode: mode, Debug: debug, FilenameTemplate: "app"})
		}
	}

	for _, env := range envs {
		cfg := Build(env)
		assert.False(t, cfg.Resolution.Symlinks)
		assert.True(t, cfg.FailFast)
		assert.Equal(t, []string{"src", "node_modules"}, cfg.Resolution.Modules)
		assert.Equal(t, []string{".js", ".json", ".css"}, cfg.Resolution.Extensions)
		require.Len(t, cfg.SkipParsing, 1)
		assert.True(t, cfg.SkipParsing[0].Match("/app/node_modules/localforage/dist/localforage.js"))
		assert.False(t, cfg.SkipParsing[0].Match("/app/node_modules/localforage/src/localforage.js"))
		assert.Equal(t, HashedChunkIDsPlugin{HashFunction: "blake3", DigestLength: 8}, cfg.PostProcessors[2])
	}
}

func TestBuild_ScriptCacheDirectory(t *testing.T) {
	b := NewBuilder(Paths{SrcDir: "/p/src", NodeModulesDir: "/p/node_modules"})
	script := b.Build(Env{Mode: ModeProduction}).TransformRules[0].Use[0].(ScriptLoader)

	assert.Equal(t, "/p/node_modules/.cache/cozy-build/js", script.CacheDirectory)
	assert.Equal(t, DefaultScriptTarget, script.Target)
	assert.False(t, script.JSX)
}

func TestConfiguration_MarshalYAML(t *testing.T) {
	cfg := Build(Env{Mode: ModeProduction, EnabledFlags: []string{"offline"}, FilenameTemplate: "app"})

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	assert.Equal(t, true, doc["failFast"])
	plugins, ok := doc["postProcessors"].([]any)
	require.True(t, ok)
	require.Len(t, plugins, 4)
	assert.Equal(t, "extract-css", plugins[0].(map[string]any)["kind"])
	assert.Equal(t, "define", plugins[3].(map[string]any)["kind"])
	assert.Contains(t, string(out), "app.min.css")
	assert.Contains(t, string(out), "**.js")
}
