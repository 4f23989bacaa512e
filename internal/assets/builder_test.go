package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
	return dir
}

func newPipeline(t *testing.T, dir string, env buildconfig.Env, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := buildconfig.NewBuilder(buildconfig.Paths{
		SrcDir:         filepath.Join(dir, "src"),
		NodeModulesDir: filepath.Join(dir, "node_modules"),
	}).Build(env)

	config := DefaultConfig(dir)
	config.Minify = env.Mode.IsProduction()
	for _, m := range mutate {
		m(&config)
	}

	p, err := New(config, cfg)
	require.NoError(t, err)
	return p
}

func readOutput(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "build", name))
	require.NoError(t, err)
	return string(data)
}

var appFiles = map[string]string{
	"src/main.js": `import "./style.css";
import { dep } from "dep";
import { bar } from "cozy-bar";
export const flags = __ENABLED_FLAGS__;
console.log(dep, bar, flags);
`,
	"src/style.css": `@import "./base.css";
/* comment */
.a { color: red; }
.a { color: red; }
.empty {}
@font-face { font-family: Lato; src: url(./fonts/Lato.woff); }
`,
	"src/base.css":                   ".base { margin: 0; }\n",
	"src/fonts/Lato.woff":            "not really a font",
	"node_modules/dep/index.js":      "export const dep = globalThis.depValue ?? \"dep-default\";\n",
	"node_modules/cozy-bar/index.js": "export const bar = globalThis.barValue ?? \"bar-default\";\n",
}

func TestPipeline_BuildProduction(t *testing.T) {
	dir := writeProject(t, appFiles)
	p := newPipeline(t, dir, buildconfig.Env{
		Mode:             buildconfig.ModeProduction,
		EnabledFlags:     []string{"offline"},
		FilenameTemplate: "app",
	})

	require.NoError(t, p.Build(context.Background()))

	js := readOutput(t, dir, "main.js")
	assert.Equal(t, 1, strings.Count(js, "??"), "only the excluded dependency keeps its syntax")
	assert.Contains(t, js, "bar-default")
	assert.Contains(t, js, `["offline"]`)
	assert.NotContains(t, js, "__ENABLED_FLAGS__")
	assert.NotContains(t, js, "// src/main.js")

	css := readOutput(t, dir, "app.min.css")
	assert.Contains(t, css, ".base{margin:0}")
	assert.Equal(t, 1, strings.Count(css, ".a{color:red}"))
	assert.NotContains(t, css, ".empty")
	assert.NotContains(t, css, "comment")
	assert.Contains(t, css, "Lato.woff")
	assert.Contains(t, css, "sourceMappingURL=app.min.css.map")

	_, err := os.Stat(filepath.Join(dir, "build", "app.min.css.map"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "build", "main.css"))
	require.True(t, os.IsNotExist(err))

	assert.Equal(t, "not really a font", readOutput(t, dir, "Lato.woff"))
	_, err = os.Stat(filepath.Join(dir, "build", "meta.json"))
	require.NoError(t, err)

	scripts, entry, err := p.LoadScripts("src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "main.js", entry)
	assert.Equal(t, []string{"main.js"}, scripts)

	styles, err := p.LoadStyles("src/main.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.min.css"}, styles)

	entries, err := os.ReadDir(filepath.Join(dir, "node_modules", ".cache", "cozy-build", "js"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestPipeline_BuildDevelopment(t *testing.T) {
	dir := writeProject(t, appFiles)
	p := newPipeline(t, dir, buildconfig.Env{
		Mode:             buildconfig.ModeDevelopment,
		Debug:            true,
		FilenameTemplate: "app",
	})

	require.NoError(t, p.Build(context.Background()))

	js := readOutput(t, dir, "main.js")
	assert.Contains(t, js, "[]")
	assert.Contains(t, js, "// src/main.js")

	css := readOutput(t, dir, "app.css")
	assert.Equal(t, 1, strings.Count(css, ".a {"))
	assert.NotContains(t, css, ".empty")
	assert.Contains(t, css, "\n  color: red;\n")

	_, err := os.Stat(filepath.Join(dir, "build", "app.min.css"))
	require.True(t, os.IsNotExist(err))
}

func TestPipeline_FailFast(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/main.js": "import \"missing-a\";\nimport \"missing-b\";\n",
	})
	p := newPipeline(t, dir, buildconfig.Env{Mode: buildconfig.ModeProduction, FilenameTemplate: "app"})

	err := p.Build(context.Background())
	require.Error(t, err)

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	require.Len(t, buildErr.Messages, 1)
	assert.Contains(t, buildErr.Messages[0].Text, "missing-a")

	_, statErr := os.Stat(filepath.Join(dir, "build"))
	assert.True(t, os.IsNotExist(statErr))

	_, _, err = p.LoadScripts("src/main.js")
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestPipeline_CollectAllErrors(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/main.js": "import \"missing-a\";\nimport \"missing-b\";\n",
	})
	cfg := buildconfig.NewBuilder(buildconfig.Paths{
		SrcDir:         filepath.Join(dir, "src"),
		NodeModulesDir: filepath.Join(dir, "node_modules"),
	}).Build(buildconfig.Env{Mode: buildconfig.ModeProduction, FilenameTemplate: "app"})
	cfg.FailFast = false

	p, err := New(DefaultConfig(dir), cfg)
	require.NoError(t, err)

	err = p.Build(context.Background())
	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Len(t, buildErr.Messages, 2)
}

func TestPipeline_SkipParsing(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"src/main.js":                                  "import lf from \"localforage\";\nconsole.log(lf.driver);\n",
		"node_modules/localforage/package.json":        `{"name": "localforage", "main": "dist/localforage.js"}`,
		"node_modules/localforage/dist/localforage.js": "module.exports = { driver: \"idb\", fallback: typeof window === \"undefined\" && require(\"./not-shipped\") };\n",
	})
	p := newPipeline(t, dir, buildconfig.Env{Mode: buildconfig.ModeDevelopment, FilenameTemplate: "app"})

	require.NoError(t, p.Build(context.Background()))

	js := readOutput(t, dir, "main.js")
	assert.Contains(t, js, `driver: "idb"`)
	assert.Contains(t, js, `"./not-shipped"`)
	assert.NotContains(t, js, `from "./localforage.js"`)

	_, err := os.Stat(filepath.Join(dir, "build", "localforage.js"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_InjectStyles(t *testing.T) {
	dir := writeProject(t, appFiles)
	p := newPipeline(t, dir, buildconfig.Env{
		Mode:             buildconfig.ModeDevelopment,
		FilenameTemplate: "app",
		StyleLoader:      buildconfig.StyleLoaderFor(buildconfig.ModeDevelopment, true),
	})

	require.NoError(t, p.Build(context.Background()))

	js := readOutput(t, dir, "main.js")
	assert.Contains(t, js, "document.createElement(\"style\")")
	assert.Contains(t, js, ".base")

	_, err := os.Stat(filepath.Join(dir, "build", "app.css"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "not really a font", readOutput(t, dir, "Lato.woff"))
}

func TestPipeline_PrecompressAndHTML(t *testing.T) {
	files := map[string]string{
		"src/index.html": `<html><head>{{range .Styles}}<link rel="stylesheet" href="{{.}}">{{end}}</head>` +
			`<body data-flags="{{marshal .EnabledFlags}}">{{range .Scripts}}<script type="module" src="{{.}}"></script>{{end}}</body></html>`,
	}
	for k, v := range appFiles {
		files[k] = v
	}
	dir := writeProject(t, files)

	p := newPipeline(t, dir, buildconfig.Env{
		Mode:             buildconfig.ModeProduction,
		EnabledFlags:     []string{"offline"},
		FilenameTemplate: "app",
	}, func(c *Config) {
		c.Precompress = true
		c.HTMLTemplate = filepath.Join(dir, "src", "index.html")
	})

	require.NoError(t, p.Build(context.Background()))

	for _, name := range []string{"main.js.gz", "main.js.zst", "app.min.css.gz", "app.min.css.zst"} {
		_, err := os.Stat(filepath.Join(dir, "build", name))
		require.NoError(t, err, name)
	}

	html := readOutput(t, dir, "main.html")
	assert.Contains(t, html, `<link rel="stylesheet" href="app.min.css">`)
	assert.Contains(t, html, `<script type="module" src="main.js"></script>`)
	assert.Contains(t, html, "offline")
}

func TestPipeline_NoEntryPoints(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, dir, buildconfig.Env{Mode: buildconfig.ModeDevelopment})

	err := p.Build(context.Background())
	require.ErrorIs(t, err, ErrNoEntryPoints)
}
