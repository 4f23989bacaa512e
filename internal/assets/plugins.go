package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy/cozy-build/internal/cssopt"
	"github.com/cozy/cozy-build/internal/telemetry"
	"github.com/cozy/cozy-build/internal/transformcache"
	"github.com/evanw/esbuild/pkg/api"
)

// rulesPlugin routes every loaded file through the first matching transform
// rule. Files matching no rule fall through to the bundler defaults. Imports
// made by skip-parsed files are left unresolved.
func (p *Pipeline) rulesPlugin(nested bool) api.Plugin {
	return api.Plugin{
		Name: "transform-rules",
		Setup: func(build api.PluginBuild) {
			if len(p.plan.skip) > 0 {
				build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Importer == "" || !p.skipped(args.Importer) {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				})
			}
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				return p.load(args.Path, nested)
			})
		},
	}
}

func (p *Pipeline) load(path string, nested bool) (api.OnLoadResult, error) {
	if p.skipped(path) {
		return p.loadVerbatim(path, p.skipLoader(path))
	}

	for _, h := range p.plan.handlers {
		if !h.rule.Matches(path) {
			continue
		}
		switch h.kind {
		case handleScript:
			return p.loadScript(path, h)
		case handleStyle:
			return p.loadStyle(path, h, nested)
		case handleFile:
			return p.loadVerbatim(path, api.LoaderFile)
		}
	}

	return api.OnLoadResult{}, nil
}

func (p *Pipeline) skipped(path string) bool {
	for _, pattern := range p.plan.skip {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}

// skipLoader keeps skip-parsed files in the bundle untransformed.
func (p *Pipeline) skipLoader(path string) api.Loader {
	ext := filepath.Ext(path)
	if l, ok := p.plan.loaders[ext]; ok {
		return l
	}
	switch ext {
	case ".json":
		return api.LoaderJSON
	case ".css":
		return api.LoaderCSS
	}
	return api.LoaderJS
}

func (p *Pipeline) loadVerbatim(path string, loader api.Loader) (api.OnLoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, err
	}
	contents := string(data)
	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     loader,
		ResolveDir: filepath.Dir(path),
	}, nil
}

func (p *Pipeline) loadScript(path string, h handler) (api.OnLoadResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	loader := api.LoaderJS
	if h.script.JSX {
		loader = api.LoaderJSX
	}
	sourcemap := api.SourceMapNone
	if p.plan.sourceMap {
		sourcemap = api.SourceMapInline
	}

	metrics := telemetry.GetMetrics()
	key := transformcache.Key(fmt.Sprintf("%s|jsx=%t|map=%t|%s", h.script.Target, h.script.JSX, p.plan.sourceMap, path), src)
	if cached, ok := p.cache.Get(key); ok {
		metrics.CacheHitsTotal.Add(context.Background(), 1)
		contents := string(cached)
		return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS, ResolveDir: filepath.Dir(path)}, nil
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:     loader,
		Target:     h.target,
		Sourcefile: path,
		Sourcemap:  sourcemap,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return api.OnLoadResult{Errors: result.Errors}, nil
	}

	metrics.CacheMissesTotal.Add(context.Background(), 1)
	if err := p.cache.Put(key, result.Code); err != nil {
		return api.OnLoadResult{}, err
	}

	contents := string(result.Code)
	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     api.LoaderJS,
		ResolveDir: filepath.Dir(path),
		Warnings:   result.Warnings,
	}, nil
}

func (p *Pipeline) loadStyle(path string, h handler, nested bool) (api.OnLoadResult, error) {
	if h.inject && !nested {
		return p.injectStyle(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, err
	}

	out, _, err := cssopt.Apply(src, h.steps)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("%s: %w", path, err)
	}

	contents := string(out)
	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     api.LoaderCSS,
		ResolveDir: filepath.Dir(path),
	}, nil
}

// injectStyle bundles the stylesheet on its own and returns a script module
// that appends the result to the document head.
func (p *Pipeline) injectStyle(path string) (api.OnLoadResult, error) {
	opts := p.buildOptions([]string{path}, p.rulesPlugin(true))
	opts.Splitting = false
	opts.Metafile = false
	if p.plan.sourceMap {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return api.OnLoadResult{Errors: result.Errors}, nil
	}

	var css string
	var assets []api.OutputFile
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".css") && css == "" {
			css = string(f.Contents)
			continue
		}
		assets = append(assets, f)
	}
	p.addExtra(assets...)

	source, _ := json.Marshal(filepath.Base(path))
	text, _ := json.Marshal(css)
	contents := fmt.Sprintf(injectTemplate, text, source)

	return api.OnLoadResult{
		Contents:   &contents,
		Loader:     api.LoaderJS,
		ResolveDir: filepath.Dir(path),
		WatchFiles: []string{path},
	}, nil
}

const injectTemplate = `const css = %s;
if (typeof document !== "undefined") {
  const style = document.createElement("style");
  style.setAttribute("data-source", %s);
  style.textContent = css;
  document.head.appendChild(style);
}
export default css;
`
