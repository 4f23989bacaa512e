package assets

import (
	"github.com/evanw/esbuild/pkg/api"
)

// buildOptions translates the configuration into bundler options. Output is
// never written by the bundler; emit post-processes and writes it.
func (p *Pipeline) buildOptions(entryPoints []string, plugins ...api.Plugin) api.BuildOptions {
	res := p.build.Resolution

	return api.BuildOptions{
		EntryPoints:       entryPoints,
		AbsWorkingDir:     p.config.WorkingDir,
		Outdir:            p.config.OutputDir,
		Bundle:            true,
		Splitting:         true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		NodePaths:         res.Modules,
		ResolveExtensions: res.Extensions,
		PreserveSymlinks:  !res.Symlinks,
		Loader:            p.plan.loaders,
		Define:            p.plan.define,
		EntryNames:        "[name]",
		ChunkNames:        p.plan.chunkNames,
		AssetNames:        p.plan.assetNames,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		Sourcemap:         cond(p.plan.sourceMap, api.SourceMapLinked, api.SourceMapNone),
		LogLevel:          api.LogLevelSilent,
		Plugins:           plugins,
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
