package assets

import (
	"fmt"
	"strings"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/evanw/esbuild/pkg/api"
)

type handlerKind int

const (
	handleScript handlerKind = iota
	handleStyle
	handleFile
)

// handler is a transform rule reduced to what the bundler plugin needs.
type handler struct {
	rule   buildconfig.Rule
	kind   handlerKind
	script buildconfig.ScriptLoader
	target api.Target
	steps  []buildconfig.StyleStep
	inject bool
}

// plan is a Configuration resolved into bundler settings.
type plan struct {
	handlers    []handler
	skip        []buildconfig.Pattern
	script      *buildconfig.ScriptLoader
	sourceMap   bool
	assetNames  string
	chunkNames  string
	loaders     map[string]api.Loader
	define      map[string]string
	extract     *buildconfig.ExtractCSSPlugin
	cssAssets   *buildconfig.CSSAssetsPlugin
	digestBytes int
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func newPlan(cfg buildconfig.Configuration) (plan, error) {
	pl := plan{
		skip:        cfg.SkipParsing,
		digestBytes: 8,
	}

	for i, rule := range cfg.TransformRules {
		h, err := newHandler(rule)
		if err != nil {
			return plan{}, fmt.Errorf("transform rule %d (%s): %w", i, rule.Test, err)
		}
		if h.kind == handleScript && pl.script == nil {
			script := h.script
			pl.script = &script
		}
		pl.handlers = append(pl.handlers, h)

		for _, l := range rule.Use {
			switch l := l.(type) {
			case buildconfig.CSSImportLoader:
				pl.sourceMap = pl.sourceMap || l.SourceMap
			case buildconfig.FileLoader:
				if pl.assetNames == "" {
					pl.assetNames = assetNames(l.Name)
				}
				if pl.loaders == nil {
					pl.loaders = make(map[string]api.Loader)
				}
				for _, ext := range patternExtensions(rule.Test.String()) {
					pl.loaders[ext] = api.LoaderFile
				}
			}
		}
	}

	for _, p := range cfg.PostProcessors {
		switch p := p.(type) {
		case buildconfig.ExtractCSSPlugin:
			pl.extract = &p
		case buildconfig.CSSAssetsPlugin:
			pl.cssAssets = &p
		case buildconfig.HashedChunkIDsPlugin:
			if p.HashFunction != "blake3" {
				return plan{}, fmt.Errorf("unsupported chunk id hash function %q", p.HashFunction)
			}
			if p.DigestLength > 0 {
				pl.digestBytes = p.DigestLength
			}
			pl.chunkNames = "[name]-[hash]"
		case buildconfig.DefinePlugin:
			if pl.define == nil {
				pl.define = make(map[string]string, len(p.Definitions))
			}
			for k, v := range p.Definitions {
				pl.define[k] = v
			}
		default:
			return plan{}, fmt.Errorf("unsupported post-processor %q", p.Kind())
		}
	}

	return pl, nil
}

func newHandler(rule buildconfig.Rule) (handler, error) {
	h := handler{rule: rule, kind: -1}

	for _, l := range rule.Use {
		switch l := l.(type) {
		case buildconfig.ScriptLoader:
			target, ok := targets[strings.ToLower(l.Target)]
			if !ok {
				return handler{}, fmt.Errorf("unsupported script target %q", l.Target)
			}
			h.kind = handleScript
			h.script = l
			h.target = target
		case buildconfig.ExtractLoader:
			h.kind = handleStyle
		case buildconfig.InjectLoader:
			h.kind = handleStyle
			h.inject = true
		case buildconfig.CSSImportLoader:
			// load callbacks cannot tell imported stylesheets apart, so every
			// stylesheet goes through the following loaders
			if l.ImportLoaders < 1 {
				return handler{}, fmt.Errorf("importLoaders %d is not supported", l.ImportLoaders)
			}
			h.kind = handleStyle
		case buildconfig.PostCSSLoader:
			h.kind = handleStyle
			h.steps = l.Plugins
		case buildconfig.FileLoader:
			h.kind = handleFile
		default:
			return handler{}, fmt.Errorf("unsupported loader %q", l.Kind())
		}
	}

	if h.kind < 0 {
		return handler{}, fmt.Errorf("rule has no loaders")
	}
	return h, nil
}

// assetNames converts a "[name].[ext]" style template into the bundler form,
// which always appends the extension itself.
func assetNames(name string) string {
	name = strings.TrimSuffix(name, ".[ext]")
	name = strings.ReplaceAll(name, "[contenthash]", "[hash]")
	if name == "" {
		return "[name]"
	}
	return name
}

// patternExtensions lists the extensions a "**.ext" or "**.{a,b}" pattern selects.
func patternExtensions(pattern string) []string {
	i := strings.LastIndex(pattern, ".")
	if i < 0 {
		return nil
	}
	suffix := pattern[i+1:]
	if strings.HasPrefix(suffix, "{") && strings.HasSuffix(suffix, "}") {
		suffix = suffix[1 : len(suffix)-1]
	}
	if strings.ContainsAny(suffix, "*?[]{}/") {
		return nil
	}

	var exts []string
	for _, ext := range strings.Split(suffix, ",") {
		if ext != "" {
			exts = append(exts, "."+ext)
		}
	}
	return exts
}
