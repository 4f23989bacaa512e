package assets

import (
	"errors"
	"html/template"
	"sync"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/cozy/cozy-build/internal/transformcache"
	"github.com/evanw/esbuild/pkg/api"
)

var (
	ErrNoEntryPoints      = errors.New("no entry points found")
	ErrNotBuilt           = errors.New("assets not built yet, call Build() first")
	ErrEntrypointNotFound = errors.New("entrypoint not found in metadata")
)

// BuildError carries the bundler messages that aborted a build.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return "build failed"
	}
	if len(e.Messages) == 1 {
		return "build failed: " + e.Messages[0].Text
	}
	return "build failed: " + e.Messages[0].Text + " (and more errors)"
}

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Pipeline turns a build configuration into bundler runs and writes the results
type Pipeline struct {
	config Config
	build  buildconfig.Configuration
	plan   plan
	cache  *transformcache.Cache
	tmpl   *template.Template

	metadata *BuildMetadata
	// renamed maps metafile output paths to their final output-relative names
	renamed map[string]string
	mu      sync.RWMutex

	// extra holds files produced by nested builds during the current run
	extra   []api.OutputFile
	extraMu sync.Mutex
}

// New creates a pipeline for the given layout and build configuration
func New(config Config, build buildconfig.Configuration) (*Pipeline, error) {
	pl, err := newPlan(build)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		config: config,
		build:  build,
		plan:   pl,
	}

	if pl.script != nil && pl.script.CacheDirectory != "" {
		cache, err := transformcache.New(pl.script.CacheDirectory)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}

	if config.HTMLTemplate != "" {
		tmpl, err := parseTemplate(config.HTMLTemplate)
		if err != nil {
			return nil, err
		}
		p.tmpl = tmpl
	}

	return p, nil
}

func (p *Pipeline) addExtra(files ...api.OutputFile) {
	p.extraMu.Lock()
	defer p.extraMu.Unlock()
	p.extra = append(p.extra, files...)
}

func (p *Pipeline) takeExtra() []api.OutputFile {
	p.extraMu.Lock()
	defer p.extraMu.Unlock()
	files := p.extra
	p.extra = nil
	return files
}
