package buildconfig

// Configuration is the complete description of a build, handed to the assets
// pipeline which performs all file access.
type Configuration struct {
	Resolution     Resolution
	FailFast       bool
	TransformRules []Rule
	SkipParsing    []Pattern
	PostProcessors []Plugin
}

// Resolution controls how bare imports and extension-less paths are resolved.
type Resolution struct {
	Modules    []string `yaml:"modules"`
	Extensions []string `yaml:"extensions"`
	// Symlinks false keeps linked packages at their node_modules path.
	Symlinks bool `yaml:"symlinks"`
}

// Rule routes files matching Test, and not matching Exclude, through Use. Loaders
// in Use run last to first.
type Rule struct {
	Test    Pattern
	Exclude Matcher
	Use     []Loader
}

// Matches reports whether path is handled by the rule.
func (r Rule) Matches(path string) bool {
	if !r.Test.Match(path) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.Match(path)
}

// LoaderKind identifies a loader variant.
type LoaderKind string

const (
	LoaderScript    LoaderKind = "script"
	LoaderExtract   LoaderKind = "extract-css"
	LoaderInject    LoaderKind = "inject-css"
	LoaderCSSImport LoaderKind = "css-import"
	LoaderPostCSS   LoaderKind = "postcss"
	LoaderFile      LoaderKind = "file"
)

// Loader is one step of a rule's pipeline.
type Loader interface {
	Kind() LoaderKind
}

// ScriptLoader downlevels scripts to Target.
type ScriptLoader struct {
	CacheDirectory string `yaml:"cacheDirectory"`
	Target         string `yaml:"target"`
	JSX            bool   `yaml:"jsx"`
}

// ExtractLoader marks stylesheet output for extraction into .css files.
type ExtractLoader struct{}

// InjectLoader wraps stylesheet output in a script that injects it at runtime.
type InjectLoader struct{}

// CSSImportLoader resolves @import and url() references.
type CSSImportLoader struct {
	SourceMap bool `yaml:"sourceMap"`
	// ImportLoaders is how many loaders after this one also apply to @import-ed files.
	ImportLoaders int `yaml:"importLoaders"`
}

// PostCSSLoader runs Plugins over each stylesheet before import resolution.
type PostCSSLoader struct {
	Plugins []StyleStep `yaml:"plugins"`
}

// FileLoader copies matched files to the output unchanged.
type FileLoader struct {
	// Name is the output file name template, e.g. "[name].[ext]".
	Name string `yaml:"name"`
}

func (ScriptLoader) Kind() LoaderKind    { return LoaderScript }
func (ExtractLoader) Kind() LoaderKind   { return LoaderExtract }
func (InjectLoader) Kind() LoaderKind    { return LoaderInject }
func (CSSImportLoader) Kind() LoaderKind { return LoaderCSSImport }
func (PostCSSLoader) Kind() LoaderKind   { return LoaderPostCSS }
func (FileLoader) Kind() LoaderKind      { return LoaderFile }

// StyleStepKind identifies a stylesheet transform.
type StyleStepKind string

const (
	StepDiscardDuplicates StyleStepKind = "discard-duplicates"
	StepDiscardEmpty      StyleStepKind = "discard-empty"
	StepCompact           StyleStepKind = "compact"
	StepPrefix            StyleStepKind = "prefix"
)

// StyleStep is a single stylesheet transform. Only the fields relevant to Kind are set.
type StyleStep struct {
	Kind StyleStepKind `yaml:"kind"`
	// PreserveHacks and RemoveAllComments configure StepCompact.
	PreserveHacks     bool `yaml:"preserveHacks,omitempty"`
	RemoveAllComments bool `yaml:"removeAllComments,omitempty"`
	// Engines configures StepPrefix, e.g. "chrome58", "safari11".
	Engines []string `yaml:"engines,omitempty"`
}

// PluginKind identifies a post-processor variant.
type PluginKind string

const (
	PluginExtractCSS     PluginKind = "extract-css"
	PluginCSSAssets      PluginKind = "css-assets"
	PluginHashedChunkIDs PluginKind = "hashed-chunk-ids"
	PluginDefine         PluginKind = "define"
)

// Plugin is a post-processor applied by the pipeline.
type Plugin interface {
	Kind() PluginKind
}

// ExtractCSSPlugin names extracted stylesheets. Filename applies to entry
// stylesheets, ChunkFilename to lazily loaded ones and contains "[id]".
type ExtractCSSPlugin struct {
	Filename      string `yaml:"filename"`
	ChunkFilename string `yaml:"chunkFilename"`
}

// CSSAssetsPlugin runs Steps over every emitted stylesheet matching Test.
type CSSAssetsPlugin struct {
	Test  Pattern     `yaml:"test"`
	Log   bool        `yaml:"log"`
	Steps []StyleStep `yaml:"steps"`
}

// HashedChunkIDsPlugin replaces sequential chunk ids with path derived digests.
type HashedChunkIDsPlugin struct {
	HashFunction string `yaml:"hashFunction"`
	DigestLength int    `yaml:"digestLength"`
}

// DefinePlugin substitutes global identifiers with constant expressions.
type DefinePlugin struct {
	Definitions map[string]string `yaml:"definitions"`
}

func (ExtractCSSPlugin) Kind() PluginKind     { return PluginExtractCSS }
func (CSSAssetsPlugin) Kind() PluginKind      { return PluginCSSAssets }
func (HashedChunkIDsPlugin) Kind() PluginKind { return PluginHashedChunkIDs }
func (DefinePlugin) Kind() PluginKind         { return PluginDefine }

// HasStep reports whether steps contains a step of the given kind.
func HasStep(steps []StyleStep, kind StyleStepKind) bool {
	for _, s := range steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
