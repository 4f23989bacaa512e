package assets

import "path/filepath"

type Config struct {
	// Entry point glob patterns (e.g., "src/targets/*/index.js")
	EntryPoints []string
	// Directory import paths in the metafile are relative to
	WorkingDir string
	// Output directory for built files
	OutputDir string
	// Path to metafile
	MetafilePath string
	// Optional html/template rendered once per entry point
	HTMLTemplate string
	// Whether to write .gz and .zst siblings for scripts and stylesheets
	Precompress bool
	// Whether scripts are minified. Stylesheet syntax is left to the
	// configured post-processing steps.
	Minify bool
}

// DefaultConfig returns the conventional layout rooted at dir
func DefaultConfig(dir string) Config {
	return Config{
		EntryPoints:  []string{filepath.Join(dir, "src", "main.js")},
		WorkingDir:   dir,
		OutputDir:    filepath.Join(dir, "build"),
		MetafilePath: filepath.Join(dir, "build", "meta.json"),
	}
}
