package assets

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cozy/cozy-build/internal/logger"
	"github.com/cozy/cozy-build/internal/telemetry"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Build runs the bundler with the configured settings, post-processes and
// writes the output, then loads the metadata
func (p *Pipeline) Build(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	buildID := uuid.NewString()
	ctx = log.With().Str("build_id", buildID).Logger().WithContext(ctx)
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build")
	defer span.End()
	span.SetAttributes(attribute.String("build.id", buildID))

	metrics := telemetry.GetMetrics()
	metrics.BuildsTotal.Add(ctx, 1)

	err := p.run(ctx)
	metrics.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context) error {
	entryPoints, err := p.entryPoints()
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Strs("entrypoints", entryPoints).Msg("Building assets")

	p.takeExtra()
	result := api.Build(p.buildOptions(entryPoints, p.rulesPlugin(false)))

	if err := p.check(*zerolog.Ctx(ctx), result); err != nil {
		return err
	}

	return p.emit(ctx, result, entryPoints)
}

// check logs bundler diagnostics and turns errors into a BuildError. With
// fail-fast only the first error is reported.
func (p *Pipeline) check(log zerolog.Logger, result api.BuildResult) error {
	logger.LogMessages(log, zerolog.WarnLevel, result.Warnings)

	if len(result.Errors) == 0 {
		return nil
	}

	errs := result.Errors
	if p.build.FailFast {
		errs = errs[:1]
	}
	logger.LogMessages(log, zerolog.ErrorLevel, errs)

	return &BuildError{Messages: errs}
}

func (p *Pipeline) entryPoints() ([]string, error) {
	var entryPoints []string
	for _, pattern := range p.config.EntryPoints {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !slices.Contains(entryPoints, m) {
				entryPoints = append(entryPoints, m)
			}
		}
	}

	if len(entryPoints) == 0 {
		return nil, ErrNoEntryPoints
	}

	slices.Sort(entryPoints)
	return entryPoints, nil
}

// Metadata returns the metadata of the last successful build
func (p *Pipeline) Metadata() (*BuildMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}
	return p.metadata, nil
}

// LoadScripts returns the ordered list of script paths needed for the given entrypoint
// and the main entrypoint file path. entryPointPath is relative to the working
// directory, returned paths are relative to the output directory.
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.loadScripts(entryPointPath)
}

func (p *Pipeline) loadScripts(entryPointPath string) ([]string, string, error) {
	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && strings.HasSuffix(outputPath, ".js") {
			entrypoint := p.outputName(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", ErrEntrypointNotFound
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.Kind == "dynamic-import" || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true

		chunkInfo, exists := p.metadata.Outputs[imp.Path]
		if !exists {
			continue
		}
		*scripts = append(*scripts, p.outputName(imp.Path))
		p.addDependencies(chunkInfo, scripts, visited)
	}
}

// LoadStyles returns the stylesheets extracted for the given entrypoint,
// relative to the output directory.
func (p *Pipeline) LoadStyles(entryPointPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.loadStyles(entryPointPath)
}

func (p *Pipeline) loadStyles(entryPointPath string) ([]string, error) {
	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	var styles []string
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint != entryPointPath {
			continue
		}
		switch {
		case strings.HasSuffix(outputPath, ".css"):
			styles = append(styles, p.outputName(outputPath))
		case info.CSSBundle != "":
			styles = append(styles, p.outputName(info.CSSBundle))
		}
	}
	slices.Sort(styles)
	return styles, nil
}

// outputName maps a metafile output path to its final name relative to the
// output directory.
func (p *Pipeline) outputName(metaPath string) string {
	if name, ok := p.renamed[metaPath]; ok {
		return name
	}
	abs := filepath.Join(p.config.WorkingDir, filepath.FromSlash(metaPath))
	rel, err := filepath.Rel(p.config.OutputDir, abs)
	if err != nil {
		return metaPath
	}
	return filepath.ToSlash(rel)
}

// metaKey maps an absolute output path to its metafile key.
func (p *Pipeline) metaKey(path string) string {
	rel, err := filepath.Rel(p.config.WorkingDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (p *Pipeline) writeMetafile(metafile string) (*BuildMetadata, error) {
	if p.config.MetafilePath != "" {
		if err := os.MkdirAll(filepath.Dir(p.config.MetafilePath), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p.config.MetafilePath, []byte(metafile), 0o600); err != nil {
			return nil, err
		}
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}
