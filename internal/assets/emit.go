package assets

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cozy/cozy-build/internal/cssopt"
	"github.com/cozy/cozy-build/internal/telemetry"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

var sourceMappingComment = regexp.MustCompile(`(?m)^/\*# sourceMappingURL=[^*]*\*/\s*$`)

// emit post-processes stylesheets, applies the extracted stylesheet names and
// writes every output file.
func (p *Pipeline) emit(ctx context.Context, result api.BuildResult, entryPoints []string) error {
	log := zerolog.Ctx(ctx)

	metadata, err := p.writeMetafile(result.Metafile)
	if err != nil {
		return fmt.Errorf("failed to write metafile: %w", err)
	}

	files := append(slices.Clone(result.OutputFiles), p.takeExtra()...)
	byPath := make(map[string]int, len(files))
	for i, f := range files {
		byPath[f.Path] = i
	}

	entryStyles := p.entryStylesheets(metadata, entryPoints)
	renamed := make(map[string]string)
	taken := make(map[string]string)

	for i := range files {
		f := &files[i]
		if !strings.HasSuffix(f.Path, ".css") {
			continue
		}

		key := p.metaKey(f.Path)
		css := sourceMappingComment.ReplaceAll(f.Contents, nil)

		if a := p.plan.cssAssets; a != nil && a.Test.Match(f.Path) {
			out, reports, err := cssopt.Apply(css, a.Steps)
			if err != nil {
				return fmt.Errorf("failed to post-process %s: %w", key, err)
			}
			css = out
			for _, r := range reports {
				telemetry.GetMetrics().CSSRulesDiscarded.Add(ctx, int64(r.Removed))
				if a.Log {
					log.Info().
						Str("file", key).
						Str("step", string(r.Step)).
						Int("removed", r.Removed).
						Int("bytes_before", r.BytesBefore).
						Int("bytes_after", r.BytesAfter).
						Msg("Processed stylesheet")
				}
			}
		}

		target := f.Path
		if ex := p.plan.extract; ex != nil {
			name, isEntry := entryStyles[key]
			template := ex.ChunkFilename
			if isEntry {
				template = ex.Filename
			} else {
				name = strings.TrimSuffix(filepath.Base(f.Path), ".css")
			}

			outName := expandName(template, name, p.chunkID(f.Path), css)
			if prev, ok := taken[outName]; ok {
				return fmt.Errorf("stylesheets %s and %s are both named %s", prev, key, outName)
			}
			taken[outName] = key
			target = filepath.Join(p.config.OutputDir, filepath.FromSlash(outName))
			renamed[key] = outName
		}

		if idx, ok := byPath[f.Path+".map"]; ok {
			files[idx].Path = target + ".map"
			css = append(css, []byte("\n/*# sourceMappingURL="+filepath.Base(target)+".map */\n")...)
		}

		f.Path = target
		f.Contents = css
	}

	if err := p.writeFiles(ctx, files); err != nil {
		return err
	}

	p.metadata = metadata
	p.renamed = renamed

	return p.renderHTML(ctx, entryPoints)
}

// entryStylesheets maps the metafile keys of stylesheets belonging to an entry
// point to that entry's name.
func (p *Pipeline) entryStylesheets(metadata *BuildMetadata, entryPoints []string) map[string]string {
	entries := make(map[string]string, len(entryPoints))
	for _, e := range entryPoints {
		entries[p.metaKey(e)] = strings.TrimSuffix(filepath.Base(e), filepath.Ext(e))
	}

	styles := make(map[string]string)
	for key, out := range metadata.Outputs {
		name, ok := entries[out.EntryPoint]
		if !ok {
			continue
		}
		if strings.HasSuffix(key, ".css") {
			styles[key] = name
		}
		if out.CSSBundle != "" {
			styles[out.CSSBundle] = name
		}
	}
	return styles
}

// chunkID derives a stable identifier from the output path, so unrelated
// changes do not rename a chunk.
func (p *Pipeline) chunkID(path string) string {
	rel, err := filepath.Rel(p.config.OutputDir, path)
	if err != nil {
		rel = path
	}
	sum := blake3.Sum256([]byte(filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))))
	id := hex.EncodeToString(sum[:])
	return id[:min(p.plan.digestBytes, len(id))]
}

func expandName(template, name, id string, contents []byte) string {
	sum := blake3.Sum256(contents)
	hash := hex.EncodeToString(sum[:])[:8]
	return strings.NewReplacer(
		"[name]", name,
		"[id]", id,
		"[contenthash]", hash,
		"[hash]", hash,
	).Replace(template)
}

func (p *Pipeline) writeFiles(ctx context.Context, files []api.OutputFile) error {
	log := zerolog.Ctx(ctx)
	metrics := telemetry.GetMetrics()

	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(f.Path, f.Contents, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}

		metrics.OutputFilesTotal.Add(ctx, 1)
		metrics.OutputBytes.Add(ctx, int64(len(f.Contents)))
		log.Info().Str("file", f.Path).Int("bytes", len(f.Contents)).Msg("Built file")

		if p.config.Precompress && compressible(f.Path) {
			if err := precompress(f.Path, f.Contents); err != nil {
				return err
			}
		}
	}
	return nil
}
