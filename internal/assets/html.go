package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/rs/zerolog"
)

func parseTemplate(path string) (*template.Template, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	return tmpl, nil
}

// renderHTML writes <entry>.html next to the outputs for every entry point.
func (p *Pipeline) renderHTML(ctx context.Context, entryPoints []string) error {
	if p.tmpl == nil {
		return nil
	}

	for _, entry := range entryPoints {
		key := p.metaKey(entry)
		if !strings.HasSuffix(entry, ".js") {
			continue
		}

		scripts, main, err := p.loadScripts(key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		styles, err := p.loadStyles(key)
		if err != nil {
			return err
		}

		var flags any
		if raw, ok := p.plan.define[buildconfig.EnabledFlagsSymbol]; ok {
			if err := json.Unmarshal([]byte(raw), &flags); err != nil {
				return fmt.Errorf("invalid %s definition: %w", buildconfig.EnabledFlagsSymbol, err)
			}
		}

		data := map[string]any{
			"Entry":        main,
			"Scripts":      scripts,
			"Styles":       styles,
			"EnabledFlags": flags,
		}

		var buf bytes.Buffer
		if err := p.tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}

		name := strings.TrimSuffix(filepath.Base(entry), filepath.Ext(entry)) + ".html"
		out := filepath.Join(p.config.OutputDir, name)
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return err
		}

		zerolog.Ctx(ctx).Info().Str("file", out).Msg("Rendered html")
	}

	return nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
