// Package cssopt implements the stylesheet transforms applied to emitted and
// imported stylesheets.
package cssopt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cozy/cozy-build/internal/buildconfig"
	"github.com/evanw/esbuild/pkg/api"
)

// Report describes what a single step did to a stylesheet.
type Report struct {
	Step        buildconfig.StyleStepKind
	Removed     int
	BytesBefore int
	BytesAfter  int
}

// DiscardDuplicates removes rules and declarations that repeat a sibling
// verbatim. The last occurrence is kept, except for block-less at-rules such as
// @import which keep their first position.
func DiscardDuplicates(src []byte) ([]byte, int, error) {
	items, err := parseSheet(src)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse stylesheet: %w", err)
	}
	items, removed := dedupe(items)
	return render(items), removed, nil
}

func dedupe(items []*item) ([]*item, int) {
	removed := 0
	for _, it := range items {
		if it.kind == itemBlock {
			var n int
			it.children, n = dedupe(it.children)
			removed += n
		}
	}

	keep := make([]bool, len(items))
	seen := make(map[string]bool, len(items))

	for i, it := range items {
		if it.kind != itemStatement || !strings.HasPrefix(it.text, "@") {
			continue
		}
		k := it.key()
		keep[i] = !seen[k]
		seen[k] = true
	}

	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		switch {
		case it.kind == itemComment:
			keep[i] = true
		case it.kind == itemStatement && strings.HasPrefix(it.text, "@"):
		default:
			k := it.key()
			keep[i] = !seen[k]
			seen[k] = true
		}
	}

	out := items[:0:0]
	for i, it := range items {
		if keep[i] {
			out = append(out, it)
		} else {
			removed++
		}
	}
	return out, removed
}

// DiscardEmpty removes rules without declarations, including rules left empty
// once their nested rules are removed.
func DiscardEmpty(src []byte) ([]byte, int, error) {
	items, err := parseSheet(src)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse stylesheet: %w", err)
	}
	items, removed := pruneEmpty(items)
	return render(items), removed, nil
}

func pruneEmpty(items []*item) ([]*item, int) {
	removed := 0
	out := items[:0:0]
	for _, it := range items {
		if it.kind == itemBlock {
			var n int
			it.children, n = pruneEmpty(it.children)
			removed += n
			if !hasContent(it.children) {
				removed++
				continue
			}
		}
		out = append(out, it)
	}
	return out, removed
}

func hasContent(items []*item) bool {
	for _, it := range items {
		if it.kind != itemComment {
			return true
		}
	}
	return false
}

// CompactOptions configures Compact.
type CompactOptions struct {
	// PreserveHacks leaves property and selector hacks untouched by skipping
	// syntax level rewrites and restoring "\9" value suffixes.
	PreserveHacks     bool
	RemoveAllComments bool
}

// Compact strips insignificant whitespace.
func Compact(src []byte, opts CompactOptions) ([]byte, error) {
	legal := api.LegalCommentsInline
	if opts.RemoveAllComments {
		legal = api.LegalCommentsNone
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:           api.LoaderCSS,
		MinifyWhitespace: true,
		MinifySyntax:     !opts.PreserveHacks,
		LegalComments:    legal,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to compact stylesheet: %s", result.Errors[0].Text)
	}
	if opts.PreserveHacks {
		return restoreTabEscapes(result.Code), nil
	}
	return result.Code, nil
}

// restoreTabEscapes rewrites a backslash followed by a raw tab, which is how
// esbuild prints "\9", back to the hex escape.
func restoreTabEscapes(src []byte) []byte {
	if !bytes.Contains(src, []byte("\\\t")) {
		return src
	}

	out := make([]byte, 0, len(src)+8)
	for i := 0; i < len(src); i++ {
		if src[i] == '\\' && i+1 < len(src) && src[i+1] == '\t' {
			out = append(out, '\\', '9')
			i++
			if i+1 < len(src) && isHexOrSpace(src[i+1]) {
				out = append(out, ' ')
			}
			continue
		}
		if src[i] == '\\' && i+1 < len(src) {
			out = append(out, src[i], src[i+1])
			i++
			continue
		}
		out = append(out, src[i])
	}
	return out
}

func isHexOrSpace(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	case c == ' ', c == '\t', c == '\n':
		return true
	}
	return false
}

// Prefix adds the vendor prefixes needed by engines, e.g. "safari11".
func Prefix(src []byte, engines []string) ([]byte, error) {
	parsed, err := ParseEngines(engines)
	if err != nil {
		return nil, err
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:   api.LoaderCSS,
		Engines:  parsed,
		LogLevel: api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to prefix stylesheet: %s", result.Errors[0].Text)
	}
	return result.Code, nil
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseEngines converts names such as "chrome58" or "ios11.3" into esbuild engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		i := strings.IndexAny(target, "0123456789")
		if i <= 0 {
			return nil, fmt.Errorf("invalid engine %q", target)
		}
		name, ok := engineNames[strings.ToLower(target[:i])]
		if !ok {
			return nil, fmt.Errorf("unsupported engine %q", target)
		}
		engines = append(engines, api.Engine{Name: name, Version: target[i:]})
	}
	return engines, nil
}

// Apply runs steps over src in order.
func Apply(src []byte, steps []buildconfig.StyleStep) ([]byte, []Report, error) {
	reports := make([]Report, 0, len(steps))
	out := src

	for _, step := range steps {
		before := len(out)
		var (
			removed int
			err     error
		)

		switch step.Kind {
		case buildconfig.StepDiscardDuplicates:
			out, removed, err = DiscardDuplicates(out)
		case buildconfig.StepDiscardEmpty:
			out, removed, err = DiscardEmpty(out)
		case buildconfig.StepCompact:
			out, err = Compact(out, CompactOptions{
				PreserveHacks:     step.PreserveHacks,
				RemoveAllComments: step.RemoveAllComments,
			})
		case buildconfig.StepPrefix:
			out, err = Prefix(out, step.Engines)
		default:
			err = fmt.Errorf("unknown style step %q", step.Kind)
		}
		if err != nil {
			return nil, nil, err
		}

		reports = append(reports, Report{
			Step:        step.Kind,
			Removed:     removed,
			BytesBefore: before,
			BytesAfter:  len(out),
		})
	}

	return out, reports, nil
}
