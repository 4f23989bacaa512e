package buildconfig

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher reports whether a file path is selected.
type Matcher interface {
	Match(path string) bool
}

// Pattern is a path glob where "*" stays within a path segment and "**" spans segments.
// Paths are matched in slash form and as if absolute.
type Pattern struct {
	source string
	g      glob.Glob
}

// NewPattern compiles a path glob.
func NewPattern(source string) (Pattern, error) {
	g, err := glob.Compile(source, '/')
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", source, err)
	}
	return Pattern{source: source, g: g}, nil
}

// MustPattern is like NewPattern but panics on an invalid glob.
func MustPattern(source string) Pattern {
	p, err := NewPattern(source)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	return p.source
}

// Match implements Matcher. The zero Pattern matches nothing.
func (p Pattern) Match(path string) bool {
	if p.g == nil {
		return false
	}
	return p.g.Match(normalizePath(path))
}

// MarshalYAML renders the pattern as its source text.
func (p Pattern) MarshalYAML() (any, error) {
	return p.source, nil
}

// DependencyExclusion matches any file installed under Root unless the innermost
// package it belongs to is listed in Exempt.
type DependencyExclusion struct {
	Root   string   `yaml:"root"`
	Exempt []string `yaml:"exempt"`
}

// Match implements Matcher.
func (d DependencyExclusion) Match(path string) bool {
	pkg, ok := packageOf(normalizePath(path), d.Root)
	if !ok {
		return false
	}
	return !slices.Contains(d.Exempt, pkg)
}

// packageOf returns the package name following the last root segment in path.
func packageOf(path, root string) (string, bool) {
	marker := "/" + strings.Trim(root, "/") + "/"
	idx := strings.LastIndex(path, marker)
	if idx < 0 {
		return "", false
	}

	parts := strings.SplitN(path[idx+len(marker):], "/", 3)
	if parts[0] == "" {
		return "", false
	}
	if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
