package pipeline

import (
	"path/filepath"
	"sort"
)

// GlobLister lists archive files matching a glob pattern under one directory.
type GlobLister struct {
	dir     string
	pattern string
}

// NewGlobLister creates a lister for dir/pattern.
func NewGlobLister(dir, pattern string) *GlobLister {
	return &GlobLister{dir: dir, pattern: pattern}
}

// ListFiles returns the matching paths in lexical order so polling is
// deterministic.
func (g *GlobLister) ListFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(g.dir, g.pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
