// Package registry loads and caches schema/code-table bundles so concurrent
// per-file decode workers share a single immutable load per schema version.
package registry

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oceanobs/imma-etl/internal/imma"
)

// Bundle is one loaded schema version with its code tables and a ready
// decoder. Immutable after load; safe to share across goroutines.
type Bundle struct {
	Schema  *imma.Schema
	Tables  *imma.CodeTableStore
	Decoder *imma.Decoder
}

// Registry resolves (schema path, code table dir) pairs to loaded bundles,
// caching results in an LRU so repeated polls do not re-read schema files.
type Registry struct {
	cache *lru.Cache[string, *Bundle]
}

// New creates a registry with the given cache capacity.
func New(cacheSize int) (*Registry, error) {
	cache, err := lru.New[string, *Bundle](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("registry cache: %w", err)
	}
	return &Registry{cache: cache}, nil
}

// Load returns the bundle for the given schema path and code table
// directory, loading it on first use. An empty schemaPath selects the
// embedded IMMA1 schema; an empty tableDir is allowed only for schemas that
// reference no code tables.
func (r *Registry) Load(schemaPath, tableDir string) (*Bundle, error) {
	key := schemaPath + "\x00" + tableDir
	if b, ok := r.cache.Get(key); ok {
		return b, nil
	}

	schema := imma.DefaultSchema()
	if schemaPath != "" {
		loaded, err := imma.LoadSchemaFile(schemaPath)
		if err != nil {
			return nil, err
		}
		schema = loaded
	}

	var tables *imma.CodeTableStore
	if tableDir != "" {
		loaded, err := imma.LoadCodeTables(tableDir)
		if err != nil {
			return nil, err
		}
		tables = loaded
	}

	decoder, err := imma.NewDecoder(schema, tables)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Schema: schema, Tables: tables, Decoder: decoder}
	r.cache.Add(key, b)
	return b, nil
}
