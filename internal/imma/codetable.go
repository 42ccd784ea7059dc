package imma

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CodeTable maps a domain's raw codes to decoded labels, e.g. country codes
// or platform types. Tables are immutable after load.
type CodeTable struct {
	Name    string
	entries map[string]string
}

// Lookup returns the label for a raw code. Codes absent from the table are
// reported via ok=false rather than failing; archival data contains
// undocumented historical codes.
func (t *CodeTable) Lookup(code string) (label string, ok bool) {
	label, ok = t.entries[code]
	return label, ok
}

// Len returns the number of entries.
func (t *CodeTable) Len() int { return len(t.entries) }

// CodeTableStore holds all code tables for a schema, keyed by table name.
// Purely functional once loaded; safe for concurrent readers.
type CodeTableStore struct {
	tables map[string]*CodeTable
}

// CodeTableError reports a missing or malformed code table.
type CodeTableError struct {
	Table  string
	Path   string
	Reason string
}

func (e *CodeTableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("code table %q (%s): %s", e.Table, e.Path, e.Reason)
	}
	return fmt.Sprintf("code table %q: %s", e.Table, e.Reason)
}

// LoadCodeTables reads every .tsv file in dir into a store. A table's name
// is its file stem; the file is two-plus-column tab-separated with a header
// row containing "code" and a label column.
func LoadCodeTables(dir string) (*CodeTableStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &CodeTableError{Path: dir, Reason: "read directory: " + err.Error()}
	}

	store := &CodeTableStore{tables: make(map[string]*CodeTable)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tsv") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".tsv")
		path := filepath.Join(dir, entry.Name())
		table, err := loadCodeTableFile(name, path)
		if err != nil {
			return nil, err
		}
		store.tables[name] = table
	}
	return store, nil
}

func loadCodeTableFile(name, path string) (*CodeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CodeTableError{Table: name, Path: path, Reason: err.Error()}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &CodeTableError{Table: name, Path: path, Reason: "parse: " + err.Error()}
	}
	if len(rows) < 1 {
		return nil, &CodeTableError{Table: name, Path: path, Reason: "empty file"}
	}

	header := rows[0]
	codeCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "code":
			codeCol = i
		default:
			if labelCol == -1 {
				labelCol = i
			}
		}
	}
	if codeCol == -1 || labelCol == -1 {
		return nil, &CodeTableError{Table: name, Path: path, Reason: "header must name a code column and a label column"}
	}

	table := &CodeTable{Name: name, entries: make(map[string]string, len(rows)-1)}
	for i, row := range rows[1:] {
		if len(row) <= codeCol || len(row) <= labelCol {
			return nil, &CodeTableError{Table: name, Path: path, Reason: fmt.Sprintf("row %d: too few columns", i+2)}
		}
		code := strings.TrimSpace(row[codeCol])
		if code == "" {
			return nil, &CodeTableError{Table: name, Path: path, Reason: fmt.Sprintf("row %d: blank code", i+2)}
		}
		table.entries[code] = strings.TrimSpace(row[labelCol])
	}
	return table, nil
}

// Table returns the named table.
func (s *CodeTableStore) Table(name string) (*CodeTable, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Lookup resolves a raw code against the named table. ok is false when
// either the table or the code is unknown.
func (s *CodeTableStore) Lookup(table, code string) (label string, ok bool) {
	t, found := s.tables[table]
	if !found {
		return "", false
	}
	return t.Lookup(code)
}

// Names returns the loaded table names, sorted.
func (s *CodeTableStore) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
