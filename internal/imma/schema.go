package imma

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FieldKind names a field's decode rule.
type FieldKind string

const (
	FieldInt    FieldKind = "int"
	FieldFloat  FieldKind = "float"
	FieldString FieldKind = "str"
	FieldCoded  FieldKind = "code"
	FieldBase36 FieldKind = "base36"
)

// FieldSpec describes one fixed-width field within a section. Offset is
// relative to the section start, so a section's sentinel bytes occupy
// offsets [0, len(sentinel)).
type FieldSpec struct {
	Name      string
	Offset    int
	Width     int
	Kind      FieldKind
	Scale     float64 // multiplicative, float fields only; 1 when undeclared
	CodeTable string  // code fields only
	Missing   string  // literal missing pattern; empty means all-blank
}

// SectionSpec describes the core section or one attachment. Length is the
// full section width including the sentinel; a zero Length marks the
// variable-length terminal supplemental attachment.
type SectionSpec struct {
	ID       string // "core", " 1", "98", ...
	Name     string // column namespace, e.g. "core", "attm1"
	Sentinel string // lead bytes identifying the section; empty for core
	Length   int
	Fields   []FieldSpec
}

// Terminal reports whether the section consumes the remainder of the line.
func (s *SectionSpec) Terminal() bool { return s.Length == 0 }

// Schema is the ordered section sequence for one IMMA format version.
// Order is significant: attachments appear in this precedence order within a
// line and detection advances strictly left to right. A Schema is immutable
// after load and safe to share across concurrent decoders.
type Schema struct {
	Name     string
	Version  string
	Sections []SectionSpec
}

// Core returns the mandatory leading section.
func (s *Schema) Core() *SectionSpec { return &s.Sections[0] }

// Section returns the section with the given id.
func (s *Schema) Section(id string) (*SectionSpec, bool) {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i], true
		}
	}
	return nil, false
}

// CodeTables returns the distinct code table names referenced by any field.
func (s *Schema) CodeTables() []string {
	seen := map[string]bool{}
	var names []string
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.CodeTable != "" && !seen[f.CodeTable] {
				seen[f.CodeTable] = true
				names = append(names, f.CodeTable)
			}
		}
	}
	return names
}

// SchemaError reports an invalid schema definition.
type SchemaError struct {
	Section string
	Field   string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: section %q field %q: %s", e.Section, e.Field, e.Reason)
	}
	if e.Section != "" {
		return fmt.Sprintf("schema: section %q: %s", e.Section, e.Reason)
	}
	return "schema: " + e.Reason
}

// schemaJSON mirrors the declarative schema file layout.
type schemaJSON struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Sections []sectionJSON `json:"sections"`
}

type sectionJSON struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Sentinel string      `json:"sentinel"`
	Length   int         `json:"length"`
	Fields   []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	Name      string    `json:"name"`
	Offset    *int      `json:"offset"` // derived cumulatively when absent
	Width     int       `json:"width"`
	Kind      FieldKind `json:"kind"`
	Scale     float64   `json:"scale"`
	CodeTable string    `json:"codetable"`
	Missing   string    `json:"missing"`
}

// LoadSchema parses and validates a JSON schema definition. Field offsets
// may be omitted, in which case fields pack left to right starting after the
// section's sentinel bytes.
func LoadSchema(data []byte) (*Schema, error) {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Reason: "parse: " + err.Error()}
	}
	if len(raw.Sections) == 0 {
		return nil, &SchemaError{Reason: "no sections declared"}
	}

	schema := &Schema{Name: raw.Name, Version: raw.Version}
	seen := map[string]bool{}
	for i := range raw.Sections {
		rs := &raw.Sections[i]
		if seen[rs.ID] {
			return nil, &SchemaError{Section: rs.ID, Reason: "duplicate section id"}
		}
		seen[rs.ID] = true

		sec, err := loadSection(rs, i == 0)
		if err != nil {
			return nil, err
		}
		schema.Sections = append(schema.Sections, sec)
	}
	return schema, nil
}

func loadSection(rs *sectionJSON, isCore bool) (SectionSpec, error) {
	if isCore && rs.Sentinel != "" {
		return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "core section must not declare a sentinel"}
	}
	if !isCore && rs.Sentinel == "" {
		return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "attachment missing sentinel"}
	}
	if rs.Length < 0 {
		return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "negative length"}
	}
	if rs.Length == 0 && len(rs.Fields) > 0 {
		return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "variable-length section cannot declare fields"}
	}
	if rs.Length > 0 && len(rs.Sentinel) > rs.Length {
		return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "sentinel longer than section"}
	}

	sec := SectionSpec{
		ID:       rs.ID,
		Name:     sectionName(rs),
		Sentinel: rs.Sentinel,
		Length:   rs.Length,
	}

	cursor := len(rs.Sentinel)
	for _, rf := range rs.Fields {
		f := FieldSpec{
			Name:      rf.Name,
			Width:     rf.Width,
			Kind:      rf.Kind,
			Scale:     rf.Scale,
			CodeTable: rf.CodeTable,
			Missing:   rf.Missing,
		}
		if f.Name == "" {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Reason: "unnamed field"}
		}
		if f.Width <= 0 {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: "non-positive width"}
		}
		switch f.Kind {
		case FieldInt, FieldFloat, FieldString, FieldCoded, FieldBase36:
		default:
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: fmt.Sprintf("unknown kind %q", f.Kind)}
		}
		if f.Kind == FieldCoded && f.CodeTable == "" {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: "code field without codetable"}
		}
		if f.Kind == FieldFloat && f.Scale == 0 {
			f.Scale = 1
		}
		if f.Missing != "" && len(f.Missing) != f.Width {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: "missing pattern width mismatch"}
		}

		f.Offset = cursor
		if rf.Offset != nil {
			f.Offset = *rf.Offset
		}
		if f.Offset < cursor {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: "overlaps preceding field"}
		}
		if f.Offset+f.Width > rs.Length {
			return SectionSpec{}, &SchemaError{Section: rs.ID, Field: f.Name, Reason: "extends past section length"}
		}
		cursor = f.Offset + f.Width
		sec.Fields = append(sec.Fields, f)
	}
	return sec, nil
}

// sectionName derives the column namespace when the schema omits one:
// "core" stays "core"; attachment ids become "attm<n>", the naming used by
// the downstream leveling and QC stages.
func sectionName(rs *sectionJSON) string {
	if rs.Name != "" {
		return strings.ToLower(rs.Name)
	}
	if rs.ID == "core" {
		return "core"
	}
	return "attm" + strings.TrimSpace(rs.ID)
}

// LoadSchemaFile reads and parses a schema definition from disk.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaError{Reason: "read " + path + ": " + err.Error()}
	}
	return LoadSchema(data)
}

//go:embed schemas/imma1.json
var defaultSchemaJSON []byte

// DefaultSchema returns the embedded IMMA1 (ICOADS Release 3.0) schema:
// full field layouts for core, the ICOADS attachment " 1" and the UID
// attachment "98", sentinel-only entries for the rest.
var DefaultSchema = sync.OnceValue(func() *Schema {
	s, err := LoadSchema(defaultSchemaJSON)
	if err != nil {
		panic("imma: embedded schema invalid: " + err.Error())
	}
	return s
})
