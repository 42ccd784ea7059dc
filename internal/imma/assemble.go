package imma

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTruncatedCore rejects a line shorter than the mandatory core section.
// It is the only per-record fatal condition; the record is counted as
// rejected and processing continues with the next line.
var ErrTruncatedCore = errors.New("core section truncated")

// Decoder drives sentinel detection and field decoding across report lines.
// It holds read-only references to a Schema and CodeTableStore and is safe
// to share across goroutines decoding independent files.
type Decoder struct {
	schema *Schema
	tables *CodeTableStore
}

// NewDecoder validates that every code table the schema references is
// present in the store and returns a decoder. tables may be nil when the
// schema declares no coded fields.
func NewDecoder(schema *Schema, tables *CodeTableStore) (*Decoder, error) {
	for _, name := range schema.CodeTables() {
		if tables == nil {
			return nil, &CodeTableError{Table: name, Reason: "referenced by schema but no store provided"}
		}
		if _, ok := tables.Table(name); !ok {
			return nil, &CodeTableError{Table: name, Reason: "referenced by schema but not loaded"}
		}
	}
	return &Decoder{schema: schema, tables: tables}, nil
}

// Schema returns the decoder's schema.
func (d *Decoder) Schema() *Schema { return d.schema }

// Assemble decodes one raw line into a Record. The core section is decoded
// unconditionally; attachments are detected left to right per the schema's
// precedence order. All anomalies except a truncated core are recorded as
// Problems on the Record rather than returned as errors.
func (d *Decoder) Assemble(line []byte, lineNumber int) (Record, error) {
	core := d.schema.Core()
	if len(line) < core.Length {
		return Record{}, fmt.Errorf("line %d: %d bytes, core needs %d: %w",
			lineNumber, len(line), core.Length, ErrTruncatedCore)
	}

	rec := Record{LineNumber: lineNumber, RawLength: len(line)}
	rec.Core = d.decodeSection(core, line[:core.Length], &rec)

	cursor := core.Length
	from := 1
	for {
		idx := detectNext(line, cursor, d.schema.Sections, from)
		if idx < 0 {
			break
		}
		spec := &d.schema.Sections[idx]

		if spec.Terminal() {
			// Variable-length supplemental attachment: consumes the rest.
			rec.Attachments = append(rec.Attachments, Section{
				ID:   spec.ID,
				Name: spec.Name,
				Raw:  line[cursor:],
			})
			cursor = len(line)
			break
		}

		end := cursor + spec.Length
		if end > len(line) {
			rec.Problems = append(rec.Problems, Problem{
				Kind:    ProblemTruncatedSection,
				Section: spec.ID,
				Detail:  fmt.Sprintf("%d of %d bytes present", len(line)-cursor, spec.Length),
			})
			end = len(line)
		}
		raw := line[cursor:end]
		rec.Attachments = append(rec.Attachments, d.decodeSection(spec, raw, &rec))
		cursor = end
		from = idx + 1
	}

	if leftover := line[cursor:]; len(leftover) > 0 && len(bytes.TrimRight(leftover, " ")) > 0 {
		rec.Problems = append(rec.Problems, Problem{
			Kind:   ProblemTrailingBytes,
			Detail: fmt.Sprintf("%d unrecognized bytes at offset %d", len(leftover), cursor),
		})
	}

	return rec, nil
}

// decodeSection extracts every declared field from a section's bytes,
// appending recoverable anomalies to the record. raw may be shorter than
// the declared length for a truncated final attachment; the shortfall is
// padded with blanks so trailing fields decode to Missing.
func (d *Decoder) decodeSection(spec *SectionSpec, raw []byte, rec *Record) Section {
	sec := Section{ID: spec.ID, Name: spec.Name, Raw: raw}
	if len(spec.Fields) == 0 {
		return sec
	}

	padded := raw
	if len(padded) < spec.Length {
		padded = make([]byte, spec.Length)
		copy(padded, raw)
		for i := len(raw); i < spec.Length; i++ {
			padded[i] = ' '
		}
	}

	sec.Fields = make(map[string]Value, len(spec.Fields))
	for i := range spec.Fields {
		f := &spec.Fields[i]
		v, problem := decodeField(padded, f, d.tables)
		if problem != nil {
			problem.Section = spec.ID
			rec.Problems = append(rec.Problems, *problem)
		}
		sec.Fields[f.Name] = v
	}
	return sec
}

// Decode consumes newline-delimited report lines from r, assembling each
// into the returned sealed ReportTable. Lines are processed strictly in
// order; every raw byte read, terminators included, is folded into the
// table's checksum whether or not the line decodes, so the checksum equals
// an md5 of the input stream itself. Truncated-core lines are counted as
// rejections.
func (d *Decoder) Decode(r io.Reader, sourcePath string) (*ReportTable, error) {
	table := NewReportTable(sourcePath)

	br := bufio.NewReaderSize(r, 64*1024)
	lineNumber := 0
	for {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 {
			lineNumber++
			table.foldRaw(raw)

			line := trimLineEnding(raw)
			rec, err := d.Assemble(line, lineNumber)
			if err != nil {
				_ = table.RejectLine(lineNumber, len(line), err)
			} else {
				_ = table.Push(rec)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", sourcePath, readErr)
		}
	}

	if err := table.Seal(); err != nil {
		return nil, err
	}
	return table, nil
}

// trimLineEnding strips the line terminator (\n or \r\n) before assembly.
// Only the stripped view is positional; the checksum sees the raw bytes.
func trimLineEnding(raw []byte) []byte {
	line := bytes.TrimSuffix(raw, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// DecodeFile decodes one archive file into a sealed ReportTable.
func (d *Decoder) DecodeFile(path string) (*ReportTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return d.Decode(f, path)
}
