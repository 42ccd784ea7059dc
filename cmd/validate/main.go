// Command validate performs integrity checks on a marine report archive:
// schema consistency, code table coverage, a full decode pass, and a
// re-encode round trip of every accepted record.
//
// Usage:
//
//	go run ./cmd/validate -file data/incoming/IMMA1_R3.0.0T_1985-01 \
//	  -schema schemas/imma1.json -tables code_tables
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/oceanobs/imma-etl/internal/imma"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "path to the archive file to validate")
	schemaPath := flag.String("schema", "", "schema definition (empty selects the built-in IMMA1 layout)")
	tableDir := flag.String("tables", "", "directory of code table TSV files")
	strict := flag.Bool("strict", false, "treat per-field decode problems as failures")
	maxErrors := flag.Int("max-errors", 20, "detailed errors to print per phase")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*file, *schemaPath, *tableDir, *strict, *maxErrors))
}

func run(file, schemaPath, tableDir string, strict bool, maxErrors int) int {
	fmt.Println("=== Marine Report Archive Validation ===")
	fmt.Println()

	schema, tables, p1 := validateSchema(schemaPath, tableDir)
	phases := []*phase{p1}

	var decoder *imma.Decoder
	if p1.passed() {
		var p2 *phase
		decoder, p2 = validateCodeTables(schema, tables)
		phases = append(phases, p2)
	}

	var table *imma.ReportTable
	if decoder != nil {
		var p3 *phase
		table, p3 = validateDecode(decoder, file, strict)
		phases = append(phases, p3)
	}

	if table != nil {
		phases = append(phases, validateRoundTrip(schema, decoder, table))
	}

	// Report results.
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	if table != nil {
		fmt.Println()
		fmt.Println(table.Summary())
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// Phase 1: schema loads and its sections are internally consistent.
func validateSchema(schemaPath, tableDir string) (*imma.Schema, *imma.CodeTableStore, *phase) {
	p := &phase{name: "Phase 1: Schema Integrity"}

	var schema *imma.Schema
	var err error
	if schemaPath == "" {
		schema = imma.DefaultSchema()
	} else {
		schema, err = imma.LoadSchemaFile(schemaPath)
		if err != nil {
			p.errorf("load schema: %v", err)
			return nil, nil, p
		}
	}

	fmt.Printf("Schema: %s %s, %d sections, core %d bytes\n",
		schema.Name, schema.Version, len(schema.Sections), schema.Core().Length)

	var tables *imma.CodeTableStore
	if tableDir != "" {
		tables, err = imma.LoadCodeTables(tableDir)
		if err != nil {
			p.errorf("load code tables: %v", err)
			return schema, nil, p
		}
		fmt.Printf("Code tables: %d loaded from %s\n", len(tables.Names()), tableDir)
	}
	return schema, tables, p
}

// Phase 2: every code table the schema references resolves.
func validateCodeTables(schema *imma.Schema, tables *imma.CodeTableStore) (*imma.Decoder, *phase) {
	p := &phase{name: "Phase 2: Code Table Coverage"}

	decoder, err := imma.NewDecoder(schema, tables)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	return decoder, p
}

// Phase 3: the archive decodes; rejections always fail, field problems only
// under -strict.
func validateDecode(decoder *imma.Decoder, file string, strict bool) (*imma.ReportTable, *phase) {
	p := &phase{name: "Phase 3: Decode Pass"}

	table, err := decoder.DecodeFile(file)
	if err != nil {
		p.errorf("decode %s: %v", file, err)
		return nil, p
	}

	for _, rej := range table.Rejections() {
		p.errorf("line %d: rejected (%d bytes): %v", rej.LineNumber, rej.RawLength, rej.Reason)
	}
	if strict {
		for rec := range table.All() {
			for _, prob := range rec.Problems {
				p.errorf("line %d: %s %s.%s: %s",
					rec.LineNumber, prob.Kind, prob.Section, prob.Field, prob.Detail)
			}
		}
	}
	return table, p
}

// Phase 4: re-encoding an accepted record and decoding it again must yield
// the same values.
func validateRoundTrip(schema *imma.Schema, decoder *imma.Decoder, table *imma.ReportTable) *phase {
	p := &phase{name: "Phase 4: Encode Round Trip"}

	for rec := range table.All() {
		encoded, err := imma.EncodeRecord(schema, &rec)
		if err != nil {
			p.errorf("line %d: re-encode: %v", rec.LineNumber, err)
			continue
		}
		again, err := decoder.Assemble(encoded, rec.LineNumber)
		if err != nil {
			p.errorf("line %d: re-decode: %v", rec.LineNumber, err)
			continue
		}
		compareRecords(p, &rec, &again)
	}
	return p
}

func compareRecords(p *phase, want, got *imma.Record) {
	compareSection(p, want.LineNumber, &want.Core, &got.Core)
	if len(want.Attachments) != len(got.Attachments) {
		p.errorf("line %d: attachment count: expected %d, got %d",
			want.LineNumber, len(want.Attachments), len(got.Attachments))
		return
	}
	for i := range want.Attachments {
		compareSection(p, want.LineNumber, &want.Attachments[i], &got.Attachments[i])
	}
}

func compareSection(p *phase, line int, want, got *imma.Section) {
	if want.ID != got.ID {
		p.errorf("line %d: section id: expected %q, got %q", line, want.ID, got.ID)
		return
	}
	for name, wv := range want.Fields {
		gv := got.Field(name)
		if wv.String() != gv.String() {
			p.errorf("line %d: %s.%s: expected %s, got %s", line, want.ID, name, wv, gv)
		}
	}
}
