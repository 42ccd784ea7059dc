package imma

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"iter"
	"strings"
	"time"
)

// ErrSealed is returned by mutations on a sealed ReportTable.
var ErrSealed = errors.New("report table is sealed")

// ErrNotSealed is returned when provenance is requested before sealing.
var ErrNotSealed = errors.New("report table is not sealed")

// Rejection records a line that could not be decoded at all.
type Rejection struct {
	LineNumber int    `json:"line_number"`
	RawLength  int    `json:"raw_length"`
	Reason     string `json:"reason"`
}

// Provenance identifies a fully consumed source file: its path, the MD5 of
// its raw byte stream, and the accept/reject totals. Downstream stages use
// the checksum for duplicate-file detection.
type Provenance struct {
	SourcePath      string    `json:"source_path"`
	Checksum        string    `json:"checksum"`
	TotalRecords    int       `json:"total_records"`
	RejectedRecords int       `json:"rejected_records"`
	SealedAt        time.Time `json:"sealed_at"`
}

// ColumnKey addresses one column of the namespaced columnar output.
type ColumnKey struct {
	Section string // section column namespace, e.g. "core", "attm98"
	Field   string
}

func (k ColumnKey) String() string { return k.Section + "." + k.Field }

// ReportTable accumulates the decoded output for one source file. It is
// created per file, populated record by record, then sealed: the checksum is
// finalized and the table becomes immutable. Each table is exclusively owned
// by the caller that requested the decode; concurrent decoding is safe only
// at file granularity.
type ReportTable struct {
	sourcePath string
	records    []Record
	rejections []Rejection
	digest     hash.Hash
	checksum   string
	sealed     bool
	sealedAt   time.Time
}

// NewReportTable creates an empty, unsealed table for one source file.
func NewReportTable(sourcePath string) *ReportTable {
	return &ReportTable{
		sourcePath: sourcePath,
		digest:     md5.New(),
	}
}

// foldRaw folds one raw line, terminator included, into the file checksum.
// Every line read is folded in order regardless of its decode outcome, so
// the checksum equals an md5 of the file body byte for byte, the convention
// existing provenance records were built on. Terminator variations (CRLF,
// a missing final newline) therefore change the checksum.
func (t *ReportTable) foldRaw(raw []byte) {
	if t.sealed {
		return
	}
	t.digest.Write(raw)
}

// Push appends an accepted record.
func (t *ReportTable) Push(rec Record) error {
	if t.sealed {
		return ErrSealed
	}
	t.records = append(t.records, rec)
	return nil
}

// RejectLine counts a line that was rejected outright.
func (t *ReportTable) RejectLine(lineNumber, rawLength int, reason error) error {
	if t.sealed {
		return ErrSealed
	}
	t.rejections = append(t.rejections, Rejection{
		LineNumber: lineNumber,
		RawLength:  rawLength,
		Reason:     reason.Error(),
	})
	return nil
}

// Seal finalizes the checksum and makes the table immutable.
func (t *ReportTable) Seal() error {
	if t.sealed {
		return ErrSealed
	}
	t.checksum = hex.EncodeToString(t.digest.Sum(nil))
	t.sealedAt = clock.Now()
	t.sealed = true
	return nil
}

// Sealed reports whether the table has been finalized.
func (t *ReportTable) Sealed() bool { return t.sealed }

// SourcePath returns the path the table was decoded from.
func (t *ReportTable) SourcePath() string { return t.sourcePath }

// Len returns the number of accepted records.
func (t *ReportTable) Len() int { return len(t.records) }

// Rejections returns the rejected-line summary.
func (t *ReportTable) Rejections() []Rejection { return t.rejections }

// Checksum returns the finalized content checksum; empty until sealed.
func (t *ReportTable) Checksum() string { return t.checksum }

// Provenance returns the file-level provenance record. ErrNotSealed until
// the file has been fully consumed.
func (t *ReportTable) Provenance() (Provenance, error) {
	if !t.sealed {
		return Provenance{}, ErrNotSealed
	}
	return Provenance{
		SourcePath:      t.sourcePath,
		Checksum:        t.checksum,
		TotalRecords:    len(t.records),
		RejectedRecords: len(t.rejections),
		SealedAt:        t.sealedAt,
	}, nil
}

// Record returns the i-th accepted record.
func (t *ReportTable) Record(i int) Record { return t.records[i] }

// All iterates accepted records in decode order. The sequence is finite and
// restartable: a fresh iterator may be requested any number of times, and a
// caller wanting early termination simply stops consuming.
func (t *ReportTable) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, rec := range t.records {
			if !yield(rec) {
				return
			}
		}
	}
}

// Columns builds the columnar view handed to the leveling and QC stages:
// one series per (section, field) pair present anywhere in the file, one
// entry per accepted record, Missing where a record lacks the attachment.
// Only callable on a sealed table.
func (t *ReportTable) Columns() (map[ColumnKey][]Value, error) {
	if !t.sealed {
		return nil, ErrNotSealed
	}

	cols := make(map[ColumnKey][]Value)
	fill := func(row int, sec *Section) {
		for name, v := range sec.Fields {
			// Downstream stages address columns as lower-cased
			// "section.field", e.g. "core.lat", "attm98.uid".
			key := ColumnKey{Section: sec.Name, Field: strings.ToLower(name)}
			series, ok := cols[key]
			if !ok {
				series = make([]Value, len(t.records))
				for i := range series {
					series[i] = MissingValue()
				}
				cols[key] = series
			}
			series[row] = v
		}
	}

	for i := range t.records {
		rec := &t.records[i]
		fill(i, &rec.Core)
		for j := range rec.Attachments {
			fill(i, &rec.Attachments[j])
		}
	}
	return cols, nil
}

// Summary renders a one-line accept/reject synopsis for logs.
func (t *ReportTable) Summary() string {
	return fmt.Sprintf("%s: %d accepted, %d rejected", t.sourcePath, len(t.records), len(t.rejections))
}
