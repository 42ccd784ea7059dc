package imma

// ProblemKind classifies a non-fatal decode anomaly.
type ProblemKind string

const (
	// ProblemDecode marks a field whose bytes could not be parsed; the
	// field decodes to Missing and the record is still accepted.
	ProblemDecode ProblemKind = "decode_error"
	// ProblemUnknownCode marks a code with no entry in its code table.
	ProblemUnknownCode ProblemKind = "unknown_code"
	// ProblemTrailingBytes marks non-blank leftover bytes after the last
	// recognized attachment.
	ProblemTrailingBytes ProblemKind = "trailing_bytes"
	// ProblemTruncatedSection marks an attachment whose sentinel matched
	// but whose declared length ran past the end of the line.
	ProblemTruncatedSection ProblemKind = "truncated_section"
)

// Problem is a structured, queryable anomaly preserved on the Record so
// downstream consumers can decide policy.
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Section string      `json:"section,omitempty"`
	Field   string      `json:"field,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Section holds one decoded section: the core or a detected attachment.
// Raw retains the exact consumed bytes, sentinel included, so field-less
// sections and the variable-length supplemental attachment survive
// re-encoding byte for byte.
type Section struct {
	ID     string
	Name   string
	Raw    []byte
	Fields map[string]Value
}

// Field returns the named decoded value, Missing if the section's layout
// does not declare it.
func (s *Section) Field(name string) Value {
	if v, ok := s.Fields[name]; ok {
		return v
	}
	return MissingValue()
}

// Record is one decoded report: the mandatory core plus the attachments
// detected in the line, in detection order.
type Record struct {
	Core        Section
	Attachments []Section
	LineNumber  int
	RawLength   int
	Problems    []Problem
}

// Attachment returns the decoded attachment with the given section id.
func (r *Record) Attachment(id string) (*Section, bool) {
	for i := range r.Attachments {
		if r.Attachments[i].ID == id {
			return &r.Attachments[i], true
		}
	}
	return nil, false
}

// HasProblems reports whether any anomaly was recorded during decode.
func (r *Record) HasProblems() bool { return len(r.Problems) > 0 }
