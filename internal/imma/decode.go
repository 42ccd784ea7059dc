package imma

import (
	"fmt"
	"strconv"
	"strings"
)

// decodeField slices a field's byte range out of a section and coerces it to
// a typed Value. The section slice must already be padded to the section's
// declared length. A non-nil Problem reports a recoverable anomaly; the
// returned Value is still usable (Missing or Unknown).
func decodeField(section []byte, f *FieldSpec, tables *CodeTableStore) (Value, *Problem) {
	raw := string(section[f.Offset : f.Offset+f.Width])

	if f.Missing != "" && raw == f.Missing {
		return MissingValue(), nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MissingValue(), nil
	}

	switch f.Kind {
	case FieldInt:
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return MissingValue(), &Problem{
				Kind:   ProblemDecode,
				Field:  f.Name,
				Detail: fmt.Sprintf("bad integer %q", raw),
			}
		}
		return IntValue(v), nil

	case FieldBase36:
		v, err := strconv.ParseInt(trimmed, 36, 64)
		if err != nil {
			return MissingValue(), &Problem{
				Kind:   ProblemDecode,
				Field:  f.Name,
				Detail: fmt.Sprintf("bad base36 %q", raw),
			}
		}
		return IntValue(v), nil

	case FieldFloat:
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return MissingValue(), &Problem{
				Kind:   ProblemDecode,
				Field:  f.Name,
				Detail: fmt.Sprintf("bad number %q", raw),
			}
		}
		return RealValue(v * f.Scale), nil

	case FieldString:
		return StringValue(strings.TrimRight(raw, " ")), nil

	case FieldCoded:
		label, ok := tables.Lookup(f.CodeTable, trimmed)
		if !ok {
			return UnknownValue(trimmed), &Problem{
				Kind:   ProblemUnknownCode,
				Field:  f.Name,
				Detail: fmt.Sprintf("code %q not in table %q", trimmed, f.CodeTable),
			}
		}
		return CodedValue(trimmed, label), nil
	}

	return MissingValue(), &Problem{
		Kind:   ProblemDecode,
		Field:  f.Name,
		Detail: fmt.Sprintf("unhandled kind %q", f.Kind),
	}
}
