package imma

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EncodeRecord renders a Record back into a raw report line using the
// schema's widths and sentinels. Missing fields print as their missing
// pattern (blanks by default); sections without a field layout are emitted
// from their retained raw bytes. Re-decoding the result yields a
// structurally equal Record.
func EncodeRecord(schema *Schema, rec *Record) ([]byte, error) {
	var out []byte

	core, err := encodeSection(schema.Core(), &rec.Core)
	if err != nil {
		return nil, err
	}
	out = append(out, core...)

	for i := range rec.Attachments {
		att := &rec.Attachments[i]
		spec, ok := schema.Section(att.ID)
		if !ok {
			return nil, fmt.Errorf("encode: unknown section %q", att.ID)
		}
		if spec.Terminal() || len(spec.Fields) == 0 {
			out = append(out, att.Raw...)
			continue
		}
		body, err := encodeSection(spec, att)
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}
	return out, nil
}

func encodeSection(spec *SectionSpec, sec *Section) ([]byte, error) {
	buf := make([]byte, spec.Length)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, spec.Sentinel)

	for i := range spec.Fields {
		f := &spec.Fields[i]
		v := sec.Field(f.Name)
		text, err := encodeValue(v, f)
		if err != nil {
			return nil, fmt.Errorf("encode: section %q field %q: %w", spec.ID, f.Name, err)
		}
		copy(buf[f.Offset:f.Offset+f.Width], text)
	}
	return buf, nil
}

func encodeValue(v Value, f *FieldSpec) (string, error) {
	if v.IsMissing() {
		if f.Missing != "" {
			return f.Missing, nil
		}
		return strings.Repeat(" ", f.Width), nil
	}

	var text string
	switch f.Kind {
	case FieldInt:
		text = strconv.FormatInt(v.Int, 10)
	case FieldBase36:
		text = strings.ToUpper(strconv.FormatInt(v.Int, 36))
	case FieldFloat:
		// Undo the scale to recover the fixed-point digits.
		text = strconv.FormatInt(int64(math.Round(v.Real/f.Scale)), 10)
	case FieldString:
		if len(v.Str) > f.Width {
			return "", fmt.Errorf("value %q wider than %d", v.Str, f.Width)
		}
		return v.Str + strings.Repeat(" ", f.Width-len(v.Str)), nil
	case FieldCoded:
		text = v.Code
	default:
		return "", fmt.Errorf("unhandled kind %q", f.Kind)
	}

	if len(text) > f.Width {
		return "", fmt.Errorf("value %q wider than %d", text, f.Width)
	}
	return strings.Repeat(" ", f.Width-len(text)) + text, nil
}
