package imma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRecord_RoundTrip(t *testing.T) {
	d := testDecoder(t)

	cases := []struct {
		name string
		line []byte
	}{
		{"core only", testCoreLine()},
		{"core plus icoads attachment", append(testCoreLine(), testAttm1()...)},
		{"core plus uid attachment", append(testCoreLine(), testAttm98()...)},
		{"all field attachments", append(append(testCoreLine(), testAttm1()...), testAttm98()...)},
		{"terminal supplemental", append(testCoreLine(), []byte("99 0BBXX SUPPLEMENTAL")...)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := d.Assemble(tc.line, 1)
			require.NoError(t, err)

			encoded, err := EncodeRecord(d.Schema(), &rec)
			require.NoError(t, err)
			assert.Equal(t, string(tc.line), string(encoded))

			// Re-decoding yields a structurally equal record.
			again, err := d.Assemble(encoded, 1)
			require.NoError(t, err)
			assert.Equal(t, rec, again)
		})
	}
}

func TestEncodeRecord_MissingPrintsAsPattern(t *testing.T) {
	schema, err := LoadSchema([]byte(`{"sections":[{"id":"core","length":8,"fields":[
		{"name":"A","width":4,"kind":"int","missing":"9999"},
		{"name":"B","width":4,"kind":"int"}
	]}]}`))
	require.NoError(t, err)
	d, err := NewDecoder(schema, nil)
	require.NoError(t, err)

	rec, err := d.Assemble([]byte("9999    "), 1)
	require.NoError(t, err)
	assert.True(t, rec.Core.Field("A").IsMissing())
	assert.True(t, rec.Core.Field("B").IsMissing())

	encoded, err := EncodeRecord(schema, &rec)
	require.NoError(t, err)
	assert.Equal(t, "9999    ", string(encoded))
}

func TestEncodeRecord_UnknownCodePreserved(t *testing.T) {
	d := testDecoder(t)

	line := testCoreLine()
	put(line, 43, "ZZ") // not in the country table

	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, rec.Core.Field("C1").Kind)

	encoded, err := EncodeRecord(d.Schema(), &rec)
	require.NoError(t, err)
	assert.Equal(t, string(line), string(encoded))
}

func TestEncodeRecord_ValueTooWide(t *testing.T) {
	schema, err := LoadSchema([]byte(`{"sections":[{"id":"core","length":4,"fields":[
		{"name":"A","width":2,"kind":"int"}
	]}]}`))
	require.NoError(t, err)

	rec := Record{Core: Section{ID: "core", Name: "core", Fields: map[string]Value{"A": IntValue(12345)}}}
	_, err = EncodeRecord(schema, &rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wider than")
}
