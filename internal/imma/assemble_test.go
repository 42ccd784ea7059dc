package imma

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// put splices s into buf at off; test lines are built by patching fields
// into blank sections.
func put(buf []byte, off int, s string) {
	copy(buf[off:off+len(s)], s)
}

// testCoreLine builds a plausible 108-byte core: a ship report from 1893.
func testCoreLine() []byte {
	buf := bytes.Repeat([]byte{' '}, 108)
	put(buf, 0, "1893")     // YR
	put(buf, 4, " 1")       // MO
	put(buf, 6, "15")       // DY
	put(buf, 8, "1200")     // HR -> 12.00
	put(buf, 12, " 5130")   // LAT -> 51.30
	put(buf, 17, "  1250")  // LON -> 12.50
	put(buf, 34, "PERSEUS") // ID
	put(buf, 43, "GB")      // C1
	put(buf, 50, " 45")     // W -> 4.5
	put(buf, 59, "10132")   // SLP -> 1013.2
	put(buf, 69, " 121")    // AT -> 12.1
	return buf
}

// testAttm1 builds the 65-byte ICOADS attachment.
func testAttm1() []byte {
	buf := bytes.Repeat([]byte{' '}, 65)
	put(buf, 0, " 165")
	put(buf, 10, "193") // DCK
	put(buf, 13, "  3") // SID
	put(buf, 16, " 5")  // PT
	return buf
}

// testAttm98 builds the 15-byte UID attachment.
func testAttm98() []byte {
	buf := bytes.Repeat([]byte{' '}, 15)
	put(buf, 0, "9815")
	put(buf, 4, "ABC123") // UID, base36
	put(buf, 13, "1")     // RSA
	return buf
}

func testDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder(DefaultSchema(), testTables(t))
	require.NoError(t, err)
	return d
}

func TestNewDecoder_MissingReferencedTable(t *testing.T) {
	_, err := NewDecoder(DefaultSchema(), nil)
	require.Error(t, err)
	var tableErr *CodeTableError
	require.ErrorAs(t, err, &tableErr)

	store, err := LoadCodeTables(t.TempDir()) // empty store
	require.NoError(t, err)
	_, err = NewDecoder(DefaultSchema(), store)
	require.Error(t, err)
	assert.ErrorAs(t, err, &tableErr)
}

func TestAssemble_CoreOnly(t *testing.T) {
	d := testDecoder(t)

	rec, err := d.Assemble(testCoreLine(), 1)
	require.NoError(t, err)

	assert.Empty(t, rec.Attachments)
	assert.Empty(t, rec.Problems)
	assert.Equal(t, 1, rec.LineNumber)
	assert.Equal(t, 108, rec.RawLength)

	assert.Equal(t, IntValue(1893), rec.Core.Field("YR"))
	assert.Equal(t, IntValue(1), rec.Core.Field("MO"))
	assert.InDelta(t, 12.0, rec.Core.Field("HR").Real, 1e-9)
	assert.InDelta(t, 51.30, rec.Core.Field("LAT").Real, 1e-9)
	assert.InDelta(t, 12.50, rec.Core.Field("LON").Real, 1e-9)
	assert.Equal(t, StringValue("PERSEUS"), rec.Core.Field("ID"))
	assert.Equal(t, CodedValue("GB", "United Kingdom"), rec.Core.Field("C1"))
	assert.InDelta(t, 1013.2, rec.Core.Field("SLP").Real, 1e-9)

	// Everything not present in the line is Missing, never zero.
	assert.True(t, rec.Core.Field("SST").IsMissing())
	assert.True(t, rec.Core.Field("D").IsMissing())
}

func TestAssemble_AllAttachments(t *testing.T) {
	d := testDecoder(t)

	line := append(testCoreLine(), testAttm1()...)
	line = append(line, testAttm98()...)
	require.Len(t, line, 188)

	rec, err := d.Assemble(line, 7)
	require.NoError(t, err)
	require.Len(t, rec.Attachments, 2)
	assert.Empty(t, rec.Problems)

	attm1, ok := rec.Attachment(" 1")
	require.True(t, ok)
	assert.Equal(t, "attm1", attm1.Name)
	assert.Equal(t, IntValue(193), attm1.Field("DCK"))
	assert.Equal(t, IntValue(3), attm1.Field("SID"))
	assert.Equal(t, CodedValue("5", "ship"), attm1.Field("PT"))

	attm98, ok := rec.Attachment("98")
	require.True(t, ok)
	uid := attm98.Field("UID")
	assert.Equal(t, KindInt, uid.Kind) // base36 decoded
	assert.Equal(t, IntValue(1), attm98.Field("RSA"))

	// Detection order follows schema order.
	assert.Equal(t, " 1", rec.Attachments[0].ID)
	assert.Equal(t, "98", rec.Attachments[1].ID)
}

func TestAssemble_SubsetSkipsAbsentSections(t *testing.T) {
	d := testDecoder(t)

	line := append(testCoreLine(), testAttm98()...)
	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)

	require.Len(t, rec.Attachments, 1)
	assert.Equal(t, "98", rec.Attachments[0].ID)
	assert.Empty(t, rec.Problems)

	_, ok := rec.Attachment(" 1")
	assert.False(t, ok)
}

func TestAssemble_NeverBacktracks(t *testing.T) {
	d := testDecoder(t)

	// Attachment " 1" placed after "98" violates the precedence order; the
	// detector must not revisit it, leaving it as trailing bytes.
	line := append(testCoreLine(), testAttm98()...)
	line = append(line, testAttm1()...)

	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)

	require.Len(t, rec.Attachments, 1)
	assert.Equal(t, "98", rec.Attachments[0].ID)
	require.Len(t, rec.Problems, 1)
	assert.Equal(t, ProblemTrailingBytes, rec.Problems[0].Kind)
}

func TestAssemble_TruncatedCore(t *testing.T) {
	d := testDecoder(t)

	_, err := d.Assemble(testCoreLine()[:80], 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedCore)
	assert.Contains(t, err.Error(), "line 3")
}

func TestAssemble_TrailingBytes(t *testing.T) {
	d := testDecoder(t)

	t.Run("non-blank leftover is a warning, not a rejection", func(t *testing.T) {
		line := append(testCoreLine(), []byte("GARBAGE")...)
		rec, err := d.Assemble(line, 1)
		require.NoError(t, err)
		require.Len(t, rec.Problems, 1)
		assert.Equal(t, ProblemTrailingBytes, rec.Problems[0].Kind)
		assert.Contains(t, rec.Problems[0].Detail, "offset 108")
	})

	t.Run("pure blank padding is ignored", func(t *testing.T) {
		line := append(testCoreLine(), []byte("        ")...)
		rec, err := d.Assemble(line, 1)
		require.NoError(t, err)
		assert.Empty(t, rec.Problems)
	})
}

func TestAssemble_TruncatedAttachment(t *testing.T) {
	d := testDecoder(t)

	line := append(testCoreLine(), testAttm1()[:30]...)
	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)

	require.Len(t, rec.Attachments, 1)
	attm1 := rec.Attachments[0]
	assert.Equal(t, " 1", attm1.ID)
	assert.Equal(t, IntValue(193), attm1.Fields["DCK"])
	// Fields past the break decode to Missing.
	assert.True(t, attm1.Fields["QCZ"].IsMissing())

	require.Len(t, rec.Problems, 1)
	assert.Equal(t, ProblemTruncatedSection, rec.Problems[0].Kind)
	assert.Equal(t, " 1", rec.Problems[0].Section)
}

func TestAssemble_TerminalSupplemental(t *testing.T) {
	d := testDecoder(t)

	supplemental := "99 0FM13 BBXX PERSEUS 51.3N 12.5E"
	line := append(testCoreLine(), []byte(supplemental)...)

	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)
	assert.Empty(t, rec.Problems)

	require.Len(t, rec.Attachments, 1)
	att := rec.Attachments[0]
	assert.Equal(t, "99", att.ID)
	assert.Equal(t, supplemental, string(att.Raw))
	assert.Empty(t, att.Fields)
}

func TestAssemble_CorruptFieldDoesNotRejectRecord(t *testing.T) {
	d := testDecoder(t)

	line := testCoreLine()
	put(line, 0, "18X3") // corrupt YR

	rec, err := d.Assemble(line, 1)
	require.NoError(t, err)

	assert.True(t, rec.Core.Field("YR").IsMissing())
	require.Len(t, rec.Problems, 1)
	assert.Equal(t, ProblemDecode, rec.Problems[0].Kind)
	assert.Equal(t, "YR", rec.Problems[0].Field)
	assert.Equal(t, "core", rec.Problems[0].Section)

	// The rest of the record decodes normally.
	assert.Equal(t, IntValue(1), rec.Core.Field("MO"))
}

func TestAssemble_Deterministic(t *testing.T) {
	d := testDecoder(t)

	line := append(testCoreLine(), testAttm1()...)
	put(line, 43, "ZZ") // unknown country code, so problems are exercised too

	first, err := d.Assemble(line, 5)
	require.NoError(t, err)
	second, err := d.Assemble(line, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestAssemble_SpecScenario exercises the canonical layout: a 100-byte core
// plus a 15-byte "98" attachment with sentinel "9815" at bytes 100-103.
func TestAssemble_SpecScenario(t *testing.T) {
	def := []byte(`{
		"name": "scenario", "version": "1",
		"sections": [
			{"id": "core", "length": 100, "fields": [
				{"name": "ID", "width": 10, "kind": "str"}
			]},
			{"id": "98", "sentinel": "9815", "length": 15, "fields": [
				{"name": "UID", "width": 6, "kind": "base36"},
				{"name": "RSA", "width": 1, "kind": "int"}
			]}
		]
	}`)
	schema, err := LoadSchema(def)
	require.NoError(t, err)
	d, err := NewDecoder(schema, nil)
	require.NoError(t, err)

	t.Run("115-byte line decodes core plus attachment 98", func(t *testing.T) {
		line := bytes.Repeat([]byte{' '}, 115)
		put(line, 0, "CALLSIGN")
		put(line, 100, "9815")
		put(line, 104, "000A7F")
		put(line, 110, "1")

		rec, err := d.Assemble(line, 1)
		require.NoError(t, err)
		require.Len(t, rec.Attachments, 1)
		att, ok := rec.Attachment("98")
		require.True(t, ok)
		assert.Equal(t, IntValue(1), att.Field("RSA"))
		assert.False(t, att.Field("UID").IsMissing())
		assert.Empty(t, rec.Problems)
	})

	t.Run("100-byte core-only line decodes clean", func(t *testing.T) {
		line := bytes.Repeat([]byte{' '}, 100)
		put(line, 0, "CALLSIGN")

		rec, err := d.Assemble(line, 1)
		require.NoError(t, err)
		assert.Empty(t, rec.Attachments)
		assert.Empty(t, rec.Problems)
	})

	t.Run("80-byte line is rejected with a truncated core", func(t *testing.T) {
		table := NewReportTable("mem")
		line := bytes.Repeat([]byte{' '}, 80)
		_, err := d.Assemble(line, 1)
		require.ErrorIs(t, err, ErrTruncatedCore)
		require.NoError(t, table.RejectLine(1, len(line), err))
		assert.Len(t, table.Rejections(), 1)
	})
}

func TestDecode_File(t *testing.T) {
	d := testDecoder(t)

	var content strings.Builder
	content.Write(testCoreLine())
	content.WriteByte('\n')
	content.WriteString("TOO SHORT")
	content.WriteByte('\n')
	content.Write(append(testCoreLine(), testAttm98()...))
	content.WriteByte('\n')

	table, err := d.Decode(strings.NewReader(content.String()), "IMMA1_R3.0.0T_1893-01")
	require.NoError(t, err)

	assert.True(t, table.Sealed())
	assert.Equal(t, 2, table.Len())
	require.Len(t, table.Rejections(), 1)
	rej := table.Rejections()[0]
	assert.Equal(t, 2, rej.LineNumber)
	assert.Contains(t, rej.Reason, "core")
	assert.NotEmpty(t, table.Checksum())

	prov, err := table.Provenance()
	require.NoError(t, err)
	assert.Equal(t, "IMMA1_R3.0.0T_1893-01", prov.SourcePath)
	assert.Equal(t, 2, prov.TotalRecords)
	assert.Equal(t, 1, prov.RejectedRecords)

	// Line numbers are preserved across the rejection.
	assert.Equal(t, 1, table.Record(0).LineNumber)
	assert.Equal(t, 3, table.Record(1).LineNumber)
}
