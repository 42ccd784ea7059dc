// Package imma decodes archival marine weather reports stored in the IMMA
// (International Maritime Meteorological Archive) fixed-width text format.
//
// # Wire Format
//
// One report per line. A line is a mandatory 108-byte "core" section followed
// by zero or more optional attachments, each a fixed-width block identified by
// a four-byte sentinel at its lead: two bytes of attachment number plus two
// bytes of encoded length, e.g. " 165" (attachment " 1", 65 bytes) or "9815"
// (attachment "98", 15 bytes). Attachments appear in a fixed precedence
// order:
//
//	core, " 1", " 5", " 6", " 7", " 8", " 9", "95", "96", "97", "98", "99"
//
// with declared lengths 108, 65, 94, 68, 58, 102, 32, 61, 53, 32, 15 and a
// variable-length terminal supplemental attachment "99" (sentinel "99 0")
// that runs to the end of the line.
//
// Older archives use a single-byte legacy codepage, so all slicing here is
// byte-level, never rune-level.
//
// # Field Conventions
//
// Fields are fixed-width slices within a section, declared by a JSON schema
// (see [LoadSchema]). Decode kinds:
//
//	int     base-10 integer, blank-padded
//	float   base-10 fixed-point value times a declared scale,
//	        e.g. raw "-123" with scale 0.1 is -12.3
//	str     fixed-width text, trailing blanks trimmed
//	code    raw code looked up in a named code table
//	base36  base-36 integer (used by the UID attachment "98")
//
// An all-blank field (or one matching its declared missing pattern) decodes
// to Missing, never to zero or empty-string-as-present. Codes absent from
// their table decode to Unknown with the raw code preserved for audit;
// decades of archival data contain undocumented historical codes and a
// lookup miss is an expected outcome, not a failure.
//
// # Error Policy
//
// Schema and code-table load failures are fatal. A line shorter than the
// core section rejects that record ([ErrTruncatedCore]) and processing
// continues. Everything else (a corrupt numeric field, an unknown code,
// unrecognized trailing bytes, a truncated attachment) is recorded as a
// structured problem on the Record and the record is still accepted, so a
// single malformed report among millions never aborts a multi-decade batch.
//
// # Provenance
//
// Every raw line read, whatever its decode outcome, is folded into a running
// MD5 over the file's byte stream. Two files carry the same checksum iff
// their raw bytes are identical, which downstream stages use for
// provenance and duplicate-file detection independent of schema version.
package imma
