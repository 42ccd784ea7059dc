package imma

import "bytes"

// detectNext determines which attachment, if any, begins at line[cursor:].
// Candidates are tried in schema order starting at sections[from]; a
// sentinel match declares the section present, a miss moves on to the next
// candidate without consuming bytes. The walk never revisits an earlier
// section, matching the fixed precedence order of attachments within a
// line. Returns -1 when the line is exhausted or no remaining candidate
// matches.
//
// Comparison is exact and case-sensitive. A near-miss is absence, not an
// error: historical data routinely omits trailing attachments.
func detectNext(line []byte, cursor int, sections []SectionSpec, from int) int {
	remaining := len(line) - cursor
	if remaining <= 0 {
		return -1
	}
	for i := from; i < len(sections); i++ {
		sentinel := []byte(sections[i].Sentinel)
		if len(sentinel) == 0 || len(sentinel) > remaining {
			continue
		}
		if bytes.Equal(line[cursor:cursor+len(sentinel)], sentinel) {
			return i
		}
	}
	return -1
}
