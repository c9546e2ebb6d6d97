// Package export writes RF2 Delta, Full and Snapshot release files from an
// ordered row cursor.
//
// Delta output is the current cycle's rows minus any keys flagged as
// already-published duplicates. Full output is the complete history
// unchanged. Snapshot output keeps, per component id, the latest state
// whose effective time is at or before the requested date; ids with no
// qualifying state are omitted entirely.
//
// All writers emit the RF2 wire form: tab-separated columns, CRLF line
// terminators, UTF-8 passthrough of the source text.
package export
