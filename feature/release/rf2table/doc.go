// Package rf2table implements the in-memory versioned row store used to
// assemble RF2 release files.
//
// A Table holds every historical state of one component file keyed by
// (id, effectiveTime). Rows are loaded from Delta or Full text streams,
// optionally merged with previously published content, and read back
// through forward-only ordered cursors for export.
//
// The package also carries the workbench data fixes: repair heuristics for
// defects left behind by a historical authoring tool. Reference set rows
// get a regex-derived composite identity (refset id, referenced component
// and type-specific extra columns) so that logically equivalent members
// with different surrogate ids can be collapsed and re-keyed against the
// previous release.
//
// A Table serves exactly one export job. It is single-writer,
// single-reader, holds everything in memory, and must be closed promptly
// after export to release the backing maps.
package rf2table
