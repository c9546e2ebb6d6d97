// Package transform rewrites authored RF2 files into their releasable
// form: authoring UUIDs become permanent SCTIDs, blank effective times are
// stamped, and module ids are corrected for rows referencing concept-model
// components.
//
// A StreamingFileTransformation is an ordered list of column rewrites
// applied to every data line of a file in one buffered pass; the header
// passes through untouched. Transformations run in two phases: the
// pre-process phase assigns new ids for each file's own id column, so that
// the final phase can resolve cross-file foreign keys purely from the
// shared identifier cache.
package transform
