// Package release orchestrates the generation of RF2 release files for
// one build.
//
// The transformation phase rewrites each authored input file through the
// two-phase streaming pipeline (id assignment, then foreign-key and
// metadata resolution), sharing one identifier cache across files. The
// export phase then builds a versioned row store per transformed Delta
// file, reconciles it against previously published history, and writes
// the Delta, Full and Snapshot export forms back to storage.
//
// Each per-file generation step is retried on transient storage or
// network failures up to a configured budget; configuration and format
// defects fail immediately. Any terminal failure aborts the build's
// export with a GenerationError naming the offending file.
package release
