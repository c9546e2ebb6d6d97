// Package builds tracks release products and their builds in the
// relational database. It records each build's lifecycle status and
// carries the cancellation flag that a running release phase polls.
//
// The database is optional: when no connection is configured the feature
// stays disabled and release phases run without build tracking.
package builds
