// Package diag carries the diagnostic model every compiler phase reports
// through: the semantic model, the CFG builder, the pass pipeline, the
// lifetime solver, and the bytecode codec.
//
// A Diagnostic is plain data: severity, a stable numeric Code (codes.go),
// a message, a primary span, optional notes, and optional machine-applicable
// fixes. The package does no formatting or IO beyond the golden-file
// renderer used by tests; presentation belongs to the CLI, orchestration to
// internal/driver.
//
// Phases emit through a Reporter so storage stays the caller's choice.
// BagReporter collects into a capped Bag (sortable, dedupable, with a
// dropped-count once the cap is hit); DedupReporter suppresses repeats;
// ReportBuilder chains notes and fixes onto one record before emitting.
//
// Everything here is deterministic: identical inputs produce identical
// diagnostics in identical order, so bags can be compared in golden tests
// and serialized for caching.
package diag
