package diag

import "rayzor/internal/source"

// Note attaches secondary context to a diagnostic: a span worth pointing
// at and one short message ("declared here", "previous definition").
type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit is one concrete source change. An insertion has an empty span,
// a deletion has empty NewText; OldText, when set, guards against applying
// the edit to drifted content.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is a machine-applicable repair for a diagnostic. Fixes are plain
// data; applying them is the driver's business.
type Fix struct {
	Title     string
	Edits     []TextEdit
	Safe      bool // applicable without human review
	Preferred bool // the one to pick when several fixes compete
}

// Diagnostic is one finding from any phase of the pipeline: semantic
// model, CFG construction, the pass manager, the lifetime solver, or the
// bytecode codec.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

// New builds a diagnostic with no notes or fixes.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// NewError is New at SevError.
func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy carrying one more note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithFix returns a copy carrying a safe quick fix built from edits.
func (d Diagnostic) WithFix(title string, edits ...TextEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Edits: edits, Safe: true})
	return d
}
