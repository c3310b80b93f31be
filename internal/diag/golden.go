package diag

import (
	"fmt"
	"sort"
	"strings"

	"rayzor/internal/source"
)

// renderedLine is one diagnostic flattened for golden-file comparison.
type renderedLine struct {
	path string
	line uint32
	col  uint32
	sev  string
	code string
	msg  string
}

// FormatGoldenDiagnostics renders diagnostics one per line in a stable
// order for golden-file tests. Entries pointing into stdlib or internal
// paths are dropped; notes render as extra "note" lines when includeNotes
// is set.
func FormatGoldenDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return render(diags, fs, includeNotes, true)
}

// FormatShortDiagnostics is the CLI variant: same line shape, no path
// filtering.
func FormatShortDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return render(diags, fs, includeNotes, false)
}

func render(diags []*Diagnostic, fs *source.FileSet, includeNotes, skipInternal bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	var lines []renderedLine
	for _, d := range diags {
		if l, ok := renderAt(fs, d.Primary, d.Severity.String(), d.Code, d.Message); ok {
			if !skipInternal || !internalPath(l.path) {
				lines = append(lines, l)
			}
		}
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			l, ok := renderAt(fs, n.Span, "note", d.Code, n.Msg)
			if !ok || (skipInternal && internalPath(l.path)) {
				continue
			}
			lines = append(lines, l)
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.path != b.path {
			return a.path < b.path
		}
		if a.line != b.line {
			return a.line < b.line
		}
		if a.col != b.col {
			return a.col < b.col
		}
		if a.sev != b.sev {
			return a.sev < b.sev
		}
		if a.code != b.code {
			return a.code < b.code
		}
		return a.msg < b.msg
	})

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%s %s %s:%d:%d %s", l.sev, l.code, l.path, l.line, l.col, l.msg)
	}
	return strings.Join(out, "\n")
}

func renderAt(fs *source.FileSet, span source.Span, sev string, code Code, msg string) (renderedLine, bool) {
	f := fs.Get(span.File)
	if f == nil {
		return renderedLine{}, false
	}
	pos := f.Position(span.Start)
	return renderedLine{
		path: fs.DisplayPath(span.File),
		line: pos.Line,
		col:  pos.Col,
		sev:  sev,
		code: code.ID(),
		msg:  flattenMessage(msg),
	}, true
}

// internalPath hides stdlib and compiler-internal files from golden
// output, since their positions shift with every toolchain change.
func internalPath(path string) bool {
	p := strings.TrimLeft(path, "/")
	return strings.HasPrefix(p, "stdlib/") ||
		strings.Contains(p, "/stdlib/") ||
		strings.HasPrefix(p, "internal/") ||
		strings.Contains(p, "/internal/")
}

func flattenMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
