package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
	"github.com/cespare/xxhash/v2"
)

// FileID names one source file inside a FileSet.
type FileID uint32

// LineCol is a 1-based human-readable position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// File is one registered source: normalized content, a line-start index
// for offset resolution, and a content digest for cache keys.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Digest  uint64
	Virtual bool // добавлен не с диска (тест, stdin)

	// starts[k] is the byte offset where line k+1 begins; starts[0] == 0.
	starts []uint32
}

// FileSet owns the files of one compilation and resolves spans to
// line/column positions. Not safe for concurrent mutation.
type FileSet struct {
	files   []File
	byPath  map[string]FileID
	baseDir string
}

// NewFileSet creates an empty set.
func NewFileSet() *FileSet {
	return &FileSet{byPath: make(map[string]FileID)}
}

// SetBaseDir sets the directory display paths are made relative to.
func (fs *FileSet) SetBaseDir(dir string) { fs.baseDir = dir }

// BaseDir returns the display base directory, defaulting to the working
// directory when unset.
func (fs *FileSet) BaseDir() string {
	if fs.baseDir != "" {
		return fs.baseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Add registers already-normalized content under path and returns the new
// id. Re-adding a path registers a fresh file; the path index tracks the
// latest version.
func (fs *FileSet) Add(path string, content []byte) FileID {
	return fs.add(path, content, false)
}

// AddVirtual registers in-memory content (tests, stdin, generated code).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.add(name, content, true)
}

func (fs *FileSet) add(path string, content []byte, virtual bool) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file set overflow: %w", err))
	}
	id := FileID(n)
	clean := cleanPath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    clean,
		Content: content,
		Digest:  xxhash.Sum64(content),
		Virtual: virtual,
		starts:  lineStarts(content),
	})
	fs.byPath[clean] = id
	return id
}

// Load reads a file from disk, strips a UTF-8 BOM, normalizes CRLF line
// endings, and registers the result.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.Add(path, normalizeText(raw)), nil
}

// Get returns the file for id, or nil for an unknown id.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the latest file registered under path.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	id, ok := fs.byPath[cleanPath(path)]
	if !ok {
		return nil, false
	}
	return &fs.files[id], true
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int { return len(fs.files) }

// Resolve converts a span into start and end line/column positions.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: 1}, LineCol{Line: 1, Col: 1}
	}
	return f.Position(span.Start), f.Position(span.End)
}

// DisplayPath renders a file's path relative to the base directory when
// possible, slash-separated on every platform.
func (fs *FileSet) DisplayPath(id FileID) string {
	f := fs.Get(id)
	if f == nil {
		return ""
	}
	if f.Virtual {
		return f.Path
	}
	if rel, err := filepath.Rel(fs.BaseDir(), f.Path); err == nil && !filepath.IsAbs(rel) {
		return filepath.ToSlash(rel)
	}
	return f.Path
}

// Position converts a byte offset into a 1-based line/column pair. The
// offset of a newline byte resolves to the end of the line it terminates.
func (f *File) Position(off uint32) LineCol {
	// Последняя строка, начинающаяся не позже off; starts[0] == 0, so the
	// search always lands at i >= 1.
	i := sort.Search(len(f.starts), func(k int) bool { return f.starts[k] > off })
	return LineCol{Line: uint32(i), Col: off - f.starts[i-1] + 1}
}

// Line returns the 1-based line's text without its newline, or "" when
// out of range.
func (f *File) Line(n uint32) string {
	if n == 0 || int(n) > len(f.starts) {
		return ""
	}
	start := f.starts[n-1]
	end := uint32(len(f.Content))
	if int(n) < len(f.starts) {
		end = f.starts[n] - 1 // drop the terminating '\n'
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int { return len(f.starts) }

func cleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
