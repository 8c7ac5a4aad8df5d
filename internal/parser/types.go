package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
)

// Pos is a position within a file's text.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
	Byte int `json:"byte"`
}

// SourceRange is a span of text within a specific file.
type SourceRange struct {
	Filename string `json:"filename"`
	Start    Pos    `json:"start"`
	End      Pos    `json:"end"`
}

// SourceMap maps element identities (canonical string form) to the ranges of
// text that declare them. One identity may map to several ranges within the
// same file, e.g. an element declared and later extended.
type SourceMap map[string][]SourceRange

// Add records a range for an identity.
func (m SourceMap) Add(id elemid.ID, r SourceRange) {
	m[id.String()] = append(m[id.String()], r)
}

// Ranges returns the recorded ranges for an identity, or nil.
func (m SourceMap) Ranges(id elemid.ID) []SourceRange {
	return m[id.String()]
}

// ParseError is a syntax or structural problem found in one file. Parse
// errors are data, not control flow: they ride along in the parse result and
// never abort other files.
type ParseError struct {
	Summary string      `json:"summary"`
	Detail  string      `json:"detail,omitempty"`
	Subject SourceRange `json:"subject"`
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d,%d: %s", e.Subject.Filename, e.Subject.Start.Line, e.Subject.Start.Col, e.Summary)
}

// Result is the raw outcome of parsing one buffer, before reference
// extraction. This is the unit stored in the parse cache.
type Result struct {
	Elements  []*element.Element `json:"elements"`
	Errors    []ParseError       `json:"errors,omitempty"`
	SourceMap SourceMap          `json:"sourceMap,omitempty"`
}

// ParsedFile is one file's fully ingested parse state. It is owned by the
// state manager once ingested and is replaced wholesale on re-parse, never
// mutated in place.
type ParsedFile struct {
	Filename   string
	Timestamp  time.Time
	Elements   []*element.Element
	Errors     []ParseError
	Referenced []elemid.ID
	SourceMap  SourceMap
}

// Tombstone builds the parsed form of a deleted or emptied file: no
// elements, no errors. The state manager drops such entries from its file
// map instead of keeping them around empty.
func Tombstone(filename string, ts time.Time) *ParsedFile {
	return &ParsedFile{Filename: filename, Timestamp: ts}
}

// IsTombstone reports whether the file carries no content at all.
func (f *ParsedFile) IsTombstone() bool {
	return len(f.Elements) == 0 && len(f.Errors) == 0
}

// Parser is the narrow interface to a concrete configuration-language
// parser. Implementations must degrade to per-file error reporting: a buffer
// that fails to parse yields a Result with populated Errors, not a non-nil
// error. The error return is reserved for environmental failures.
type Parser interface {
	Parse(ctx context.Context, buffer []byte, filename string) (*Result, error)
}

// Cache is the narrow interface to a parse-result cache backend.
type Cache interface {
	Get(ctx context.Context, key Key) (*Result, bool, error)
	Put(ctx context.Context, key Key, result *Result) error
	Clear(ctx context.Context) error
	// Rename moves the cache namespace when the owning workspace is renamed.
	Rename(ctx context.Context, newName string) error
	Flush(ctx context.Context) error
	Clone() Cache
}

// Input is one file buffer handed to the invoker.
type Input struct {
	Filename string
	Buffer   []byte
	Modified time.Time
}
