package apply

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/nacl-lang/workspace/internal/hclparser"
	"github.com/nacl-lang/workspace/internal/merge"
	"github.com/nacl-lang/workspace/internal/parser"
)

// edit is one span replacement. Inserts have start == end.
type edit struct {
	start, end int
	text       []byte
}

// rewrite computes the file's new buffer from its change group. All edits
// are located against the file's source map for the old buffer, then applied
// back-to-front so earlier offsets stay valid.
func (a *Applicator) rewrite(sm parser.SourceMap, group fileGroup, before []byte) ([]byte, error) {
	var edits []edit
	for _, c := range group.changes {
		es, err := changeEdits(sm, c, before)
		if err != nil {
			return nil, err
		}
		edits = append(edits, es...)
	}

	// Back to front. Inserts at the same offset keep submission order.
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for i := 1; i < len(edits); i++ {
		if edits[i].end > edits[i-1].start {
			return nil, fmt.Errorf("overlapping edits at bytes %d and %d", edits[i].start, edits[i-1].start)
		}
	}

	after := append([]byte(nil), before...)
	for _, e := range edits {
		if e.start < 0 || e.end > len(after) || e.start > e.end {
			return nil, fmt.Errorf("edit out of range: [%d,%d) of %d bytes", e.start, e.end, len(after))
		}
		after = append(after[:e.start], append(e.text, after[e.end:]...)...)
	}
	return after, nil
}

func changeEdits(sm parser.SourceMap, c DetailedChange, buffer []byte) ([]edit, error) {
	switch c.Action {
	case merge.ActionRemove:
		return removeEdits(sm, c, buffer)
	case merge.ActionModify:
		return modifyEdits(sm, c)
	case merge.ActionAdd:
		return addEdits(sm, c, buffer)
	}
	return nil, fmt.Errorf("%s: unknown action %q", c.ID, c.Action)
}

// removeEdits deletes every recorded span of the identity, widening each to
// swallow its line indentation and trailing newline.
func removeEdits(sm parser.SourceMap, c DetailedChange, buffer []byte) ([]edit, error) {
	ranges := fileRanges(sm, c)
	if len(ranges) == 0 {
		return nil, fmt.Errorf("removing %s: no source range recorded", c.ID)
	}
	edits := make([]edit, 0, len(ranges))
	for _, r := range ranges {
		start, end := widenToLine(buffer, r.Start.Byte, r.End.Byte)
		edits = append(edits, edit{start: start, end: end})
	}
	return edits, nil
}

// modifyEdits replaces the identity's first recorded span with regenerated
// text: the whole element for top-level targets, a single attribute
// otherwise.
func modifyEdits(sm parser.SourceMap, c DetailedChange) ([]edit, error) {
	ranges := fileRanges(sm, c)
	if len(ranges) == 0 {
		return nil, fmt.Errorf("modifying %s: no source range recorded", c.ID)
	}
	r := ranges[0]

	if c.ID.Depth() == 1 {
		if c.Element == nil {
			return nil, fmt.Errorf("modifying %s: whole-element modification needs the element", c.ID)
		}
		text, err := hclparser.DumpElement(c.Element)
		if err != nil {
			return nil, fmt.Errorf("modifying %s: %w", c.ID, err)
		}
		return []edit{{start: r.Start.Byte, end: r.End.Byte, text: bytes.TrimRight(text, "\n")}}, nil
	}

	text, err := attributeText(c, "")
	if err != nil {
		return nil, err
	}
	return []edit{{start: r.Start.Byte, end: r.End.Byte, text: text}}, nil
}

// addEdits inserts new text: a whole element appended to the file, or an
// attribute inserted just before the enclosing block's closing brace.
func addEdits(sm parser.SourceMap, c DetailedChange, buffer []byte) ([]edit, error) {
	if c.ID.Depth() == 1 {
		text, err := hclparser.DumpElement(c.Element)
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", c.ID, err)
		}
		if len(buffer) > 0 && !bytes.HasSuffix(buffer, []byte("\n")) {
			text = append([]byte("\n"), text...)
		}
		return []edit{{start: len(buffer), end: len(buffer), text: text}}, nil
	}

	parent, ok := deepestAncestorRange(sm, c)
	if !ok {
		return nil, fmt.Errorf("adding %s: no enclosing declaration found", c.ID)
	}
	// The parent span must be a block so there is a closing brace to insert
	// before.
	if parent.End.Byte < 1 || parent.End.Byte > len(buffer) || buffer[parent.End.Byte-1] != '}' {
		return nil, fmt.Errorf("adding %s: enclosing declaration is not a block", c.ID)
	}

	text, err := attributeText(c, "  ")
	if err != nil {
		return nil, err
	}
	text = append(text, '\n')
	return []edit{{start: parent.End.Byte - 1, end: parent.End.Byte - 1, text: text}}, nil
}

// attributeText renders "name = value" for the change's leaf segment.
func attributeText(c DetailedChange, indent string) ([]byte, error) {
	value, err := hclparser.DumpValue(c.After)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.Action, c.ID, err)
	}
	parts := c.ID.Parts()
	name := parts[len(parts)-1]
	return []byte(fmt.Sprintf("%s%s = %s", indent, name, bytes.TrimSpace(value))), nil
}

// fileRanges returns the change's recorded spans in this file's map.
func fileRanges(sm parser.SourceMap, c DetailedChange) []parser.SourceRange {
	if sm == nil {
		return nil
	}
	return sm.Ranges(c.ID)
}

func deepestAncestorRange(sm parser.SourceMap, c DetailedChange) (parser.SourceRange, bool) {
	if sm == nil {
		return parser.SourceRange{}, false
	}
	return deepestAncestor(sm, c.ID)
}

// widenToLine extends a span over its leading indentation and one trailing
// newline, so deletions do not leave blank lines behind.
func widenToLine(buffer []byte, start, end int) (int, int) {
	for start > 0 && (buffer[start-1] == ' ' || buffer[start-1] == '\t') {
		start--
	}
	for end < len(buffer) && (buffer[end] == ' ' || buffer[end] == '\t') {
		end++
	}
	if end < len(buffer) && buffer[end] == '\n' {
		end++
	}
	return start, end
}
