package elemid

import (
	"fmt"
	"strings"
)

// Separator joins path segments in the canonical string form.
const Separator = "."

// ID is a hierarchical element identity. The zero value is the empty
// identity, which addresses nothing.
type ID struct {
	parts []string
}

// New builds an identity from its path segments, leading with the top-level
// declaration name.
func New(parts ...string) ID {
	cp := make([]string, len(parts))
	copy(cp, parts)
	return ID{parts: cp}
}

// Parse converts a canonical dot-separated string back into an identity.
func Parse(full string) (ID, error) {
	if full == "" {
		return ID{}, fmt.Errorf("cannot parse an empty element identity")
	}
	parts := strings.Split(full, Separator)
	for _, p := range parts {
		if p == "" {
			return ID{}, fmt.Errorf("malformed element identity %q: empty segment", full)
		}
	}
	return ID{parts: parts}, nil
}

// String serializes the identity into its canonical dot-separated form.
func (id ID) String() string {
	return strings.Join(id.parts, Separator)
}

// IsEmpty reports whether the identity addresses nothing.
func (id ID) IsEmpty() bool {
	return len(id.parts) == 0
}

// Parts returns a copy of the path segments.
func (id ID) Parts() []string {
	cp := make([]string, len(id.parts))
	copy(cp, id.parts)
	return cp
}

// Depth returns the number of path segments.
func (id ID) Depth() int {
	return len(id.parts)
}

// Nested extends the identity with additional path segments, addressing a
// value inside the element.
func (id ID) Nested(parts ...string) ID {
	joined := make([]string, 0, len(id.parts)+len(parts))
	joined = append(joined, id.parts...)
	joined = append(joined, parts...)
	return ID{parts: joined}
}

// Parent returns the identity with its last segment removed. The parent of a
// single-segment identity is the empty identity.
func (id ID) Parent() ID {
	if len(id.parts) <= 1 {
		return ID{}
	}
	return ID{parts: id.parts[:len(id.parts)-1]}
}

// TopLevel returns the identity truncated to its first segment.
func (id ID) TopLevel() ID {
	if len(id.parts) == 0 {
		return ID{}
	}
	return ID{parts: id.parts[:1]}
}

// Prefixes returns every prefix identity, shortest first, including the
// identity itself. A reference to a.b.c therefore also marks a and a.b.
func (id ID) Prefixes() []ID {
	out := make([]ID, 0, len(id.parts))
	for i := 1; i <= len(id.parts); i++ {
		out = append(out, ID{parts: id.parts[:i]})
	}
	return out
}

// Equal checks for structural equality between two identities.
func (id ID) Equal(other ID) bool {
	if len(id.parts) != len(other.parts) {
		return false
	}
	for i := range id.parts {
		if id.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// ContainedIn reports whether the identity is the given identity or one of
// its descendants.
func (id ID) ContainedIn(ancestor ID) bool {
	if len(ancestor.parts) > len(id.parts) {
		return false
	}
	for i := range ancestor.parts {
		if id.parts[i] != ancestor.parts[i] {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// the empty identity so that optional identity fields survive a round trip.
func (id *ID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
