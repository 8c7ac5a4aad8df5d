package apply

import (
	"fmt"

	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/merge"
)

// DetailedChange is one requested mutation, scoped to an element identity or
// any of its sub-paths.
//
// For a whole-element addition, Element carries the element to write and
// Filename names the file to put it in. Sub-path additions and modifications
// carry the new value in After; removals carry the removed value in Before
// so referenced static files can be cleaned up.
type DetailedChange struct {
	ID     elemid.ID
	Action merge.Action

	Before element.Value
	After  element.Value

	// Element is the whole element being added. Required when Action is add
	// and ID is top-level.
	Element *element.Element

	// Filename pins the change to one file. Required for whole-element
	// additions; otherwise the owning files are resolved from the snapshot.
	Filename string
}

func (c DetailedChange) validate() error {
	if c.ID.IsEmpty() {
		return fmt.Errorf("change has no target identity")
	}
	switch c.Action {
	case merge.ActionAdd:
		if c.ID.Depth() == 1 {
			if c.Element == nil {
				return fmt.Errorf("adding %s: whole-element additions need the element", c.ID)
			}
			if c.Filename == "" {
				return fmt.Errorf("adding %s: whole-element additions need a target filename", c.ID)
			}
		} else if c.After == nil {
			return fmt.Errorf("adding %s: no value to add", c.ID)
		}
	case merge.ActionModify:
		if c.After == nil && c.Element == nil {
			return fmt.Errorf("modifying %s: no new value", c.ID)
		}
	case merge.ActionRemove:
	default:
		return fmt.Errorf("change on %s: unknown action %q", c.ID, c.Action)
	}
	return nil
}

func isWholeElementAdd(c DetailedChange) bool {
	return c.Action == merge.ActionAdd && c.ID.Depth() == 1 && c.Element != nil
}

// String summarizes the change for logging.
func (c DetailedChange) String() string {
	if c.Filename != "" {
		return fmt.Sprintf("%s %s in %s", c.Action, c.ID, c.Filename)
	}
	return fmt.Sprintf("%s %s", c.Action, c.ID)
}
