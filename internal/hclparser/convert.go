package hclparser

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

// convertExpression turns one HCL expression into a value from the closed
// union. Traversal state is held in an explicit frame stack so partially
// built containers are plain inspectable data, not a chain of mutually
// referencing visitors.
func convertExpression(expr hclsyntax.Expression, filename string) (element.Value, []parser.ParseError) {
	c := &exprConverter{filename: filename}
	hclsyntax.Walk(expr, c)
	if c.result == nil {
		// Every handled expression emits something; reaching here means the
		// expression form itself was rejected.
		c.result = element.NewPrim(cty.NullVal(cty.DynamicPseudoType))
	}
	return c.result, c.errs
}

// frame is one in-progress container during the walk.
type frame struct {
	node       hclsyntax.Node // expression that opened the frame
	items      []element.Value
	fields     map[string]element.Value
	pendingKey string
	hasKey     bool
}

type exprConverter struct {
	filename string
	stack    []*frame
	result   element.Value
	errs     []parser.ParseError

	// skip marks a node whose subtree was handled wholesale on Enter;
	// everything until its Exit is ignored.
	skip hclsyntax.Node
}

func (c *exprConverter) Enter(node hclsyntax.Node) hcl.Diagnostics {
	if c.skip != nil {
		return nil
	}

	switch n := node.(type) {
	case *hclsyntax.TupleConsExpr:
		c.push(&frame{node: n})

	case *hclsyntax.ObjectConsExpr:
		c.push(&frame{node: n, fields: map[string]element.Value{}})

	case *hclsyntax.ObjectConsKeyExpr:
		c.enterObjectKey(n)
		c.skip = n

	case *hclsyntax.ScopeTraversalExpr:
		c.emit(&element.Ref{Target: traversalID(n.Traversal)})
		c.skip = n

	case *hclsyntax.LiteralValueExpr:
		c.emit(element.NewPrim(n.Val))
		c.skip = n

	case *hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr:
		c.evaluate(n.(hclsyntax.Expression), "string template")
		c.skip = n

	case *hclsyntax.ParenthesesExpr:
		// Transparent; the wrapped expression follows.

	case *hclsyntax.FunctionCallExpr:
		c.fail(n.Range(), "unsupported expression",
			fmt.Sprintf("function calls (%s) are not supported in configuration values", n.Name))
		c.skip = n

	case hclsyntax.Expression:
		// Conditionals, for-expressions and friends: accept them only when
		// they fold to a constant.
		c.evaluate(n, "expression")
		c.skip = n
	}
	return nil
}

func (c *exprConverter) Exit(node hclsyntax.Node) hcl.Diagnostics {
	if c.skip != nil {
		if c.skip == node {
			c.skip = nil
		}
		return nil
	}

	switch node.(type) {
	case *hclsyntax.TupleConsExpr:
		f := c.pop()
		c.emit(&element.List{Items: f.items})

	case *hclsyntax.ObjectConsExpr:
		f := c.pop()
		c.emit(&element.Record{Fields: f.fields})
	}
	return nil
}

func (c *exprConverter) enterObjectKey(n *hclsyntax.ObjectConsKeyExpr) {
	top := c.top()
	if top == nil || top.fields == nil {
		c.fail(n.Range(), "misplaced object key", "object key outside of an object constructor")
		return
	}
	val, diags := n.Value(nil)
	if diags.HasErrors() || !val.IsKnown() || val.Type() != cty.String {
		c.fail(n.Range(), "unsupported object key", "object keys must be static strings")
		top.pendingKey, top.hasKey = "", false
		return
	}
	top.pendingKey, top.hasKey = val.AsString(), true
}

// evaluate folds an expression with no variables or functions in scope and
// emits the outcome as a primitive.
func (c *exprConverter) evaluate(expr hclsyntax.Expression, what string) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() || !val.IsKnown() {
		c.fail(expr.Range(), "unsupported expression",
			fmt.Sprintf("%s does not fold to a constant value", what))
		c.emit(element.NewPrim(cty.NullVal(cty.String)))
		return
	}
	c.emit(element.NewPrim(val))
}

func (c *exprConverter) emit(v element.Value) {
	top := c.top()
	if top == nil {
		c.result = v
		return
	}
	if top.fields != nil {
		if !top.hasKey {
			// Key conversion already reported; drop the orphan value.
			return
		}
		top.fields[top.pendingKey] = v
		top.pendingKey, top.hasKey = "", false
		return
	}
	top.items = append(top.items, v)
}

func (c *exprConverter) push(f *frame) {
	c.stack = append(c.stack, f)
}

func (c *exprConverter) pop() *frame {
	f := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return f
}

func (c *exprConverter) top() *frame {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *exprConverter) fail(r hcl.Range, summary, detail string) {
	c.errs = append(c.errs, parser.ParseError{
		Summary: summary,
		Detail:  detail,
		Subject: rangeOf(c.filename, r),
	})
}

// traversalID converts an HCL traversal (a.b.c, a[0].b) into an element
// identity; index steps become plain path segments.
func traversalID(t hcl.Traversal) elemid.ID {
	parts := make([]string, 0, len(t))
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		case hcl.TraverseIndex:
			if s.Key.Type() == cty.String {
				parts = append(parts, s.Key.AsString())
			} else {
				parts = append(parts, s.Key.AsBigFloat().Text('f', -1))
			}
		}
	}
	return elemid.New(parts...)
}
