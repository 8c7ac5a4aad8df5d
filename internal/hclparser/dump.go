package hclparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/parser"
	"github.com/zclconf/go-cty/cty"
)

// DumpElement renders one element as canonical configuration text. The
// output parses back into an element equal to the input.
func DumpElement(e *element.Element) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	if err := appendElement(f.Body(), e); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// DumpValue renders a single value, e.g. for substituting one attribute's
// text in place.
func DumpValue(v element.Value) ([]byte, error) {
	tokens, err := valueTokens(v)
	if err != nil {
		return nil, err
	}
	return tokens.Bytes(), nil
}

// SyntheticResult builds the parse result a dumped element would produce
// without invoking the parser: the fast path for creating a file from a
// single whole-element addition. The source map covers the whole buffer for
// the element's identity.
func SyntheticResult(e *element.Element, filename string, buffer []byte) *parser.Result {
	lines := strings.Count(string(buffer), "\n") + 1
	sm := parser.SourceMap{}
	sm.Add(e.ID, parser.SourceRange{
		Filename: filename,
		Start:    parser.Pos{Line: 1, Col: 1, Byte: 0},
		End:      parser.Pos{Line: lines, Col: 1, Byte: len(buffer)},
	})
	return &parser.Result{Elements: []*element.Element{e}, SourceMap: sm}
}

func appendElement(body *hclwrite.Body, e *element.Element) error {
	switch e.Kind {
	case element.TypeDecl:
		blk := body.AppendNewBlock(blockTypeType, []string{e.ID.String()})
		if err := appendAnnotations(blk.Body(), e.Annotations); err != nil {
			return err
		}
		for _, f := range e.OrderedFields() {
			if err := appendField(blk.Body(), f); err != nil {
				return err
			}
		}
		return nil

	case element.Settings:
		blk := body.AppendNewBlock(blockTypeSettings, []string{e.ID.String()})
		return appendAnnotations(blk.Body(), e.Annotations)

	case element.Instance:
		instName := lastSegment(e.ID)
		var blk *hclwrite.Block
		if typeName := e.TypeID.String(); isIdentifier(typeName) {
			blk = body.AppendNewBlock(typeName, []string{instName})
		} else {
			blk = body.AppendNewBlock(blockTypeInstance, []string{typeName, instName})
		}
		record, ok := e.Value.(*element.Record)
		if e.Value != nil && !ok {
			return fmt.Errorf("instance %s: value must be a record, got %s", e.ID, e.Value.Kind())
		}
		if record != nil {
			if err := appendRecordAttrs(blk.Body(), record); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot dump element %s of kind %s", e.ID, e.Kind)
}

func appendField(body *hclwrite.Body, f *element.Field) error {
	var blk *hclwrite.Block
	if f.Container == wrapperList {
		blk = body.AppendNewBlock(wrapperList, []string{f.Type.String(), f.Name})
	} else {
		blk = body.AppendNewBlock(f.Type.String(), []string{f.Name})
	}
	return appendAnnotations(blk.Body(), f.Annotations)
}

func appendAnnotations(body *hclwrite.Body, annotations map[string]element.Value) error {
	for _, name := range sortedNames(annotations) {
		tokens, err := valueTokens(annotations[name])
		if err != nil {
			return err
		}
		body.SetAttributeRaw(name, tokens)
	}
	return nil
}

func appendRecordAttrs(body *hclwrite.Body, record *element.Record) error {
	for _, name := range sortedNames(record.Fields) {
		tokens, err := valueTokens(record.Fields[name])
		if err != nil {
			return err
		}
		body.SetAttributeRaw(name, tokens)
	}
	return nil
}

// valueTokens renders a value as expression tokens. References become bare
// traversals, so containers are assembled from token parts rather than cty
// values.
func valueTokens(v element.Value) (hclwrite.Tokens, error) {
	if v == nil {
		return hclwrite.TokensForValue(cty.NullVal(cty.DynamicPseudoType)), nil
	}
	switch tv := v.(type) {
	case *element.Prim:
		return hclwrite.TokensForValue(tv.V), nil

	case *element.Ref:
		return hclwrite.TokensForTraversal(idTraversal(tv.Target)), nil

	case *element.TypeRef:
		return hclwrite.TokensForTraversal(idTraversal(tv.Target)), nil

	case *element.List:
		parts := make([]hclwrite.Tokens, len(tv.Items))
		for i, item := range tv.Items {
			tokens, err := valueTokens(item)
			if err != nil {
				return nil, err
			}
			parts[i] = tokens
		}
		return hclwrite.TokensForTuple(parts), nil

	case *element.Record:
		attrs := make([]hclwrite.ObjectAttrTokens, 0, len(tv.Fields))
		for _, name := range sortedNames(tv.Fields) {
			valTokens, err := valueTokens(tv.Fields[name])
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, hclwrite.ObjectAttrTokens{
				Name:  keyTokens(name),
				Value: valTokens,
			})
		}
		return hclwrite.TokensForObject(attrs), nil
	}
	return nil, fmt.Errorf("cannot render value of kind %s", v.Kind())
}

func keyTokens(name string) hclwrite.Tokens {
	if isIdentifier(name) {
		return hclwrite.TokensForIdentifier(name)
	}
	return hclwrite.TokensForValue(cty.StringVal(name))
}

func idTraversal(id elemid.ID) hcl.Traversal {
	parts := id.Parts()
	t := hcl.Traversal{hcl.TraverseRoot{Name: parts[0]}}
	for _, p := range parts[1:] {
		t = append(t, hcl.TraverseAttr{Name: p})
	}
	return t
}

func isIdentifier(s string) bool {
	return s != "" && hclsyntax.ValidIdentifier(s)
}

func lastSegment(id elemid.ID) string {
	parts := id.Parts()
	return parts[len(parts)-1]
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
