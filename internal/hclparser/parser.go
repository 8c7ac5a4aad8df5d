package hclparser

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/nacl-lang/workspace/internal/ctxlog"
	"github.com/nacl-lang/workspace/internal/element"
	"github.com/nacl-lang/workspace/internal/elemid"
	"github.com/nacl-lang/workspace/internal/parser"
)

// blockTypeType declares an object type, blockTypeSettings a settings
// element, blockTypeInstance the two-label instance form.
const (
	blockTypeType     = "type"
	blockTypeSettings = "settings"
	blockTypeInstance = "instance"
	wrapperList       = "list"
)

// Parser implements parser.Parser on hclsyntax.
type Parser struct{}

// New creates an HCL-backed parser.
func New() *Parser {
	return &Parser{}
}

// Parse translates one buffer into elements, errors and a source map. The
// returned error is always nil: every failure mode degrades into parse
// errors in the result.
func (p *Parser) Parse(ctx context.Context, buffer []byte, filename string) (*parser.Result, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclsyntax.ParseConfig(buffer, filename, hcl.InitialPos)
	result := &parser.Result{SourceMap: parser.SourceMap{}}
	result.Errors = append(result.Errors, diagsToErrors(filename, diags)...)

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		logger.Debug("parse produced no syntax body", "filename", filename, "errors", len(result.Errors))
		return result, nil
	}

	for _, block := range body.Blocks {
		elem, errs := p.translateBlock(block, filename, result.SourceMap)
		result.Errors = append(result.Errors, errs...)
		if elem != nil {
			result.Elements = append(result.Elements, elem)
		}
	}

	logger.Debug("parsed file", "filename", filename, "elements", len(result.Elements), "errors", len(result.Errors))
	return result, nil
}

func (p *Parser) translateBlock(block *hclsyntax.Block, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	switch {
	case block.Type == blockTypeType:
		return p.translateType(block, filename, sm)
	case block.Type == blockTypeSettings:
		return p.translateSettings(block, filename, sm)
	case block.Type == blockTypeInstance:
		return p.translateInstanceForm(block, filename, sm)
	default:
		return p.translateInstance(block, filename, sm)
	}
}

// translateType handles "type <name> { ... }".
func (p *Parser) translateType(block *hclsyntax.Block, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	if len(block.Labels) != 1 {
		return nil, []parser.ParseError{blockError(block, filename, "invalid type declaration", "a type block requires exactly one name label")}
	}
	id, err := elemid.Parse(block.Labels[0])
	if err != nil {
		return nil, []parser.ParseError{blockError(block, filename, "invalid type name", err.Error())}
	}

	elem := &element.Element{
		ID:     id,
		Kind:   element.TypeDecl,
		Fields: map[string]*element.Field{},
	}
	var errs []parser.ParseError

	elem.Annotations, errs = p.translateAttributes(block.Body.Attributes, id, filename, sm)

	for _, fieldBlock := range block.Body.Blocks {
		field, ferrs := p.translateField(fieldBlock, id, filename, sm)
		errs = append(errs, ferrs...)
		if field == nil {
			continue
		}
		if _, exists := elem.Fields[field.Name]; exists {
			errs = append(errs, blockError(fieldBlock, filename, "duplicate field",
				"field "+field.Name+" is declared more than once in "+id.String()))
			continue
		}
		elem.Fields[field.Name] = field
		elem.FieldOrder = append(elem.FieldOrder, field.Name)
	}

	sm.Add(id, rangeOf(filename, block.Range()))
	return elem, errs
}

// translateField handles "<fieldType> <name> {}" and "list <inner> <name> {}"
// blocks nested in a type declaration.
func (p *Parser) translateField(block *hclsyntax.Block, owner elemid.ID, filename string, sm parser.SourceMap) (*element.Field, []parser.ParseError) {
	var typeName, fieldName, container string
	switch {
	case block.Type == wrapperList && len(block.Labels) == 2:
		container, typeName, fieldName = wrapperList, block.Labels[0], block.Labels[1]
	case len(block.Labels) == 1:
		typeName, fieldName = block.Type, block.Labels[0]
	default:
		return nil, []parser.ParseError{blockError(block, filename, "invalid field declaration",
			"expected \"<type> <name> {}\" or \"list <type> <name> {}\"")}
	}

	typeID, err := elemid.Parse(typeName)
	if err != nil {
		return nil, []parser.ParseError{blockError(block, filename, "invalid field type", err.Error())}
	}

	fieldID := owner.Nested(fieldName)
	annotations, errs := p.translateAttributes(block.Body.Attributes, fieldID, filename, sm)
	sm.Add(fieldID, rangeOf(filename, block.Range()))

	return &element.Field{
		Name:        fieldName,
		Type:        typeID,
		Container:   container,
		Annotations: annotations,
	}, errs
}

// translateSettings handles "settings <name> { ... }".
func (p *Parser) translateSettings(block *hclsyntax.Block, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	if len(block.Labels) != 1 {
		return nil, []parser.ParseError{blockError(block, filename, "invalid settings declaration", "a settings block requires exactly one name label")}
	}
	id, err := elemid.Parse(block.Labels[0])
	if err != nil {
		return nil, []parser.ParseError{blockError(block, filename, "invalid settings name", err.Error())}
	}

	annotations, errs := p.translateAttributes(block.Body.Attributes, id, filename, sm)
	for _, nested := range block.Body.Blocks {
		errs = append(errs, blockError(nested, filename, "invalid settings content", "settings declarations carry attributes only"))
	}
	sm.Add(id, rangeOf(filename, block.Range()))

	return &element.Element{ID: id, Kind: element.Settings, Annotations: annotations}, errs
}

// translateInstance handles "<typeName> <instName> { ... }" where the type
// name is a plain identifier.
func (p *Parser) translateInstance(block *hclsyntax.Block, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	if len(block.Labels) != 1 {
		return nil, []parser.ParseError{blockError(block, filename, "invalid instance declaration",
			"expected \"<type> <name> { ... }\" with exactly one name label")}
	}
	return p.buildInstance(block, block.Type, block.Labels[0], filename, sm)
}

// translateInstanceForm handles "instance <typeName> <instName> { ... }",
// needed when the type name contains dots and cannot be a block type token.
func (p *Parser) translateInstanceForm(block *hclsyntax.Block, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	if len(block.Labels) != 2 {
		return nil, []parser.ParseError{blockError(block, filename, "invalid instance declaration",
			"expected \"instance <type> <name> { ... }\"")}
	}
	return p.buildInstance(block, block.Labels[0], block.Labels[1], filename, sm)
}

func (p *Parser) buildInstance(block *hclsyntax.Block, typeName, instName, filename string, sm parser.SourceMap) (*element.Element, []parser.ParseError) {
	typeID, err := elemid.Parse(typeName)
	if err != nil {
		return nil, []parser.ParseError{blockError(block, filename, "invalid instance type", err.Error())}
	}
	id := typeID.Nested(instName)

	value, errs := p.translateBody(block.Body, id, filename, sm)
	sm.Add(id, rangeOf(filename, block.Range()))

	return &element.Element{
		ID:     id,
		Kind:   element.Instance,
		TypeID: typeID,
		Value:  value,
	}, errs
}

// translateBody converts a block body into a record value: attributes become
// fields and nested blocks become nested records keyed by block type.
func (p *Parser) translateBody(body *hclsyntax.Body, id elemid.ID, filename string, sm parser.SourceMap) (*element.Record, []parser.ParseError) {
	record := &element.Record{Fields: map[string]element.Value{}}
	var errs []parser.ParseError

	for name, attr := range body.Attributes {
		val, verrs := convertExpression(attr.Expr, filename)
		errs = append(errs, verrs...)
		record.Fields[name] = val
		sm.Add(id.Nested(name), rangeOf(filename, attr.SrcRange))
	}

	for _, nested := range body.Blocks {
		if len(nested.Labels) != 0 {
			errs = append(errs, blockError(nested, filename, "invalid nested block", "nested value blocks take no labels"))
			continue
		}
		nestedID := id.Nested(nested.Type)
		val, verrs := p.translateBody(nested.Body, nestedID, filename, sm)
		errs = append(errs, verrs...)
		record.Fields[nested.Type] = val
		sm.Add(nestedID, rangeOf(filename, nested.Range()))
	}

	return record, errs
}

func (p *Parser) translateAttributes(attrs hclsyntax.Attributes, id elemid.ID, filename string, sm parser.SourceMap) (map[string]element.Value, []parser.ParseError) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make(map[string]element.Value, len(attrs))
	var errs []parser.ParseError
	for name, attr := range attrs {
		val, verrs := convertExpression(attr.Expr, filename)
		errs = append(errs, verrs...)
		out[name] = val
		sm.Add(id.Nested(name), rangeOf(filename, attr.SrcRange))
	}
	return out, errs
}

func rangeOf(filename string, r hcl.Range) parser.SourceRange {
	return parser.SourceRange{
		Filename: filename,
		Start:    parser.Pos{Line: r.Start.Line, Col: r.Start.Column, Byte: r.Start.Byte},
		End:      parser.Pos{Line: r.End.Line, Col: r.End.Column, Byte: r.End.Byte},
	}
}

func blockError(block *hclsyntax.Block, filename, summary, detail string) parser.ParseError {
	return parser.ParseError{
		Summary: summary,
		Detail:  detail,
		Subject: rangeOf(filename, block.DefRange()),
	}
}

func diagsToErrors(filename string, diags hcl.Diagnostics) []parser.ParseError {
	var out []parser.ParseError
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		pe := parser.ParseError{Summary: d.Summary, Detail: d.Detail}
		if d.Subject != nil {
			pe.Subject = rangeOf(filename, *d.Subject)
		} else {
			pe.Subject = parser.SourceRange{Filename: filename}
		}
		out = append(out, pe)
	}
	return out
}
