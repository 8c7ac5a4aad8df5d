// Package hclparser implements the configuration-language parser on HCL
// syntax. It translates top-level blocks into element declarations, converts
// HCL expressions into the closed value union, records a source map from
// element identities to text ranges, and can regenerate canonical text from
// an element for whole-element additions.
//
// Recognized top-level forms:
//
//	type <name> { ... }            object type declaration; nested blocks
//	                               declare fields as "<fieldType> <name> {}"
//	                               or "list <innerType> <name> {}"
//	settings <name> { ... }        settings declaration, annotations only
//	<typeName> <instName> { ... }  instance declaration
//	instance <typeName> <instName> { ... }
//	                               instance form for dotted type names
//
// Syntax problems never abort a parse: they degrade into per-file parse
// errors riding along in the result.
package hclparser
