// Package element defines the data model for declared configuration
// elements: type declarations, instances, and the value trees they carry.
//
// Values form a closed tagged union (primitive, list, record, reference,
// type reference) so that traversals elsewhere in the workspace can be
// written as total switches instead of reflection. Primitive scalars are
// carried as cty values, matching the representation the parser produces.
package element
