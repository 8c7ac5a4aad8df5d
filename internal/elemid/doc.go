// Package elemid defines the hierarchical identity used to address declared
// elements and their nested values across the workspace.
//
// An identity is a dot-separated path: the first segment names a top-level
// declaration (a type), further segments descend into instances, fields and
// nested values. Identities are plain immutable values; equality is
// structural and the canonical string form is the map key used by every
// index in the workspace.
package elemid
