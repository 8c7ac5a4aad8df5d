// Package refs extracts the set of element identities an element depends
// on: declared field types, instance types, and every reference expression
// anywhere in its value tree. The result feeds the workspace's reverse
// reference index.
package refs
