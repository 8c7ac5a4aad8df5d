// Package apply turns path-scoped detailed changes into concrete text edits
// against source file buffers.
//
// Each change targets an element identity. The applicator resolves the
// owning files through the snapshot's source maps, rewrites the affected
// spans, re-parses the touched buffers and hands the parsed files back for
// ingestion. A file that cannot be edited is logged and dropped from the
// batch; the other files still go through.
package apply
