// Package parser defines the parsing data model (parsed files, parse errors,
// source maps) and the invocation layer that sits between the workspace and
// a concrete parser implementation.
//
// The package owns two narrow interfaces: Parser, implemented by the HCL
// syntax adapter, and Cache, implemented by the parse-result cache backends.
// The Invoker combines them: it fingerprints file content, serves repeat
// parses from the cache, and fans a batch of files out across a bounded
// number of workers.
package parser
