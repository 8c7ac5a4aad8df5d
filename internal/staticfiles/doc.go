// Package staticfiles manages the binary blobs that source values can point
// at instead of carrying inline.
//
// A value references a blob with a "file://" prefixed string; the rest of
// the string is the blob's path inside the static directory. The source is a
// thin layer over a dirstore.Store, so blobs share the buffered-flush and
// rename behavior of the workspace's other stores.
package staticfiles
