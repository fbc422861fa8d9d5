// Package manifest derives a content manifest from a directory tree.
//
// A Builder walks a source directory, hashes every regular file with
// BLAKE2b-256 and writes the sorted result as JSON. The write is atomic, so
// readers only ever see a complete manifest. Build is safe to call repeatedly
// and is intended to run as the task of a coalescing worker: any number of
// change notifications collapse into one rebuild of the whole tree.
package manifest
