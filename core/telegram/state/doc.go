// Package state keeps per-user conversation sessions outside the process.
//
// A Store is a plain key/value map of JSON documents with a per-entry TTL.
// Writes overwrite; there is no compare-and-set, so two updates racing on the
// same key resolve last-write-wins.
package state
