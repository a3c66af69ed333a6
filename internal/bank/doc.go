// Package bank is the object storage abstraction behind checkpoints.
//
// A Plugin is a backend (memory, local files, leveldb, S3) exposing flat
// key -> blob CRUD plus prefix listing. A Bank wraps a plugin and scopes
// every key under a namespace; Section derives nested namespaces, which is
// how a provider, a checkpoint and a single resource each get their own
// key space inside one backend.
//
// Backends are looked up by identifier in a Table populated at start-up, so
// the "bank" field of a provider config maps straight to a constructor.
package bank
