// Package resourcegraph holds the dependency graph of discovered resources.
//
// The graph is an arena: it owns every node in a table keyed by resource.Key,
// and nodes refer to their parents and children by key only. This keeps the
// structure free of pointers so it can be packed verbatim into a checkpoint
// and unpacked later for a restore that replays the exact same topology.
//
// Invariants:
//   - at most one node per (type, id) key; a resource reachable through
//     several parents is shared (fan-in), never duplicated
//   - children and parents keep insertion order, which makes walks
//     deterministic
//   - cycles are a contract violation reported by DetectCycles
package resourcegraph
