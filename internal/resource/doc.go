// Package resource defines the value types that identify cloud objects taking
// part in protection.
//
// A Resource is immutable and identified by its Key, the (type, id) pair. The
// display name never participates in identity, so two discoveries of the same
// object under different names resolve to the same graph node.
package resource
