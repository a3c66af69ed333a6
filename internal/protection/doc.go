// Package protection turns a resource graph into a task flow.
//
// A provider couples one bank with a set of protection plugins. For each
// request it obtains a resource graph (discovered for protect, read back from
// the checkpoint for restore and delete), walks it with a WalkerListener and
// lets the plugin bound to every resource type contribute a task and wire
// the task dependencies. The walk itself is direction agnostic: plugins
// decide whether a parent runs before or after its children.
package protection
