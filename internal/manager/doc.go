// Package manager runs protection operations end to end: it resolves the
// provider, drives the checkpoint lifecycle, builds the flow and hands it to
// the workflow engine. It also answers the protectable queries.
package manager
