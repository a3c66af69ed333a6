// Package app contains the core application wiring. It builds the
// discovery registry, the bank backends, the protection plugins and the
// providers from a Config, and exposes the resulting ProtectionManager,
// decoupled from any specific entrypoint like a CLI or server.
package app
