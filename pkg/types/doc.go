// Package types defines the canonical metadata model, identifier records,
// snapshots, the Store interface, configuration, and the error taxonomy
// shared by the registry packages.
package types
