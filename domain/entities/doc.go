// Package entities provides the core domain types of the oracle extension:
// protocol versions, operation ids, status and transport codes, and storage keys.
// These types are shared by the guest request interface and the host dispatcher,
// so both sides of the boundary agree on the same closed sets.
package entities
