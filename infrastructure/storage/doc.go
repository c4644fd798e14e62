// Package storage provides host storage backends: an in-memory store, a YAML
// file store and a SQL store. All implement ports.StorageReader; the memory and
// file stores also implement ports.StorageWriter.
package storage
