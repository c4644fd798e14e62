// Package datasource provides ports.DataSource implementations: an in-memory
// source, an HTTP source with value selectors and an egress guard, and a
// caching decorator backed by redis or memory.
package datasource
