// Package database provides connection management for the supported engines
// (sqlite, postgres, mysql), configuration loading, query logging hooks,
// driver error classification, model registration and table migrations,
// all built on top of Bun.
package database
