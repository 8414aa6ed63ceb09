// Package types holds the value types shared by the data-access packages:
// isolation levels, transaction states, entity constraints, filters and pages.
package types
