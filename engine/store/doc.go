// Package store holds the driver-agnostic persistence core: the entity
// capability set, predicate filters, the generic Accessor and the
// transaction contract that storage drivers implement.
//
// An Accessor never begins, commits or rolls back a transaction. It borrows
// the Tx handed to it at construction and every statement it issues runs on
// that Tx, so sibling accessors bound to the same Tx observe each other's
// writes before commit.
package store
