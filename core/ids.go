// Package core holds identifier types shared by every layer of the index.
package core

// EntityID is the caller-owned stable identifier of an indexed entity.
// The index never allocates these; consumers bring their own IDs and the
// index only records where each one currently lives.
type EntityID uint64
