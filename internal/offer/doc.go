// Package offer defines the record types held by the offer replica store.
//
// This package contains value types and pure helpers only. It imports
// nothing internal, so every other package can depend on it.
//
// Key constraints:
//   - Hash is the stable identity of an offer across edits
//   - (Hash, EditingVersion) is the sync de-duplication key
//   - EditingVersion only increases for a given Hash
//   - TimeModification >= TimeCreate
//   - All times are unsigned epoch seconds
package offer
