// Package store provides SQLite-backed durable storage for a node's offer
// book.
//
// The store holds:
//   - Remote offers: sell and buy offers relayed by peers
//   - Local offers: offers authored on this node, with type and status
//   - Reference data: countries, currencies and payment methods
//   - Content filters: an opaque local set
//
// # Versioning
//
// Every offer is keyed by its content hash and carries an editingVersion
// that only increases. Peers reconcile by exchanging (hash,
// editingVersion) manifests over a timeModification window and fetching
// only what they lack.
//
// # Schema Lifecycle
//
// Open classifies the file as empty, stale or current. Empty files get
// the catalog schema and seed data. Stale files are migrated in one
// transaction that renames every table aside, recreates the catalog and
// copies rows through a per-table column mapping. Current files must
// match the catalog exactly. Any failure is fatal and leaves the file as
// it was.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks, then fail with CodeBusy
//   - cache=shared, _mutex=full: Safe use from several goroutines
//
// # Notifications
//
// Every offer, reference and filter operation publishes one notify.Event
// on the store's bus before returning. The event's outcome is Error
// exactly when the operation returns an error.
package store
