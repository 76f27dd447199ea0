package store

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/dexnode/offerdb/internal/offer"
)

// WindowKind selects which side of a modification time a window covers.
type WindowKind int

const (
	WindowAll WindowKind = iota
	WindowBefore
	WindowAfter
)

// Window restricts a manifest or count by timeModification.
//
// Before(t) and After(t) partition All: Before is strict, After is
// inclusive, so every record falls in exactly one of them for any t.
type Window struct {
	Kind WindowKind
	Time uint64
}

// All covers every record.
func All() Window { return Window{Kind: WindowAll} }

// Before covers records with timeModification < t.
func Before(t uint64) Window { return Window{Kind: WindowBefore, Time: t} }

// After covers records with timeModification >= t.
func After(t uint64) Window { return Window{Kind: WindowAfter, Time: t} }

func (w Window) String() string {
	switch w.Kind {
	case WindowBefore:
		return fmt.Sprintf("before(%d)", w.Time)
	case WindowAfter:
		return fmt.Sprintf("after(%d)", w.Time)
	default:
		return "all"
	}
}

// where renders the window as a WHERE clause.
func (w Window) where() (string, []any, error) {
	switch w.Kind {
	case WindowAll:
		return "", nil, nil
	case WindowBefore:
		return " WHERE timeModification <= ?", []any{below(w.Time)}, nil
	case WindowAfter:
		return " WHERE timeModification > ?", []any{below(w.Time)}, nil
	default:
		return "", nil, newError(CodeInvalidArgument, "", "", fmt.Errorf("unknown window kind %d", w.Kind))
	}
}

// ManifestEntry is one (hash, editingVersion) pair a peer can diff against.
type ManifestEntry struct {
	Hash           offer.Hash `json:"hash"`
	EditingVersion uint32     `json:"editing_version"`
}

// Diff returns the remote entries the local side should fetch: hashes it
// does not hold at all, and hashes it holds at a lower editingVersion.
// The result is ordered by hash then version. Diff never decides which
// side wins a conflict; equal or older remote versions are simply skipped.
func Diff(local, remote []ManifestEntry) []ManifestEntry {
	have := make(map[offer.Hash]uint32, len(local))
	for _, e := range local {
		if v, ok := have[e.Hash]; !ok || e.EditingVersion > v {
			have[e.Hash] = e.EditingVersion
		}
	}

	var want []ManifestEntry
	for _, e := range remote {
		v, ok := have[e.Hash]
		if !ok || e.EditingVersion > v {
			want = append(want, e)
		}
	}
	sortManifest(want)
	return want
}

func sortManifest(entries []ManifestEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if c := bytes.Compare(entries[i].Hash[:], entries[j].Hash[:]); c != 0 {
			return c < 0
		}
		return entries[i].EditingVersion < entries[j].EditingVersion
	})
}
