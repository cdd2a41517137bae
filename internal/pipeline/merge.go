// Package pipeline implements the dedupe and merge engine that keeps the
// persisted set free of duplicate rows.
//
// Tie-break policy: when two rows share a natural key, the one with the
// later parseable timestamp survives. Equal or unparseable timestamps keep
// the first-seen row, so an existing store row is never silently replaced
// without a clearly newer duplicate.
package pipeline

import "time"

// Record is any row with a natural key and an optionally comparable
// timestamp.
type Record interface {
	Key() string
	Timestamp() (time.Time, bool)
}

// newerThan reports whether a should replace b under the tie-break policy.
func newerThan[T Record](a, b T) bool {
	ta, okA := a.Timestamp()
	tb, okB := b.Timestamp()

	if !okA || !okB {
		return false
	}

	return ta.After(tb)
}

// Dedupe removes rows sharing a natural key within one batch, keeping the
// tie-break winner. Input order is preserved for the survivors.
func Dedupe[T Record](batch []T) []T {
	index := make(map[string]int, len(batch))

	var out []T

	for _, row := range batch {
		key := row.Key()

		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, row)

			continue
		}

		if newerThan(row, out[at]) {
			out[at] = row
		}
	}

	return out
}

// Merge combines the existing persisted rows with an incoming batch for a
// full rewrite. Existing row order is preserved; an incoming duplicate with
// a strictly later timestamp replaces the existing row in place; unseen
// keys are appended in batch order. Merging the same batch twice yields the
// same result as merging it once.
func Merge[T Record](existing, incoming []T) []T {
	merged := make([]T, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(existing))
	for i, row := range merged {
		// First occurrence wins the index so duplicates already present in
		// the store collapse toward the earliest row.
		if _, seen := index[row.Key()]; !seen {
			index[row.Key()] = i
		}
	}

	for _, row := range Dedupe(incoming) {
		key := row.Key()

		at, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, row)

			continue
		}

		if newerThan(row, merged[at]) {
			merged[at] = row
		}
	}

	return merged
}

// Diff returns the incoming rows whose key is absent from the existing set,
// in batch order with in-batch duplicates already collapsed. This is the
// incremental-append write set: existing rows are never rewritten, so a
// store row always wins over an incoming duplicate here.
func Diff[T Record](existing, incoming []T) []T {
	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		seen[row.Key()] = struct{}{}
	}

	var out []T

	for _, row := range Dedupe(incoming) {
		if _, dup := seen[row.Key()]; dup {
			continue
		}

		seen[row.Key()] = struct{}{}
		out = append(out, row)
	}

	return out
}
