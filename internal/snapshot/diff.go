package snapshot

import "sort"

// Diff lists the paths that differ between two snapshots.
type Diff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Compare diffs two snapshot states by path and digest.
func Compare(before, after []ArticleMeta) Diff {
	prev := make(map[string]string, len(before))
	for _, m := range before {
		prev[m.Path] = m.Digest
	}

	seen := make(map[string]bool, len(after))
	var d Diff
	for _, m := range after {
		seen[m.Path] = true
		digest, ok := prev[m.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, m.Path)
		case digest != m.Digest:
			d.Changed = append(d.Changed, m.Path)
		}
	}
	for _, m := range before {
		if !seen[m.Path] {
			d.Removed = append(d.Removed, m.Path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

// Empty reports whether nothing differs.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Touched returns the paths present after the diff that need
// revalidation, added and changed combined.
func (d Diff) Touched() []string {
	out := make([]string, 0, len(d.Added)+len(d.Changed))
	out = append(out, d.Added...)
	out = append(out, d.Changed...)
	sort.Strings(out)
	return out
}
