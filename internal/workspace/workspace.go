// Package workspace manages the context set attached to a conversation:
// file and URL references supplied to the model as background material.
//
// References are normalized before storage (absolute cleaned paths for
// files, verbatim strings for URLs) so the set can be deduplicated and
// removals can be matched reliably. The set preserves insertion order.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Kind tags a context entry as a file path or a URL.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// ErrInvalidReference is returned when a file reference does not exist at
// resolution time. It is non-fatal: batch operations report and skip it.
var ErrInvalidReference = errors.New("invalid reference")

// urlPattern matches references that should be treated as URLs rather
// than file paths.
var urlPattern = regexp.MustCompile(`^https?://`)

// Entry is one normalized context reference.
type Entry struct {
	Kind Kind   `json:"kind"`
	Ref  string `json:"ref"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Ref)
}

// Normalize classifies a reference and normalizes it without checking that
// it exists. Used for removal matching, where a file may already be gone.
func Normalize(ref string) Entry {
	if urlPattern.MatchString(ref) {
		return Entry{Kind: KindURL, Ref: ref}
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		// Fall back to the cleaned relative path; Abs only fails when the
		// working directory is unavailable.
		abs = filepath.Clean(ref)
	}
	return Entry{Kind: KindFile, Ref: abs}
}

// Resolve classifies and normalizes a reference. File references must exist
// at resolution time; a missing file yields ErrInvalidReference.
func Resolve(ref string) (Entry, error) {
	entry := Normalize(ref)
	if entry.Kind == KindFile {
		if _, err := os.Stat(entry.Ref); err != nil {
			return Entry{}, fmt.Errorf("%w: %s", ErrInvalidReference, ref)
		}
	}
	return entry, nil
}

// Set is an insertion-ordered, deduplicated collection of context entries.
type Set []Entry

// Contains reports whether the set already holds an entry with the same
// normalized reference.
func (s Set) Contains(e Entry) bool {
	for _, existing := range s {
		if existing.Ref == e.Ref {
			return true
		}
	}
	return false
}

// Add resolves each reference and appends the ones not already present.
// It returns the entries actually added and the references skipped because
// they could not be resolved. Duplicates are elided without error, and a
// bad reference never aborts the rest of the batch.
func (s *Set) Add(refs []string) (added []Entry, skipped []string) {
	for _, ref := range refs {
		entry, err := Resolve(ref)
		if err != nil {
			skipped = append(skipped, ref)
			continue
		}
		if s.Contains(entry) {
			continue
		}
		*s = append(*s, entry)
		added = append(added, entry)
	}
	return added, skipped
}

// Remove drops entries matching the normalized references and returns the
// ones removed. References not present are silently ignored.
func (s *Set) Remove(refs []string) (removed []Entry) {
	if len(refs) == 0 || len(*s) == 0 {
		return nil
	}
	targets := make(map[string]bool, len(refs))
	for _, ref := range refs {
		targets[Normalize(ref).Ref] = true
	}
	kept := (*s)[:0]
	for _, entry := range *s {
		if targets[entry.Ref] {
			removed = append(removed, entry)
			continue
		}
		kept = append(kept, entry)
	}
	*s = kept
	return removed
}

// List returns the entries in insertion order. The returned slice is a copy
// so callers cannot mutate the set through it.
func (s Set) List() []Entry {
	out := make([]Entry, len(s))
	copy(out, s)
	return out
}
