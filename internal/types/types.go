// Package types defines the core data model of the revision storage engine:
// repositories, key hashes, changesets, blobs, commit messages, and
// statement sets. It has no dependencies on storage or algorithm packages
// so that every other layer can import it without a cycle.
package types

import (
	"crypto/sha1" //nolint:gosec // content-addressing hash, not used for security
	"encoding/hex"
	"time"
)

// KeySHA is the SHA-1 digest of a UTF-8 key string, used throughout the
// store as the stable identifier for a resource's history.
type KeySHA [sha1.Size]byte

// String renders the digest as lowercase hex, the form persisted in the
// backing stores' key_sha columns.
func (k KeySHA) String() string {
	return hex.EncodeToString(k[:])
}

// KeySHAFromHex parses a hex-encoded digest back into a KeySHA.
func KeySHAFromHex(s string) (KeySHA, error) {
	var k KeySHA
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, err
	}
	if len(b) != len(k) {
		return k, errInvalidKeySHALength(len(b))
	}
	copy(k[:], b)
	return k, nil
}

func errInvalidKeySHALength(n int) error {
	return &invalidKeySHAError{n: n}
}

type invalidKeySHAError struct{ n int }

func (e *invalidKeySHAError) Error() string {
	return "types: key_sha must be 20 bytes, got " + itoa(e.n)
}

func itoa(n int) string {
	// Avoid pulling in strconv for a single-call helper used only in an
	// error path; minor, but keeps this leaf package import-light.
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Repo identifies a repository by owner and name; it scopes every other
// entity in the data model (§3).
type Repo struct {
	Owner string
	Name  string
}

// ChangesetType classifies a CSet row per §3.
type ChangesetType int

const (
	// Snapshot stores a full statement set.
	Snapshot ChangesetType = iota
	// Delta stores additions/removals relative to the nearest preceding
	// non-delta changeset.
	Delta
	// Delete tombstones the history at a point in time; it has no blob.
	Delete
)

// String renders the type the way it is persisted and logged.
func (t ChangesetType) String() string {
	switch t {
	case Snapshot:
		return "SNAPSHOT"
	case Delta:
		return "DELTA"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ParseChangesetType parses the persisted string form back into a type.
func ParseChangesetType(s string) (ChangesetType, bool) {
	switch s {
	case "SNAPSHOT":
		return Snapshot, true
	case "DELTA":
		return Delta, true
	case "DELETE":
		return Delete, true
	default:
		return 0, false
	}
}

// CSet is a changeset record: metadata about a state transition at a point
// in time. It never carries the blob payload itself (see Blob).
type CSet struct {
	Repo   Repo
	KeySHA KeySHA
	Time   time.Time
	Type   ChangesetType
	Len    int // compressed byte length of the associated blob; 0 for Delete
}

// Blob is the compressed payload for a non-Delete CSet, addressed by the
// same composite key.
type Blob struct {
	Repo   Repo
	KeySHA KeySHA
	Time   time.Time
	Data   []byte // zlib-compressed
}

// CommitMessage is optional metadata attached to a changeset.
type CommitMessage struct {
	Repo    Repo
	KeySHA  KeySHA
	Time    time.Time
	Message string
}

// StatementSet is an unordered, duplicate-free collection of canonicalized
// RDF-triple lines. The zero value is a usable empty set.
type StatementSet map[string]struct{}

// NewStatementSet builds a StatementSet from a slice of lines, deduplicating.
func NewStatementSet(lines ...string) StatementSet {
	s := make(StatementSet, len(lines))
	for _, l := range lines {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts a statement into the set.
func (s StatementSet) Add(stmt string) { s[stmt] = struct{}{} }

// Remove discards a statement from the set. Absence is not an error (§4.E).
func (s StatementSet) Remove(stmt string) { delete(s, stmt) }

// Has reports whether stmt is a member of the set.
func (s StatementSet) Has(stmt string) bool {
	_, ok := s[stmt]
	return ok
}

// Equal reports whether two statement sets contain exactly the same lines.
func (s StatementSet) Equal(other StatementSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Diff returns the statements present in s but absent from other.
func (s StatementSet) Diff(other StatementSet) StatementSet {
	out := make(StatementSet)
	for k := range s {
		if _, ok := other[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s StatementSet) Clone() StatementSet {
	out := make(StatementSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Lines renders the set as a slice in map iteration order, which is
// unsorted and may differ from one call to the next — callers that need a
// stable ordering should sort the result.
func (s StatementSet) Lines() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
