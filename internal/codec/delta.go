package codec

import (
	"sort"
	"strings"

	"github.com/rdfvault/revengine/internal/types"
)

const (
	addPrefix    = "A "
	removePrefix = "D "
)

// EncodeSnapshot joins a statement set into the newline-separated list
// format a SNAPSHOT blob decompresses to (§4.A, §6).
func EncodeSnapshot(stmts types.StatementSet) []byte {
	return []byte(strings.Join(stmts.Lines(), "\n"))
}

// DecodeSnapshot splits a decompressed SNAPSHOT blob back into a statement
// set. Empty input decodes to the empty set.
func DecodeSnapshot(data []byte) types.StatementSet {
	return types.NewStatementSet(splitNonEmpty(string(data))...)
}

// EncodeDelta joins an added/removed pair into the "A "/"D " prefixed
// newline-separated list format a DELTA blob decompresses to (§4.A).
// Additions come first, then removals, each group sorted, so a given input
// always encodes to the same bytes.
func EncodeDelta(added, removed types.StatementSet) []byte {
	addLines := added.Lines()
	sort.Strings(addLines)
	removeLines := removed.Lines()
	sort.Strings(removeLines)

	lines := make([]string, 0, len(added)+len(removed))
	for _, s := range addLines {
		lines = append(lines, addPrefix+s)
	}
	for _, s := range removeLines {
		lines = append(lines, removePrefix+s)
	}
	return []byte(strings.Join(lines, "\n"))
}

// PrefixedLines renders an added/removed pair as "A "/"D " prefixed lines,
// the convention callers may apply on top of the bare statement sets the
// delta exporter returns (§9's Open Question resolution).
func PrefixedLines(added, removed types.StatementSet) []string {
	lines := make([]string, 0, len(added)+len(removed))
	for _, s := range added.Lines() {
		lines = append(lines, addPrefix+s)
	}
	for _, s := range removed.Lines() {
		lines = append(lines, removePrefix+s)
	}
	return lines
}

// DecodeDelta splits a decompressed DELTA blob into its added/removed
// statement sets.
func DecodeDelta(data []byte) (added, removed types.StatementSet) {
	added = types.NewStatementSet()
	removed = types.NewStatementSet()
	for _, line := range splitNonEmpty(string(data)) {
		if len(line) < 2 {
			continue
		}
		switch line[:2] {
		case addPrefix:
			added.Add(line[2:])
		case removePrefix:
			removed.Add(line[2:])
		}
	}
	return added, removed
}

// ApplyDelta mutates base in place, applying an already-decoded delta:
// additions are added, removals are discarded (absence is not an error,
// per §4.E).
func ApplyDelta(base types.StatementSet, added, removed types.StatementSet) {
	for s := range removed {
		base.Remove(s)
	}
	for s := range added {
		base.Add(s)
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
