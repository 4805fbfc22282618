package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rdfvault/revengine/internal/types"
)

// readStatements loads a newline-delimited statement set from path, or
// from stdin when path is "-" or empty.
func readStatements(path string) (types.StatementSet, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	lines := make([]string, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}
	return types.NewStatementSet(lines...), nil
}

// parseTimeFlag parses an RFC3339 timestamp, defaulting to the current
// time when s is empty.
func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q (want RFC3339): %w", s, err)
	}
	return t, nil
}
