package parser

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxLineSize is the longest input line HostScanner accepts
const MaxLineSize = 1024 * 1024

// HostScanner reads hostnames one line at a time, skipping blank lines,
// comments and lines that are not valid UTF-8.
type HostScanner struct {
	scanner *bufio.Scanner
	host    string
	skipped int
}

// NewHostScanner creates a HostScanner reading from r
func NewHostScanner(r io.Reader) *HostScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &HostScanner{scanner: scanner}
}

// Scan advances to the next hostname. It returns false at end of input or
// on a read error, which Err then reports.
func (s *HostScanner) Scan() bool {
	for s.scanner.Scan() {
		raw := s.scanner.Bytes()
		if !utf8.Valid(raw) {
			s.skipped++
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s.host = line
		return true
	}
	s.host = ""
	return false
}

// Text returns the hostname found by the last call to Scan
func (s *HostScanner) Text() string {
	return s.host
}

// Err returns the first non-EOF read error
func (s *HostScanner) Err() error {
	return s.scanner.Err()
}

// Skipped returns how many lines were dropped for not being valid UTF-8
func (s *HostScanner) Skipped() int {
	return s.skipped
}
