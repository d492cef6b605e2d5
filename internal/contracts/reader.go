// Package contracts reads contract-number input files. These come from the
// regulator's fortnightly export: semicolon-delimited lines with the contract
// number in the last field, Latin-1 encoded, usually gzip compressed. Plain
// one-number-per-line files work too.
package contracts

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Read loads contract numbers from path. encoding is "utf-8" or "latin-1".
// On delimited lines the last field is the contract number. Only all-digit
// values are kept (headers and stray text count as skipped); duplicates are
// removed keeping the first occurrence so batch sequence numbers stay stable.
func Read(path, encoding string) (numbers []string, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, 0, fmt.Errorf("open gzip input: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	switch encoding {
	case "", "utf-8":
	case "latin-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return nil, 0, fmt.Errorf("unsupported encoding: %s", encoding)
	}

	return parse(r)
}

func parse(r io.Reader) ([]string, int, error) {
	var (
		out     []string
		skipped int
		seen    = make(map[string]struct{})
	)
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i := strings.LastIndexByte(line, ';'); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		if !allDigits(line) {
			skipped++
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read input: %w", err)
	}
	return out, skipped, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
