package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadIDs loads an allow-list of record ids, one per line. Blank lines and
// lines starting with # are skipped.
func ReadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer f.Close()
	ids, err := ParseIDs(f)
	if err != nil {
		return nil, fmt.Errorf("read ids file %s: %w", path, err)
	}
	return ids, nil
}

// ParseIDs reads ids from r using the ReadIDs rules. Duplicates are dropped.
func ParseIDs(r io.Reader) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
