package transform

import (
	"bufio"
	"io"
	"strings"

	"github.com/google/uuid"
)

// PlaceholderUUIDs scans a component file and returns the distinct
// placeholder UUIDs in one column of its data lines, in order of first
// appearance. The header line is skipped; values that are not UUIDs are
// already permanent ids.
func PlaceholderUUIDs(r io.Reader, column int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var uuids []string
	seen := make(map[string]struct{})
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		if header {
			header = false
			continue
		}
		if line == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		if column >= len(columns) {
			continue
		}
		value := columns[column]
		if uuid.Validate(value) != nil {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		uuids = append(uuids, value)
	}
	return uuids, scanner.Err()
}
