package model

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// maxURLLineLength bounds a single line of the URL list.
const maxURLLineLength = 1 << 20

// ParseURLList reads newline-delimited URLs. Lines are trimmed; blank
// lines and lines starting with '#' are skipped. No URL validation happens
// here, invalid entries surface later as per-page failures.
func ParseURLList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxURLLineLength)

	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return urls, nil
}

// ReadURLsFromFile opens path and parses it with ParseURLList.
func ReadURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path) // #nosec G304 -- path is user-provided CLI argument, this is expected behavior
	if err != nil {
		return nil, CreateIOError(err, path, "read")
	}
	defer func() { _ = file.Close() }()

	urls, err := ParseURLList(file)
	if err != nil {
		return nil, CreateIOError(err, path, "read")
	}

	return urls, nil
}
