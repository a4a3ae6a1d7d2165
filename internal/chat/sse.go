package chat

import (
	"bufio"
	"io"
	"strings"
)

// sseReader yields the data payload of each server-sent event on a
// text/event-stream body. Only the data field matters to the backend's
// protocol; event, id and retry fields are skipped, as are comments.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// Next blocks until the next complete event and returns its data
// payload. It returns io.EOF when the stream ends cleanly and the
// underlying read error otherwise.
func (r *sseReader) Next() ([]byte, error) {
	var data []string
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			// Blank line terminates an event.
			if len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	// A final event may arrive without a trailing blank line.
	if len(data) > 0 {
		return []byte(strings.Join(data, "\n")), nil
	}
	return nil, io.EOF
}
