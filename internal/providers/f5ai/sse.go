package f5ai

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"
)

const sseDone = "[DONE]"

// sniffLen bounds the leading whitespace inspected to tell SSE from JSON
// when the backend does not label the body.
const sniffLen = 512

var dataField = []byte("data:")

// isEventStream reports whether the body behind br is server-sent events.
// It only peeks; nothing is consumed. Bytes are peeked one at a time so a
// slowly written body is decided as soon as its first field is visible.
func isEventStream(contentType string, br *bufio.Reader) bool {
	if strings.Contains(strings.ToLower(contentType), "text/event-stream") {
		return true
	}
	for n := 1; n <= sniffLen; n++ {
		head, err := br.Peek(n)
		head = bytes.TrimLeft(head, " \t\r\n")
		if len(head) >= len(dataField) || err != nil {
			return bytes.HasPrefix(head, dataField)
		}
		if !bytes.HasPrefix(dataField, head) {
			return false
		}
	}
	return false
}

// sseEvents yields the data payload of each event read from r. Multi-line
// data fields are joined with newlines. Comments and non-data fields are
// skipped. The sequence ends at EOF or at a [DONE] payload.
func sseEvents(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br, ok := r.(*bufio.Reader)
		if !ok {
			br = bufio.NewReader(r)
		}

		var data [][]byte
		flush := func() (cont bool) {
			if len(data) == 0 {
				return true
			}
			payload := bytes.Join(data, []byte("\n"))
			data = data[:0]
			if string(bytes.TrimSpace(payload)) == sseDone {
				return false
			}
			return yield(payload, nil)
		}

		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				line = bytes.TrimRight(line, "\r\n")
				switch {
				case len(line) == 0:
					if !flush() {
						return
					}
				case line[0] == ':':
				default:
					field, value, _ := bytes.Cut(line, []byte(":"))
					if string(field) == "data" {
						data = append(data, bytes.TrimPrefix(value, []byte(" ")))
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
					return
				}
				flush()
				return
			}
		}
	}
}
