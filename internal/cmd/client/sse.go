package client

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one Server-Sent Events frame.
type sseEvent struct {
	Event string
	Data  string
}

// readSSE consumes an SSE byte stream and calls fn per complete event.
// Stops on EOF or when fn returns a non-nil error (io.EOF stops cleanly).
func readSSE(r io.Reader, fn func(sseEvent) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var ev sseEvent
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if ev.Data != "" || ev.Event != "" {
				if err := fn(ev); err != nil {
					if err == io.EOF {
						return nil
					}
					return err
				}
			}
			ev = sseEvent{}
			continue
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.Event = line[len("event: "):]
		case strings.HasPrefix(line, "data: "):
			if ev.Data != "" {
				ev.Data += "\n"
			}
			ev.Data += line[len("data: "):]
		}
	}
	return sc.Err()
}
