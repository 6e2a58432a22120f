package httpclient

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ErrStopStream may be returned by an SSE handler to end reading early
// without error.
var ErrStopStream = errors.New("stop stream")

// maxSSELine bounds a single SSE line.
const maxSSELine = 1 << 20

// ReadSSE reads a text/event-stream body and calls fn once per event
// with the event name (empty when unnamed) and the joined data lines.
// It returns nil at EOF or when fn returns ErrStopStream.
func ReadSSE(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var event string
	var data []string
	dispatch := func() error {
		if len(data) == 0 {
			event = ""
			return nil
		}
		err := fn(event, strings.Join(data, "\n"))
		event, data = "", nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return stopIsNil(err)
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return stopIsNil(dispatch())
}

func stopIsNil(err error) error {
	if errors.Is(err, ErrStopStream) {
		return nil
	}
	return err
}
