package narrate_http

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	// MetaPrefix marks the metadata frame that always opens a stream.
	MetaPrefix = "META:"
	// EndSentinel is the literal terminal frame of every stream.
	EndSentinel = "END"
)

// Framer encodes logical text events as one frame per line. Embedded
// newlines and backslashes are escaped so a multi-line event stays one frame
// and a decoder reassembles events losslessly.
type Framer struct{}

// EncodeFrame serializes one logical event, newline-terminated.
func (Framer) EncodeFrame(event string) string {
	var sb strings.Builder
	sb.Grow(len(event) + 1)
	for _, r := range event {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

// DecodeFrames reads a framed stream back into its logical events, in order,
// up to and including the END sentinel or EOF.
func (Framer) DecodeFrames(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []string
	for scanner.Scan() {
		event, err := unescapeFrame(scanner.Text())
		if err != nil {
			return events, err
		}
		events = append(events, event)
		if event == EndSentinel {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("framed stream read failed: %w", err)
	}
	return events, nil
}

func unescapeFrame(line string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(line))
	escaped := false
	for _, r := range line {
		if escaped {
			switch r {
			case '\\':
				sb.WriteRune('\\')
			case 'n':
				sb.WriteRune('\n')
			case 'r':
				sb.WriteRune('\r')
			default:
				return "", fmt.Errorf("invalid escape sequence \\%c in frame", r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		sb.WriteRune(r)
	}
	if escaped {
		return "", fmt.Errorf("frame ends with dangling escape")
	}
	return sb.String(), nil
}
