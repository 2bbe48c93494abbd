package mcp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
)

// Framing selects how messages are delimited on the byte stream.
type Framing int

const (
	// FramingAuto detects the framing per message and answers in the
	// framing of the most recent request.
	FramingAuto Framing = iota
	// FramingLine is one JSON document per line.
	FramingLine
	// FramingHeader is Content-Length framing.
	FramingHeader
)

func (f Framing) String() string {
	switch f {
	case FramingLine:
		return "line"
	case FramingHeader:
		return "header"
	default:
		return "auto"
	}
}

// ParseFraming returns the Framing named by s.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FramingAuto, nil
	case "line":
		return FramingLine, nil
	case "header":
		return FramingHeader, nil
	}
	return FramingAuto, fmt.Errorf("unknown framing %q, want auto, line or header", s)
}

var errFrameTooLarge = errors.New("frame exceeds the maximum message size")

// malformedFrameError reports framing that cannot be resynchronized.
type malformedFrameError struct {
	reason string
}

func (e *malformedFrameError) Error() string {
	return "malformed frame: " + e.reason
}

const contentLengthHeader = "content-length:"

type frameReader struct {
	br         *bufio.Reader
	mode       Framing
	max        int
	headerSeen *atomic.Bool
}

func newFrameReader(r io.Reader, mode Framing, max int, headerSeen *atomic.Bool) *frameReader {
	return &frameReader{br: bufio.NewReader(r), mode: mode, max: max, headerSeen: headerSeen}
}

// ReadFrame returns the next non-empty frame, io.EOF at end of stream.
func (r *frameReader) ReadFrame() ([]byte, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) > 0 {
				return bytes.TrimSpace(line), nil
			}
			return nil, err
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		isHeader := strings.HasPrefix(strings.ToLower(string(trimmed)), contentLengthHeader)
		if r.mode == FramingLine || (r.mode == FramingAuto && !isHeader) {
			r.headerSeen.Store(false)
			return trimmed, nil
		}
		if !isHeader {
			return nil, &malformedFrameError{reason: "expected Content-Length header"}
		}
		r.headerSeen.Store(true)
		return r.readBody(trimmed)
	}
}

func (r *frameReader) readBody(header []byte) ([]byte, error) {
	_, value, _ := strings.Cut(string(header), ":")
	length, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || length < 0 {
		return nil, &malformedFrameError{reason: "invalid Content-Length " + strconv.Quote(strings.TrimSpace(value))}
	}
	if length > r.max {
		return nil, errFrameTooLarge
	}

	// Consume remaining headers until blank line.
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			break
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(payload), nil
}

// readLine reads up to and including '\n', failing once the line grows
// past the maximum message size.
func (r *frameReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(line)+len(chunk) > r.max+2 {
			return nil, errFrameTooLarge
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

type frameWriter struct {
	bw         *bufio.Writer
	mode       Framing
	headerSeen *atomic.Bool
	buf        bytes.Buffer
}

func newFrameWriter(w io.Writer, mode Framing, headerSeen *atomic.Bool) *frameWriter {
	return &frameWriter{bw: bufio.NewWriter(w), mode: mode, headerSeen: headerSeen}
}

// WriteFrame writes payload as one frame with a single write and flushes.
func (w *frameWriter) WriteFrame(payload []byte) error {
	w.buf.Reset()
	if w.mode == FramingHeader || (w.mode == FramingAuto && w.headerSeen.Load()) {
		fmt.Fprintf(&w.buf, "Content-Length: %d\r\n\r\n", len(payload))
		w.buf.Write(payload)
	} else {
		w.buf.Write(payload)
		w.buf.WriteByte('\n')
	}
	if _, err := w.bw.Write(w.buf.Bytes()); err != nil {
		return err
	}
	return w.bw.Flush()
}
