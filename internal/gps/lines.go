package gps

import (
	"bytes"
	"io"
	"net"
)

const maxLineBuffer = 4096

// lineReader splits a byte stream into lines. Unlike bufio.Scanner it
// survives read timeouts: a timed-out read just yields no line, and any
// partial line stays buffered for the next call.
type lineReader struct {
	r       io.Reader
	chunk   []byte
	buf     []byte
	pending []string
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r, chunk: make([]byte, 512)}
}

// next returns the next complete line. ok is false when the underlying
// read timed out or returned nothing.
func (l *lineReader) next() (line string, ok bool, err error) {
	for {
		if len(l.pending) > 0 {
			line = l.pending[0]
			l.pending = l.pending[1:]
			return line, true, nil
		}

		n, rerr := l.r.Read(l.chunk)
		if n > 0 {
			l.buf = append(l.buf, l.chunk[:n]...)
			for {
				i := bytes.IndexByte(l.buf, '\n')
				if i < 0 {
					break
				}
				l.pending = append(l.pending, string(bytes.TrimRight(l.buf[:i], "\r")))
				l.buf = l.buf[i+1:]
			}
			// Line noise without newlines must not grow forever.
			if len(l.buf) > maxLineBuffer {
				l.buf = l.buf[:0]
			}
		}
		if rerr != nil {
			if len(l.pending) > 0 {
				continue
			}
			if ne, isNet := rerr.(net.Error); isNet && ne.Timeout() {
				return "", false, nil
			}
			return "", false, rerr
		}
		if n == 0 {
			return "", false, nil
		}
	}
}
