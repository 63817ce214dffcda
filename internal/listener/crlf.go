package listener

import (
	"bytes"
	"io"
)

// crlfReadWriter turns network line endings into \n on read and back into
// \r\n on write.
type crlfReadWriter struct {
	rw io.ReadWriter
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &crlfReadWriter{rw: rw}
}

func (c *crlfReadWriter) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	if n > 0 {
		// Telnet sends \r\n, a raw ssh terminal sends \r.
		data := bytes.ReplaceAll(p[:n], []byte("\r\n"), []byte("\n"))
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
		n = copy(p, data)
	}
	return n, err
}

func (c *crlfReadWriter) Write(p []byte) (int, error) {
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.rw.Write(converted)
	return len(p), err
}
