package listener

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

type pipe struct {
	io.Reader
	bytes.Buffer
}

func (p *pipe) Read(b []byte) (int, error) { return p.Reader.Read(b) }

func TestCRLFReadWriter_Read(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp string
	}{
		"telnet line":  {in: "status\r\n", exp: "status\n"},
		"bare return":  {in: "status\r", exp: "status\n"},
		"plain":        {in: "status\n", exp: "status\n"},
		"two commands": {in: "help\r\nquit\r\n", exp: "help\nquit\n"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rw := newCRLFReadWriter(&pipe{Reader: strings.NewReader(tt.in)})
			got, err := io.ReadAll(rw)
			testutil.AssertEqual(t, "error", err, nil)
			testutil.AssertEqual(t, "read", string(got), tt.exp)
		})
	}
}

func TestCRLFReadWriter_Write(t *testing.T) {
	p := &pipe{Reader: strings.NewReader("")}
	rw := newCRLFReadWriter(p)

	n, err := rw.Write([]byte("a\nb\n"))
	testutil.AssertEqual(t, "error", err, nil)
	testutil.AssertEqual(t, "length", n, 4)
	testutil.AssertEqual(t, "written", p.String(), "a\r\nb\r\n")
}
