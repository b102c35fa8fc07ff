package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// LineReader yields one line of user input per call. io.EOF ends the chat.
type LineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// ScannerReader reads lines from a plain stream, printing prompt first.
type ScannerReader struct {
	sc     *bufio.Scanner
	out    io.Writer
	prompt string
}

// NewScannerReader reads from in. out and prompt may be empty.
func NewScannerReader(in io.Reader, out io.Writer, prompt string) *ScannerReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ScannerReader{sc: sc, out: out, prompt: prompt}
}

// ReadLine blocks until a full line is available. Cancellation is checked
// before the read only.
func (r *ScannerReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.out != nil && r.prompt != "" {
		_, _ = fmt.Fprint(r.out, r.prompt)
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}
