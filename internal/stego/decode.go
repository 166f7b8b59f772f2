package stego

import (
	"bytes"
	"fmt"
	"io"

	"octocart/internal/services"
)

// DecodeOptions tunes how a payload is collected.
type DecodeOptions struct {
	// Strict turns a body shorter than its declared length into an error
	// wrapping services.ErrTruncated. By default the partial body is returned.
	Strict bool
}

// Result is the outcome of decoding one container.
type Result struct {
	Body      []byte
	Declared  uint32
	Frames    int
	Truncated bool
}

// Text returns the body as a string.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Decode collects the complete payload body from src.
func Decode(src Container, opts DecodeOptions) (*Result, error) {
	reader := NewReader(src)
	declared, err := reader.Header()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	// The header is untrusted input; cap preallocation.
	if declared <= 1<<20 {
		buf.Grow(int(declared))
	}
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}

	result := &Result{
		Body:      buf.Bytes(),
		Declared:  declared,
		Frames:    reader.Frames(),
		Truncated: reader.Truncated(),
	}
	if result.Truncated && opts.Strict {
		return nil, services.Wrap(services.ErrTruncated, "stego", "decode",
			fmt.Sprintf("header declares %d bytes, frames held %d", declared, reader.Emitted()), nil)
	}
	return result, nil
}

// DecodeGIF reads a GIF image from r and decodes its payload.
func DecodeGIF(r io.Reader, opts DecodeOptions) (*Result, error) {
	container, err := NewGIFContainer(r)
	if err != nil {
		return nil, err
	}
	return Decode(container, opts)
}
