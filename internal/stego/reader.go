package stego

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"octocart/internal/services"
)

const (
	// HeaderBytes is the size of the big-endian body length prefix.
	HeaderBytes = 4
	// HeaderPixels is the number of first-frame pixels holding the header.
	HeaderPixels = HeaderBytes * 2
)

type decodeState int

const (
	stateHeader decodeState = iota
	stateBody
	stateDone
)

func (s decodeState) String() string {
	switch s {
	case stateHeader:
		return "header"
	case stateBody:
		return "body"
	default:
		return "done"
	}
}

// Reader streams the payload body out of a Container. The length header is
// consumed on first use and never returned by Read. Once the declared length
// has been produced no further frames are requested.
//
// A Reader is not safe for concurrent use and cannot be rewound; decode the
// container again to restart.
type Reader struct {
	src    Container
	global Palette

	state      decodeState
	headerSeen int
	declared   uint32
	remaining  uint32

	pixels  []uint8
	palette Palette
	pos     int
	frames  int

	emitted   uint64
	truncated bool
	err       error
}

// NewReader prepares a Reader over src. No frames are read until the first
// call to Read or Header.
func NewReader(src Container) *Reader {
	return &Reader{src: src, global: src.GlobalPalette()}
}

// Header reads the length header if it has not been read yet and returns the
// declared body length.
func (r *Reader) Header() (uint32, error) {
	for r.state == stateHeader {
		if err := r.readHeader(); err != nil {
			return 0, err
		}
	}
	return r.declared, nil
}

// Read implements io.Reader over the body bytes.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := 0
	for n < len(p) {
		switch r.state {
		case stateHeader:
			if err := r.readHeader(); err != nil {
				return n, err
			}
		case stateBody:
			if r.remaining == 0 {
				r.state = stateDone
				continue
			}
			b, ok, err := r.nextByte()
			if err != nil {
				r.err = err
				return n, err
			}
			if !ok {
				r.truncated = true
				r.state = stateDone
				continue
			}
			p[n] = b
			n++
			r.remaining--
			r.emitted++
		case stateDone:
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
	}
	return n, nil
}

// Declared reports the body length announced by the header.
func (r *Reader) Declared() uint32 { return r.declared }

// Emitted reports how many body bytes have been produced so far.
func (r *Reader) Emitted() uint64 { return r.emitted }

// Frames reports how many frames have been pulled from the container.
func (r *Reader) Frames() int { return r.frames }

// Truncated reports whether the frames ran out before the declared length
// was reached. It is only meaningful once Read has returned io.EOF.
func (r *Reader) Truncated() bool { return r.truncated }

func (r *Reader) readHeader() error {
	if r.headerSeen == 0 {
		ok, err := r.loadFrame()
		if err != nil {
			r.err = err
			return err
		}
		if !ok {
			// No frames at all: nothing is hidden, the body is empty.
			r.state = stateDone
			return nil
		}
		if len(r.pixels) < HeaderPixels {
			r.err = services.Wrap(services.ErrContainer, "stego", "read header",
				fmt.Sprintf("first frame has %d pixels, need %d for the length header", len(r.pixels), HeaderPixels), nil)
			return r.err
		}
	}

	var header [HeaderBytes]byte
	for r.headerSeen < HeaderBytes {
		b, err := AssembleByte(r.pixels[r.pos], r.pixels[r.pos+1], r.palette)
		if err != nil {
			r.err = err
			return err
		}
		header[r.headerSeen] = b
		r.headerSeen++
		r.pos += 2
	}
	r.declared = binary.BigEndian.Uint32(header[:])
	r.remaining = r.declared
	r.state = stateBody
	return nil
}

// nextByte decodes the next pixel pair, moving to the following frame when
// the current one has no complete pair left. ok is false once the container
// has no more frames.
func (r *Reader) nextByte() (byte, bool, error) {
	for r.pos+1 >= len(r.pixels) {
		ok, err := r.loadFrame()
		if err != nil || !ok {
			return 0, false, err
		}
	}
	b, err := AssembleByte(r.pixels[r.pos], r.pixels[r.pos+1], r.palette)
	if err != nil {
		return 0, false, err
	}
	r.pos += 2
	return b, true, nil
}

func (r *Reader) loadFrame() (bool, error) {
	frame, err := r.src.NextFrame()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		if errors.Is(err, services.ErrContainer) {
			return false, err
		}
		return false, services.Wrap(services.ErrContainer, "stego", "read frame",
			fmt.Sprintf("frame %d", r.frames), err)
	}
	palette, err := EffectivePalette(frame.Palette, r.global)
	if err != nil {
		return false, fmt.Errorf("frame %d: %w", r.frames, err)
	}
	r.pixels = frame.Pixels
	r.palette = palette
	r.pos = 0
	r.frames++
	return true, nil
}
