package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrame is the largest frame accepted unless configured otherwise.
const DefaultMaxFrame = 64 << 10

// headerSize is the length prefix: a big-endian uint32.
const headerSize = 4

// ErrFrameTooLarge is returned when a frame exceeds the reader's limit.
var ErrFrameTooLarge = errors.New("protocol: frame too large")

// WriteFrame writes b with its length prefix in a single Write call.
func WriteFrame(w io.Writer, b []byte) error {
	if uint64(len(b)) > uint64(^uint32(0)) {
		return ErrFrameTooLarge
	}
	buf := make([]byte, headerSize+len(b))
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[headerSize:], b)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}

// FrameReader reads length-prefixed frames from a stream.
type FrameReader struct {
	r        io.Reader
	maxFrame int
	header   [headerSize]byte
}

// NewFrameReader reads frames from r, refusing frames above maxFrame bytes.
// A non-positive maxFrame selects DefaultMaxFrame.
func NewFrameReader(r io.Reader, maxFrame int) *FrameReader {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &FrameReader{r: r, maxFrame: maxFrame}
}

// ReadFrame blocks until a whole frame is available. It returns io.EOF when
// the stream ends cleanly between frames and io.ErrUnexpectedEOF when it ends
// inside one.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(fr.header[:])
	if uint64(n) > uint64(fr.maxFrame) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, n, fr.maxFrame)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(fr.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

// WriteMessage encodes payload as kind t and writes it as one frame.
func WriteMessage(w io.Writer, t string, payload any) error {
	b, err := Encode(t, payload)
	if err != nil {
		return err
	}
	return WriteFrame(w, b)
}
