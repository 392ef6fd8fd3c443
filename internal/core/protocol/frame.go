package protocol

import (
	"encoding/binary"
	"io"

	"github.com/rotisserie/eris"
)

// DefaultMaxFrameSize bounds a single framed payload.
const DefaultMaxFrameSize = 4 << 20

const frameHeaderSize = 4

// WriteFrame writes payload prefixed with its 4 byte big-endian length.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return eris.Wrap(err, "write frame")
	}
	return nil
}

// ReadFrame reads one length-prefixed payload. Frames longer than max are
// rejected with ErrMessageTooLarge.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if max > 0 && int(size) > max {
		return nil, eris.Wrapf(ErrMessageTooLarge, "frame of %d bytes", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, eris.Wrap(err, "read frame body")
	}
	return payload, nil
}
