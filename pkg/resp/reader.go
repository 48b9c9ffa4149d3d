package resp

import (
	"errors"
	"io"
)

// minReadSize is the smallest free space offered to the underlying reader.
const minReadSize = 4096

// Reader decodes a stream of messages from an io.Reader.
//
// It retains undecoded bytes between reads and always drains complete
// buffered messages before reading again, so pipelined requests are served
// in order. Buffer growth is bounded by the decoder limits: a frame that
// would exceed them fails with ErrLimitExceeded before it is fully buffered.
// A partially received frame is not decoded again from its start; decoding
// resumes at the first value that was still incomplete.
type Reader struct {
	rd    io.Reader
	lim   Limits
	buf   []byte
	start int
	dec   decoder
}

// NewReader creates a Reader over rd.
func NewReader(rd io.Reader, lim Limits) *Reader {
	return &Reader{
		rd:  rd,
		lim: lim,
		buf: make([]byte, 0, minReadSize),
	}
}

// ReadMessage returns the next complete message.
//
// It returns io.EOF when the stream ends cleanly between messages and
// io.ErrUnexpectedEOF when it ends inside one.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		if r.start < len(r.buf) {
			r.dec.buf = r.buf[r.start:]
			r.dec.lim = r.lim
			msg, n, err := r.dec.decode()
			if err == nil {
				r.dec.reset()
				r.start += n
				if r.start == len(r.buf) {
					r.buf = r.buf[:0]
					r.start = 0
				}
				return msg, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				r.dec.reset()
				return Message{}, err
			}
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) && r.Buffered() > 0 {
				return Message{}, io.ErrUnexpectedEOF
			}
			return Message{}, err
		}
	}
}

// Buffered returns the number of bytes read but not yet decoded.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.start
}

// Reset discards buffered data and switches to reading from rd.
func (r *Reader) Reset(rd io.Reader) {
	r.rd = rd
	r.buf = r.buf[:0]
	r.start = 0
	r.dec.reset()
}

// fill compacts the buffer and performs one read. Offsets held by r.dec are
// relative to r.start and survive both compaction and growth.
func (r *Reader) fill() error {
	if r.start > 0 {
		n := copy(r.buf, r.buf[r.start:])
		r.buf = r.buf[:n]
		r.start = 0
	}

	if cap(r.buf)-len(r.buf) < minReadSize {
		grown := make([]byte, len(r.buf), 2*cap(r.buf)+minReadSize)
		copy(grown, r.buf)
		r.buf = grown
	}

	n, err := r.rd.Read(r.buf[len(r.buf):cap(r.buf)])
	r.buf = r.buf[:len(r.buf)+n]
	if n > 0 {
		return nil
	}
	if err == nil {
		return nil
	}
	return err
}
