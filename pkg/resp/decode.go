package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits applied by DefaultLimits.
const (
	// MaxArrayLen limits the number of elements in a single array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxDepth limits array nesting.
	MaxDepth = 32

	// MaxLineLen limits simple string, error and header lines (64KB).
	MaxLineLen = 64 * 1024

	// MaxFrameLen limits the encoded size of one top-level message (8MB).
	MaxFrameLen = 8 * 1024 * 1024
)

var (
	// ErrIncomplete means the buffer ends inside a message; read more bytes and retry.
	ErrIncomplete = errors.New("resp: incomplete message")

	// ErrProtocol means the input is not valid RESP.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded means a frame is larger than the configured limits.
	ErrLimitExceeded = errors.New("resp: limit exceeded")

	// ErrNotCommand means a message is not an array headed by a bulk string.
	ErrNotCommand = errors.New("resp: not a command")
)

// Limits bounds what the decoder accepts. A zero or negative field disables that limit.
type Limits struct {
	MaxBulkLen  int
	MaxArrayLen int
	MaxDepth    int
	MaxLineLen  int
	MaxFrameLen int
}

// DefaultLimits returns the limits used for untrusted client input.
func DefaultLimits() Limits {
	return Limits{
		MaxBulkLen:  MaxBulkLen,
		MaxArrayLen: MaxArrayLen,
		MaxDepth:    MaxDepth,
		MaxLineLen:  MaxLineLen,
		MaxFrameLen: MaxFrameLen,
	}
}

// Decode decodes the first complete message in buf using DefaultLimits.
//
// It returns the message and the number of bytes consumed, or ErrIncomplete
// if buf holds only a prefix of a message.
func Decode(buf []byte) (Message, int, error) {
	return DecodeWithLimits(buf, DefaultLimits())
}

// DecodeWithLimits is Decode with explicit limits.
//
// The returned message never aliases buf.
func DecodeWithLimits(buf []byte, lim Limits) (Message, int, error) {
	d := decoder{buf: buf, lim: lim}
	return d.decode()
}

// frame is a partially filled array on the decode stack.
type frame struct {
	items []Message
	want  int
}

// decoder holds the array stack and the offset of the next unread value.
// After ErrIncomplete both are left as they were, so a caller that only
// appends to buf can call decode again and resume where it stopped.
type decoder struct {
	buf   []byte
	lim   Limits
	stack []frame
	pos   int
}

// reset prepares d for a new message.
func (d *decoder) reset() {
	d.stack = nil
	d.pos = 0
}

// decode walks nested arrays with an explicit stack so that nesting depth
// costs heap, not goroutine stack.
func (d *decoder) decode() (Message, int, error) {
	for {
		msg, next, count, err := d.readValue(d.pos)
		if err != nil {
			return Message{}, 0, err
		}
		d.pos = next

		if count > 0 {
			if d.lim.MaxDepth > 0 && len(d.stack)+1 > d.lim.MaxDepth {
				return Message{}, 0, fmt.Errorf("%w: nesting depth exceeds limit %d", ErrLimitExceeded, d.lim.MaxDepth)
			}
			d.stack = append(d.stack, frame{
				items: make([]Message, 0, min(count, MaxArrayLen)),
				want:  count,
			})
			continue
		}

		for {
			if len(d.stack) == 0 {
				return msg, d.pos, nil
			}
			top := &d.stack[len(d.stack)-1]
			top.items = append(top.items, msg)
			if len(top.items) < top.want {
				break
			}
			msg = Message{Kind: KindArray, Items: top.items}
			d.stack = d.stack[:len(d.stack)-1]
		}
	}
}

// readValue decodes one scalar at pos. For a non-empty array header it
// returns the element count instead of a message.
func (d *decoder) readValue(pos int) (Message, int, int, error) {
	if d.lim.MaxFrameLen > 0 && pos > d.lim.MaxFrameLen {
		return Message{}, 0, 0, fmt.Errorf("%w: frame exceeds limit %d", ErrLimitExceeded, d.lim.MaxFrameLen)
	}
	if pos >= len(d.buf) {
		return Message{}, 0, 0, ErrIncomplete
	}

	typ := d.buf[pos]
	switch typ {
	case '+', '-', ':', '$', '*':
	default:
		return Message{}, 0, 0, fmt.Errorf("%w: unknown type byte %q", ErrProtocol, typ)
	}

	line, next, err := d.readLine(pos + 1)
	if err != nil {
		return Message{}, 0, 0, err
	}

	switch typ {
	case '+':
		return Message{Kind: KindSimpleString, Str: bytes.Clone(line)}, next, 0, nil

	case '-':
		return Message{Kind: KindError, Str: bytes.Clone(line)}, next, 0, nil

	case ':':
		n, err := parseNumber(line)
		if err != nil {
			return Message{}, 0, 0, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Message{Kind: KindInteger, Int: n}, next, 0, nil

	case '$':
		n, err := parseLength(line, d.lim.MaxBulkLen, "bulk length")
		if err != nil {
			return Message{}, 0, 0, err
		}
		if n < 0 {
			return Message{Kind: KindNull}, next, 0, nil
		}
		if n > maxInt-next-2 {
			return Message{}, 0, 0, fmt.Errorf("%w: bulk length %d overflows", ErrLimitExceeded, n)
		}
		end := next + n
		if d.lim.MaxFrameLen > 0 && end+2 > d.lim.MaxFrameLen {
			return Message{}, 0, 0, fmt.Errorf("%w: frame exceeds limit %d", ErrLimitExceeded, d.lim.MaxFrameLen)
		}
		if end+2 > len(d.buf) {
			return Message{}, 0, 0, ErrIncomplete
		}
		if d.buf[end] != '\r' || d.buf[end+1] != '\n' {
			return Message{}, 0, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		payload := make([]byte, n)
		copy(payload, d.buf[next:end])
		return Message{Kind: KindBulkString, Str: payload}, end + 2, 0, nil

	default: // '*'
		n, err := parseLength(line, d.lim.MaxArrayLen, "array length")
		if err != nil {
			return Message{}, 0, 0, err
		}
		switch {
		case n < 0:
			return Message{Kind: KindNullArray}, next, 0, nil
		case n == 0:
			return Message{Kind: KindArray, Items: []Message{}}, next, 0, nil
		default:
			return Message{}, next, n, nil
		}
	}
}

// readLine returns the bytes between start and the next CRLF, and the
// offset just past the CRLF.
func (d *decoder) readLine(start int) ([]byte, int, error) {
	rest := d.buf[start:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		if d.lim.MaxLineLen > 0 && len(rest) > d.lim.MaxLineLen {
			return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, d.lim.MaxLineLen)
		}
		return nil, 0, ErrIncomplete
	}
	if idx == 0 || rest[idx-1] != '\r' {
		return nil, 0, fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	line := rest[:idx-1]
	if d.lim.MaxLineLen > 0 && len(line) > d.lim.MaxLineLen {
		return nil, 0, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, d.lim.MaxLineLen)
	}
	if bytes.IndexByte(line, '\r') >= 0 {
		return nil, 0, fmt.Errorf("%w: stray CR in line", ErrProtocol)
	}
	return line, start + idx + 1, nil
}

// parseLength parses a bulk or array header. It returns -1 for the null form.
func parseLength(line []byte, limit int, what string) (int, error) {
	n, err := parseNumber(line)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrProtocol, what)
	}
	if n < -1 {
		return 0, fmt.Errorf("%w: invalid %s %d", ErrProtocol, what, n)
	}
	if limit > 0 && n > int64(limit) {
		return 0, fmt.Errorf("%w: %s %d exceeds limit %d", ErrLimitExceeded, what, n, limit)
	}
	if n > int64(maxInt) {
		return 0, fmt.Errorf("%w: %s %d overflows", ErrLimitExceeded, what, n)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

func parseNumber(line []byte) (int64, error) {
	if len(line) == 0 {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(string(line), 10, 64)
}
