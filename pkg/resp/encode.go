package resp

import (
	"io"
	"strconv"
)

// Encode serializes m into a new buffer.
func Encode(m Message) []byte {
	return AppendEncode(make([]byte, 0, encodedSizeHint(m)), m)
}

// AppendEncode appends the serialization of m to dst and returns the extended buffer.
//
// Nested arrays are walked with an explicit stack, mirroring the decoder.
func AppendEncode(dst []byte, m Message) []byte {
	stack := []Message{m}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.Kind {
		case KindNull:
			dst = append(dst, "$-1\r\n"...)
		case KindNullArray:
			dst = append(dst, "*-1\r\n"...)
		case KindInteger:
			dst = append(dst, ':')
			dst = strconv.AppendInt(dst, cur.Int, 10)
			dst = append(dst, '\r', '\n')
		case KindSimpleString:
			dst = append(dst, '+')
			dst = appendLine(dst, cur.Str)
		case KindError:
			dst = append(dst, '-')
			dst = appendLine(dst, cur.Str)
		case KindBulkString:
			dst = append(dst, '$')
			dst = strconv.AppendInt(dst, int64(len(cur.Str)), 10)
			dst = append(dst, '\r', '\n')
			dst = append(dst, cur.Str...)
			dst = append(dst, '\r', '\n')
		case KindArray:
			dst = append(dst, '*')
			dst = strconv.AppendInt(dst, int64(len(cur.Items)), 10)
			dst = append(dst, '\r', '\n')
			for i := len(cur.Items) - 1; i >= 0; i-- {
				stack = append(stack, cur.Items[i])
			}
		}
	}
	return dst
}

// Write encodes m and writes it to w in a single call.
func Write(w io.Writer, m Message) error {
	_, err := w.Write(Encode(m))
	return err
}

// appendLine writes a single-line payload followed by CRLF. CR and LF inside
// the payload would break framing and are replaced by spaces.
func appendLine(dst, line []byte) []byte {
	for _, c := range line {
		if c == '\r' || c == '\n' {
			c = ' '
		}
		dst = append(dst, c)
	}
	return append(dst, '\r', '\n')
}

func encodedSizeHint(m Message) int {
	switch m.Kind {
	case KindBulkString, KindSimpleString, KindError:
		return len(m.Str) + 16
	case KindArray:
		return 16 + len(m.Items)*16
	default:
		return 16
	}
}
