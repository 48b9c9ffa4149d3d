package resp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Message.
type Kind uint8

const (
	// KindNull is the null bulk string ("$-1").
	KindNull Kind = iota
	// KindInteger is a signed 64-bit integer (":").
	KindInteger
	// KindSimpleString is a single-line status string ("+").
	KindSimpleString
	// KindError is a single-line error string ("-").
	KindError
	// KindBulkString is a length-prefixed binary-safe string ("$").
	KindBulkString
	// KindArray is an ordered sequence of messages ("*").
	KindArray
	// KindNullArray is the null array ("*-1").
	KindNullArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	case KindNullArray:
		return "null-array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Message is a single RESP value.
//
// Only the fields relevant to Kind are meaningful: Int for KindInteger,
// Str for the string kinds, Items for KindArray.
type Message struct {
	Kind  Kind
	Int   int64
	Str   []byte
	Items []Message
}

// NullValue returns the null bulk string.
func NullValue() Message {
	return Message{Kind: KindNull}
}

// NullArrayValue returns the null array.
func NullArrayValue() Message {
	return Message{Kind: KindNullArray}
}

// IntegerValue returns an integer message.
func IntegerValue(n int64) Message {
	return Message{Kind: KindInteger, Int: n}
}

// SimpleStringValue returns a simple string message.
func SimpleStringValue(s string) Message {
	return Message{Kind: KindSimpleString, Str: []byte(s)}
}

// ErrorValue returns an error message.
func ErrorValue(s string) Message {
	return Message{Kind: KindError, Str: []byte(s)}
}

// BulkStringValue returns a bulk string message holding s.
func BulkStringValue(s string) Message {
	return Message{Kind: KindBulkString, Str: []byte(s)}
}

// BulkBytesValue returns a bulk string message holding b. The slice is not copied.
func BulkBytesValue(b []byte) Message {
	if b == nil {
		b = []byte{}
	}
	return Message{Kind: KindBulkString, Str: b}
}

// ArrayValue returns an array message holding items.
func ArrayValue(items ...Message) Message {
	if items == nil {
		items = []Message{}
	}
	return Message{Kind: KindArray, Items: items}
}

// CommandValue builds the request form of a command: an array of bulk strings.
func CommandValue(name string, args ...string) Message {
	items := make([]Message, 0, len(args)+1)
	items = append(items, BulkStringValue(name))
	for _, a := range args {
		items = append(items, BulkStringValue(a))
	}
	return ArrayValue(items...)
}

// Text returns the string payload.
func (m Message) Text() string {
	return string(m.Str)
}

// IsNull reports whether m is either null variant.
func (m Message) IsNull() bool {
	return m.Kind == KindNull || m.Kind == KindNullArray
}

// Command splits a request into its command name and arguments.
//
// The message must be a non-empty array whose first element is a bulk string.
// The returned name is not case-normalized.
func (m Message) Command() (string, []Message, error) {
	if m.Kind != KindArray {
		return "", nil, fmt.Errorf("%w: expected array, got %s", ErrNotCommand, m.Kind)
	}
	if len(m.Items) == 0 {
		return "", nil, fmt.Errorf("%w: empty array", ErrNotCommand)
	}
	head := m.Items[0]
	if head.Kind != KindBulkString {
		return "", nil, fmt.Errorf("%w: command name must be a bulk string, got %s", ErrNotCommand, head.Kind)
	}
	return string(head.Str), m.Items[1:], nil
}

// Equal reports whether m and o are structurally equal.
func (m Message) Equal(o Message) bool {
	type pair struct{ a, b Message }
	stack := []pair{{m, o}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.a.Kind != p.b.Kind {
			return false
		}
		switch p.a.Kind {
		case KindInteger:
			if p.a.Int != p.b.Int {
				return false
			}
		case KindSimpleString, KindError, KindBulkString:
			if !bytes.Equal(p.a.Str, p.b.Str) {
				return false
			}
		case KindArray:
			if len(p.a.Items) != len(p.b.Items) {
				return false
			}
			for i := range p.a.Items {
				stack = append(stack, pair{p.a.Items[i], p.b.Items[i]})
			}
		}
	}
	return true
}

// String renders m in a compact, human-readable form for logs and tests.
func (m Message) String() string {
	var sb strings.Builder
	m.format(&sb)
	return sb.String()
}

func (m Message) format(sb *strings.Builder) {
	switch m.Kind {
	case KindNull, KindNullArray:
		sb.WriteString("(nil)")
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(m.Int, 10))
	case KindSimpleString:
		sb.Write(m.Str)
	case KindError:
		sb.WriteString("(error) ")
		sb.Write(m.Str)
	case KindBulkString:
		sb.WriteString(strconv.Quote(string(m.Str)))
	case KindArray:
		sb.WriteByte('[')
		for i, it := range m.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.format(sb)
		}
		sb.WriteByte(']')
	}
}
