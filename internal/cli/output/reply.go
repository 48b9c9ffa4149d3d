package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/memkv/pkg/resp"
)

// ReplyValue converts a reply into plain Go values for json and yaml:
// null becomes nil, integers int64, strings string, arrays []any and
// error replies {"error": message}.
func ReplyValue(m resp.Message) any {
	switch m.Kind {
	case resp.KindNull, resp.KindNullArray:
		return nil
	case resp.KindInteger:
		return m.Int
	case resp.KindSimpleString, resp.KindBulkString:
		return m.Text()
	case resp.KindError:
		return map[string]string{"error": m.Text()}
	case resp.KindArray:
		items := make([]any, len(m.Items))
		for i, item := range m.Items {
			items[i] = ReplyValue(item)
		}
		return items
	default:
		return nil
	}
}

// WriteReply prints a reply the way redis-cli does.
func WriteReply(w io.Writer, m resp.Message) error {
	var sb strings.Builder
	writeReply(&sb, m, "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeReply(sb *strings.Builder, m resp.Message, indent string) {
	if m.Kind != resp.KindArray {
		sb.WriteString(replyText(m))
		sb.WriteByte('\n')
		return
	}
	if len(m.Items) == 0 {
		sb.WriteString("(empty array)\n")
		return
	}

	width := len(strconv.Itoa(len(m.Items)))
	for i, item := range m.Items {
		if i > 0 {
			sb.WriteString(indent)
		}
		prefix := fmt.Sprintf("%*d) ", width, i+1)
		sb.WriteString(prefix)
		writeReply(sb, item, indent+strings.Repeat(" ", len(prefix)))
	}
}

func replyText(m resp.Message) string {
	switch m.Kind {
	case resp.KindNull, resp.KindNullArray:
		return "(nil)"
	case resp.KindInteger:
		return "(integer) " + strconv.FormatInt(m.Int, 10)
	case resp.KindError:
		return "(error) " + m.Text()
	case resp.KindBulkString:
		return strconv.Quote(m.Text())
	default:
		return m.Text()
	}
}
