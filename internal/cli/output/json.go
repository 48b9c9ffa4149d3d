package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/memkv/pkg/resp"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

// Format writes data as JSON. Replies are converted with ReplyValue.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if m, ok := data.(resp.Message); ok {
		data = ReplyValue(m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
