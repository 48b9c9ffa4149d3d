package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/memkv/pkg/resp"
)

// YAMLFormatter writes YAML documents.
type YAMLFormatter struct{}

// Format writes data as YAML. Replies are converted with ReplyValue.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if m, ok := data.(resp.Message); ok {
		data = ReplyValue(m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
