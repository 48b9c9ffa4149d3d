package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/yndnr/memkv/pkg/resp"
)

// TableFormatter writes human-readable output.
type TableFormatter struct {
	NoHeaders bool
}

// Format renders replies redis-cli style, tables as columns, structs as
// FIELD/VALUE rows, slices of structs with one column per field and maps
// as sorted KEY/VALUE rows. Anything else is printed with %v.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case resp.Message:
		return WriteReply(w, v)
	case *Table:
		return v.render(w, f.NoHeaders)
	case Table:
		return v.render(w, f.NoHeaders)
	}

	table, ok := toTable(reflect.ValueOf(data))
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
	return table.render(w, f.NoHeaders)
}

// Table is tabular output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.render(w, false)
}

func (t *Table) render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func toTable(v reflect.Value) (*Table, bool) {
	v = deref(v)
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Struct:
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		for _, f := range exportedFields(v.Type()) {
			t.AddRow(f.name, cell(v.Field(f.index)))
		}
		return t, true

	case reflect.Map:
		t := &Table{Headers: []string{"KEY", "VALUE"}}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return cell(keys[i]) < cell(keys[j]) })
		for _, k := range keys {
			t.AddRow(cell(k), cell(v.MapIndex(k)))
		}
		return t, true

	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			t := &Table{Headers: []string{"VALUE"}}
			for i := 0; i < v.Len(); i++ {
				t.AddRow(cell(v.Index(i)))
			}
			return t, true
		}

		fields := exportedFields(elem)
		t := &Table{}
		for _, f := range fields {
			t.Headers = append(t.Headers, strings.ToUpper(f.name))
		}
		for i := 0; i < v.Len(); i++ {
			row := deref(v.Index(i))
			cells := make([]string, len(fields))
			for j, f := range fields {
				cells[j] = "-"
				if row.IsValid() {
					cells[j] = cell(row.Field(f.index))
				}
			}
			t.AddRow(cells...)
		}
		return t, true
	}
	return nil, false
}

type field struct {
	name  string
	index int
}

// exportedFields lists exported fields named by their json tag. Fields
// tagged json:"-" are skipped.
func exportedFields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		out = append(out, field{name: name, index: i})
	}
	return out
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// cell formats one value. Empty values print as "-".
func cell(v reflect.Value) string {
	v = deref(v)
	if !v.IsValid() {
		return "-"
	}
	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Slice, reflect.Array, reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		if v.Kind() == reflect.Map {
			return fmt.Sprintf("{%d keys}", v.Len())
		}
		return fmt.Sprintf("[%d items]", v.Len())
	default:
		return fmt.Sprint(v.Interface())
	}
}
