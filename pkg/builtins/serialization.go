// Serialization (spec §4.6 "Serialization"): a parse/serialize pair per
// format, plus file-extension auto-dispatch for open/save. JSON and CSV
// lean on stdlib encoding/json and encoding/csv (DESIGN.md justifies the
// stdlib choice: no repo in the pack reaches for a third-party JSON or CSV
// library, and the teacher's own config loader uses the YAML equivalent of
// this same "text <-> structured" shape).
package builtins

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func parseJSON(text string) (value.Value, error) {
	var g interface{}
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return value.Value{}, errtype.Exec("invalid JSON: " + err.Error())
	}
	return fromGeneric(g), nil
}

func toJSONString(v value.Value) (string, error) {
	b, err := json.Marshal(toGeneric(v))
	if err != nil {
		return "", errtype.Exec("cannot serialize to JSON: " + err.Error())
	}
	return string(b), nil
}

func tableToCSV(t *value.Table, delim rune) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim
	w.Write(t.Columns)
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.AsArg()
		}
		w.Write(rec)
	}
	w.Flush()
	return buf.String()
}

func csvToTable(text string, delim rune) (value.Value, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return value.Value{}, errtype.Exec("invalid delimited text: " + err.Error())
	}
	if len(records) == 0 {
		return value.NewTable(nil, nil), nil
	}
	columns := records[0]
	rows := make([][]value.Value, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]value.Value, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = value.Literal(rec[i])
			} else {
				row[i] = value.Nil()
			}
		}
		rows = append(rows, row)
	}
	return value.NewTable(columns, rows), nil
}

func linesToList(text string) value.Value {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if text == "" {
		return value.List(nil)
	}
	items := make([]value.Value, len(lines))
	for i, l := range lines {
		items[i] = value.Literal(l)
	}
	return value.List(items)
}

func listToLines(v value.Value) string {
	if v.Tag != value.TagList {
		return v.AsArg()
	}
	parts := make([]string, len(v.List()))
	for i, item := range v.List() {
		parts[i] = item.AsArg()
	}
	return strings.Join(parts, "\n")
}

func kvToMap(text string) value.Value {
	fields := map[string]value.Value{}
	var order []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		k := parts[0]
		v := ""
		if len(parts) == 2 {
			v = parts[1]
		}
		if _, exists := fields[k]; !exists {
			order = append(order, k)
		}
		fields[k] = value.Literal(v)
	}
	return value.Map(fields, order)
}

func mapToKV(v value.Value) string {
	if v.Tag != value.TagMap {
		return v.AsArg()
	}
	var lines []string
	for _, k := range v.MapKeys() {
		fv, _ := v.MapGet(k)
		lines = append(lines, k+"="+fv.AsArg())
	}
	return strings.Join(lines, "\n")
}

func registerSerialization(r *Registry) {
	parseFn := func(name string) StringArgFn {
		return func(h Host, args []string) ([]value.Value, int, error) {
			if len(args) < 1 {
				return nil, 0, errtype.StackUnderflow(name)
			}
			v, err := parseJSON(args[0])
			if err != nil {
				return nil, 0, err
			}
			return []value.Value{v}, 1, nil
		}
	}
	r.strArg("into-json", parseFn("into-json"))
	r.strArg("from-json", parseFn("from-json"))
	r.stack("to-json", func(h Host) error {
		v, err := h.Pop("to-json")
		if err != nil {
			return err
		}
		s, err := toJSONString(v)
		if err != nil {
			return err
		}
		h.Push(value.Literal(s))
		return nil
	})
	// json/unjson are the structured Expr kinds capture-mode lookahead
	// names directly: json parses a string into a Value (same direction
	// as into-json/from-json), unjson stringifies a Value (same
	// direction as to-json).
	r.stack("json", func(h Host) error {
		v, err := h.Pop("json")
		if err != nil {
			return err
		}
		parsed, err := parseJSON(v.AsArg())
		if err != nil {
			return err
		}
		h.Push(parsed)
		return nil
	})
	r.stack("unjson", func(h Host) error {
		v, err := h.Pop("unjson")
		if err != nil {
			return err
		}
		s, err := toJSONString(v)
		if err != nil {
			return err
		}
		h.Push(value.Literal(s))
		return nil
	})

	delimParse := func(name string, delim rune) StringArgFn {
		return func(h Host, args []string) ([]value.Value, int, error) {
			if len(args) < 1 {
				return nil, 0, errtype.StackUnderflow(name)
			}
			v, err := csvToTable(args[0], delim)
			if err != nil {
				return nil, 0, err
			}
			return []value.Value{v}, 1, nil
		}
	}
	r.strArg("into-csv", delimParse("into-csv", ','))
	r.strArg("from-csv", delimParse("from-csv", ','))
	r.strArg("into-tsv", delimParse("into-tsv", '\t'))
	r.strArg("from-tsv", delimParse("from-tsv", '\t'))

	r.stack("to-csv", func(h Host) error {
		t, err := popTable(h, "to-csv")
		if err != nil {
			return err
		}
		h.Push(value.Literal(tableToCSV(t, ',')))
		return nil
	})
	r.stack("to-tsv", func(h Host) error {
		t, err := popTable(h, "to-tsv")
		if err != nil {
			return err
		}
		h.Push(value.Literal(tableToCSV(t, '\t')))
		return nil
	})

	r.strArg("into-delim", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("into-delim")
		}
		delim := []rune(args[0])
		if len(delim) == 0 {
			return nil, 0, errtype.Exec("empty delimiter")
		}
		v, err := csvToTable(args[1], delim[0])
		if err != nil {
			return nil, 0, err
		}
		return []value.Value{v}, 2, nil
	})
	r.strArg("from-delim", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("from-delim")
		}
		delim := []rune(args[0])
		if len(delim) == 0 {
			return nil, 0, errtype.Exec("empty delimiter")
		}
		v, err := csvToTable(args[1], delim[0])
		if err != nil {
			return nil, 0, err
		}
		return []value.Value{v}, 2, nil
	})
	r.strArg("to-delim", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("to-delim")
		}
		delim := []rune(args[0])
		if len(delim) == 0 {
			return nil, 0, errtype.Exec("empty delimiter")
		}
		t, err := h.Pop("to-delim")
		if err != nil {
			return nil, 1, err
		}
		if t.Tag != value.TagTable {
			return nil, 1, errtype.TypeMismatch("Table", value.TypeOf(t))
		}
		return []value.Value{value.Literal(tableToCSV(t.Table(), delim[0]))}, 1, nil
	})

	r.strArg("into-lines", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("into-lines")
		}
		return []value.Value{linesToList(args[0])}, 1, nil
	})
	r.strArg("from-lines", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("from-lines")
		}
		return []value.Value{linesToList(args[0])}, 1, nil
	})
	r.stack("to-lines", func(h Host) error {
		v, err := h.Pop("to-lines")
		if err != nil {
			return err
		}
		h.Push(value.Literal(listToLines(v)))
		return nil
	})

	r.strArg("into-kv", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("into-kv")
		}
		return []value.Value{kvToMap(args[0])}, 1, nil
	})
	r.strArg("from-kv", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("from-kv")
		}
		return []value.Value{kvToMap(args[0])}, 1, nil
	})
	r.stack("to-kv", func(h Host) error {
		v, err := h.Pop("to-kv")
		if err != nil {
			return err
		}
		h.Push(value.Literal(mapToKV(v)))
		return nil
	})

	r.strArg("open", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("open")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, 1, errtype.Io(err)
		}
		v, err := dispatchByExtension(args[0], string(data))
		if err != nil {
			return nil, 1, err
		}
		return []value.Value{v}, 1, nil
	})
	r.strArg("save", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("save")
		}
		content, err := h.Pop("save")
		if err != nil {
			return nil, 1, err
		}
		text, err := serializeByExtension(args[0], content)
		if err != nil {
			return nil, 1, err
		}
		if err := os.WriteFile(args[0], []byte(text), 0o644); err != nil {
			return nil, 1, errtype.Io(err)
		}
		return nil, 1, nil
	})
}

func dispatchByExtension(path, text string) (value.Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(text)
	case ".csv":
		return csvToTable(text, ',')
	case ".tsv":
		return csvToTable(text, '\t')
	case ".kv", ".env":
		return kvToMap(text), nil
	default:
		return linesToList(text), nil
	}
}

func serializeByExtension(path string, v value.Value) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return toJSONString(v)
	case ".csv":
		if v.Tag != value.TagTable {
			return "", errtype.TypeMismatch("Table", value.TypeOf(v))
		}
		return tableToCSV(v.Table(), ','), nil
	case ".tsv":
		if v.Tag != value.TagTable {
			return "", errtype.TypeMismatch("Table", value.TypeOf(v))
		}
		return tableToCSV(v.Table(), '\t'), nil
	case ".kv", ".env":
		return mapToKV(v), nil
	default:
		return listToLines(v), nil
	}
}
