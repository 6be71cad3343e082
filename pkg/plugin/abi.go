// ABI value <-> JSON bridging (spec §4.11 ABI table: hsab_stack_push_json
// parses "__type" special forms for table/error/marker; the rest of the
// Value domain round-trips through plain JSON). Mirrors pkg/builtins'
// generic.go shape, duplicated here rather than shared because Value's
// fields are unexported and each package only needs its own adapter.
package plugin

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/hsab-shell/hsab/pkg/value"
)

const (
	maxStringLen = 65536    // 64 KiB, spec §4.11 buffer cap
	maxJSONLen   = 1 << 20 // 1 MiB, spec §4.11 buffer cap
)

func valueToJSON(v value.Value) (string, error) {
	b, err := json.Marshal(toJSONGeneric(v))
	if err != nil {
		return "null", err
	}
	return string(b), nil
}

func toJSONGeneric(v value.Value) interface{} {
	switch v.Tag {
	case value.TagLiteral, value.TagOutput:
		return v.Str()
	case value.TagNumber:
		return v.Num()
	case value.TagBool:
		return v.Bool()
	case value.TagNil:
		return nil
	case value.TagMarker:
		return map[string]interface{}{"__type": "marker"}
	case value.TagBlock:
		return map[string]interface{}{"__type": "block", "exprs": len(v.Exprs())}
	case value.TagMap:
		out := map[string]interface{}{}
		for _, k := range v.MapKeys() {
			fv, _ := v.MapGet(k)
			out[k] = toJSONGeneric(fv)
		}
		return out
	case value.TagList:
		items := v.List()
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = toJSONGeneric(it)
		}
		return out
	case value.TagTable:
		t := v.Table()
		rows := make([][]interface{}, len(t.Rows))
		for i, row := range t.Rows {
			r := make([]interface{}, len(row))
			for j, cell := range row {
				r[j] = toJSONGeneric(cell)
			}
			rows[i] = r
		}
		return map[string]interface{}{"__type": "table", "columns": t.Columns, "rows": rows}
	case value.TagError:
		e := v.Error()
		out := map[string]interface{}{"__type": "error", "kind": e.Kind, "message": e.Message}
		if e.Code != nil {
			out["code"] = *e.Code
		}
		if e.Source != "" {
			out["source"] = e.Source
		}
		if e.Command != "" {
			out["command"] = e.Command
		}
		return out
	case value.TagMedia:
		m := v.MediaVal()
		out := map[string]interface{}{
			"__type": "media", "mime_type": m.Mime,
			"data": base64.StdEncoding.EncodeToString(m.Data), "size": len(m.Data),
		}
		if m.Width != nil {
			out["width"] = *m.Width
		}
		if m.Height != nil {
			out["height"] = *m.Height
		}
		if m.Alt != "" {
			out["alt"] = m.Alt
		}
		if m.Source != "" {
			out["source"] = m.Source
		}
		return out
	case value.TagLink:
		l := v.LinkVal()
		out := map[string]interface{}{"__type": "link", "url": l.URL}
		if l.Text != "" {
			out["text"] = l.Text
		}
		return out
	case value.TagBytes:
		b := v.Bytes()
		return map[string]interface{}{
			"__type": "bytes", "data": base64.StdEncoding.EncodeToString(b),
			"size": len(b), "hex": hex.EncodeToString(b),
		}
	case value.TagBigInt:
		n := v.BigInt()
		dec, hx := "0", "0"
		if n != nil {
			dec, hx = n.String(), n.Text(16)
		}
		return map[string]interface{}{"__type": "bigint", "decimal": dec, "hex": hx}
	default:
		return v.AsArg()
	}
}

func jsonToValue(s string) (value.Value, error) {
	var g interface{}
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return value.Nil(), err
	}
	return fromJSONGeneric(g), nil
}

func fromJSONGeneric(g interface{}) value.Value {
	switch t := g.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.Literal(t)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, v := range t {
			items[i] = fromJSONGeneric(v)
		}
		return value.List(items)
	case map[string]interface{}:
		if typ, ok := t["__type"].(string); ok {
			switch typ {
			case "marker":
				return value.Marker()
			case "error":
				ev := value.ErrorValue{Kind: strOf(t["kind"]), Message: strOf(t["message"]), Source: strOf(t["source"]), Command: strOf(t["command"])}
				if c, ok := t["code"].(float64); ok {
					ci := int(c)
					ev.Code = &ci
				}
				return value.ErrorVal(ev)
			case "table":
				var columns []string
				if cs, ok := t["columns"].([]interface{}); ok {
					for _, c := range cs {
						columns = append(columns, strOf(c))
					}
				}
				var rows [][]value.Value
				if rs, ok := t["rows"].([]interface{}); ok {
					for _, r := range rs {
						rc, ok := r.([]interface{})
						if !ok {
							continue
						}
						row := make([]value.Value, len(rc))
						for i, cell := range rc {
							row[i] = fromJSONGeneric(cell)
						}
						rows = append(rows, row)
					}
				}
				return value.NewTable(columns, rows)
			}
		}
		fields := map[string]value.Value{}
		order := make([]string, 0, len(t))
		for k, v := range t {
			fields[k] = fromJSONGeneric(v)
			order = append(order, k)
		}
		sort.Strings(order)
		return value.Map(fields, order)
	default:
		return value.Nil()
	}
}

func strOf(v interface{}) string {
	s, _ := v.(string)
	return s
}
