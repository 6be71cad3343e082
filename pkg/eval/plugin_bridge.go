// Value <-> JSON-generic bridging for the plugin ABI boundary (spec
// §4.11 "Dispatch protocol"). Kept as its own copy of the "__type"
// special-form encoding pkg/plugin's abi.go uses on the guest side: both
// sides need to agree on the wire shape, but Value's fields are
// unexported so each package adapts it independently rather than sharing
// a helper through an import.
package eval

import (
	"encoding/base64"
	"encoding/hex"
	"sort"

	"github.com/hsab-shell/hsab/pkg/value"
)

func valueToGeneric(v value.Value) interface{} {
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
			out[k] = valueToGeneric(fv)
		}
		return out
	case value.TagList:
		items := v.List()
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = valueToGeneric(it)
		}
		return out
	case value.TagTable:
		t := v.Table()
		rows := make([]interface{}, len(t.Rows))
		for i, row := range t.Rows {
			r := make([]interface{}, len(row))
			for j, cell := range row {
				r[j] = valueToGeneric(cell)
			}
			rows[i] = r
		}
		columns := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			columns[i] = c
		}
		return map[string]interface{}{"__type": "table", "columns": columns, "rows": rows}
	case value.TagError:
		e := v.Error()
		out := map[string]interface{}{"__type": "error", "kind": e.Kind, "message": e.Message}
		if e.Code != nil {
			out["code"] = float64(*e.Code)
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

func genericToValue(g interface{}) value.Value {
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
			items[i] = genericToValue(v)
		}
		return value.List(items)
	case map[string]interface{}:
		if typ, ok := t["__type"].(string); ok {
			switch typ {
			case "marker":
				return value.Marker()
			case "error":
				ev := value.ErrorValue{Kind: strField(t["kind"]), Message: strField(t["message"]), Source: strField(t["source"]), Command: strField(t["command"])}
				if c, ok := t["code"].(float64); ok {
					ci := int(c)
					ev.Code = &ci
				}
				return value.ErrorVal(ev)
			case "table":
				var columns []string
				if cs, ok := t["columns"].([]interface{}); ok {
					for _, c := range cs {
						columns = append(columns, strField(c))
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
							row[i] = genericToValue(cell)
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
			fields[k] = genericToValue(v)
			order = append(order, k)
		}
		sort.Strings(order)
		return value.Map(fields, order)
	default:
		return value.Nil()
	}
}

func strField(v interface{}) string {
	s, _ := v.(string)
	return s
}
