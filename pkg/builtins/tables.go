// Tables (spec §4.6 "Tables"). group-by/unique/reverse/reject/duplicates
// lean on github.com/samber/lo's generic collection helpers (GroupBy,
// UniqBy, Reverse, Reject, Filter) the way the rest of the retrieval pack
// reaches for lo instead of hand-rolled loops over slices; where and
// reject-where share the filterRows loop.
package builtins

import (
	"sort"

	"github.com/samber/lo"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func rowToRecord(columns []string, row []value.Value) value.Value {
	fields := map[string]value.Value{}
	for i, c := range columns {
		if i < len(row) {
			fields[c] = row[i]
		} else {
			fields[c] = value.Nil()
		}
	}
	return value.Map(fields, append([]string(nil), columns...))
}

func rowKey(row []value.Value) string {
	out := ""
	for _, v := range row {
		out += v.AsArg() + "\x1f"
	}
	return out
}

// runRowPredicate pushes row as a Record, runs block, restores the stack
// to its pre-row state and reports the exit code — predicates communicate
// purely via exit code, never by leaving values on the stack (spec §4.6).
func runRowPredicate(h Host, columns []string, row []value.Value, block value.Value) (bool, error) {
	before := h.All()
	h.Push(rowToRecord(columns, row))
	code, err := h.RunBlock(block.Exprs())
	h.Replace(before)
	return code == 0, err
}

func popTable(h Host, op string) (*value.Table, error) {
	v, err := h.Pop(op)
	if err != nil {
		return nil, err
	}
	if v.Tag != value.TagTable {
		return nil, errtype.TypeMismatch("Table", value.TypeOf(v))
	}
	return v.Table(), nil
}

func registerTables(r *Registry) {
	r.stack("table", func(h Host) error {
		var records []value.Value
		for {
			v, ok := h.Peek(0)
			if !ok || v.Tag == value.TagMarker {
				break
			}
			popped, err := h.Pop("table")
			if err != nil {
				return err
			}
			if popped.Tag != value.TagMap {
				return errtype.TypeMismatch("Map", value.TypeOf(popped))
			}
			records = append(records, popped)
		}
		if _, ok := h.Peek(0); ok {
			h.Pop("table") // discard the Marker
		}
		// records were popped top-first; reverse to restore push order.
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
		var columns []string
		seen := map[string]bool{}
		for _, rec := range records {
			for _, k := range rec.MapKeys() {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
		rows := make([][]value.Value, len(records))
		for i, rec := range records {
			row := make([]value.Value, len(columns))
			for j, c := range columns {
				if v, ok := rec.MapGet(c); ok {
					row[j] = v
				} else {
					row[j] = value.Nil()
				}
			}
			rows[i] = row
		}
		h.Push(value.NewTable(columns, rows))
		return nil
	})

	r.stack("where", func(h Host) error {
		block, err := h.Pop("where")
		if err != nil {
			return err
		}
		t, err := popTable(h, "where")
		if err != nil {
			return err
		}
		kept, err := filterRows(h, t, block, true)
		if err != nil {
			return err
		}
		h.Push(value.NewTable(t.Columns, kept))
		return nil
	})

	r.stack("reject-where", func(h Host) error {
		block, err := h.Pop("reject-where")
		if err != nil {
			return err
		}
		t, err := popTable(h, "reject-where")
		if err != nil {
			return err
		}
		kept, err := filterRows(h, t, block, false)
		if err != nil {
			return err
		}
		h.Push(value.NewTable(t.Columns, kept))
		return nil
	})

	r.stack("sort-by", func(h Host) error {
		col, err := h.Pop("sort-by")
		if err != nil {
			return err
		}
		t, err := popTable(h, "sort-by")
		if err != nil {
			return err
		}
		idx := colIndex(t.Columns, col.AsArg())
		rows := append([][]value.Value(nil), t.Rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			if idx < 0 {
				return false
			}
			return rows[i][idx].AsArg() < rows[j][idx].AsArg()
		})
		h.Push(value.NewTable(t.Columns, rows))
		return nil
	})

	r.stack("select", func(h Host) error {
		cols, err := h.Pop("select")
		if err != nil {
			return err
		}
		t, err := popTable(h, "select")
		if err != nil {
			return err
		}
		var names []string
		if cols.Tag == value.TagList {
			for _, c := range cols.List() {
				names = append(names, c.AsArg())
			}
		} else {
			names = append(names, cols.AsArg())
		}
		rows := make([][]value.Value, len(t.Rows))
		for i, row := range t.Rows {
			newRow := make([]value.Value, len(names))
			for j, n := range names {
				if idx := colIndex(t.Columns, n); idx >= 0 {
					newRow[j] = row[idx]
				} else {
					newRow[j] = value.Nil()
				}
			}
			rows[i] = newRow
		}
		h.Push(value.NewTable(names, rows))
		return nil
	})

	r.stack("first", func(h Host) error {
		t, err := popTable(h, "first")
		if err != nil {
			return err
		}
		if len(t.Rows) == 0 {
			h.Push(value.Nil())
			return nil
		}
		h.Push(rowToRecord(t.Columns, t.Rows[0]))
		return nil
	})
	r.stack("last", func(h Host) error {
		t, err := popTable(h, "last")
		if err != nil {
			return err
		}
		if len(t.Rows) == 0 {
			h.Push(value.Nil())
			return nil
		}
		h.Push(rowToRecord(t.Columns, t.Rows[len(t.Rows)-1]))
		return nil
	})
	r.stack("nth", func(h Host) error {
		n, err := popIndex(h, "nth")
		if err != nil {
			return err
		}
		t, err := popTable(h, "nth")
		if err != nil {
			return err
		}
		if n < 0 || n >= len(t.Rows) {
			h.Push(value.Nil())
			return nil
		}
		h.Push(rowToRecord(t.Columns, t.Rows[n]))
		return nil
	})

	r.stack("group-by", func(h Host) error {
		col, err := h.Pop("group-by")
		if err != nil {
			return err
		}
		t, err := popTable(h, "group-by")
		if err != nil {
			return err
		}
		idx := colIndex(t.Columns, col.AsArg())
		groups := lo.GroupBy(t.Rows, func(row []value.Value) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return row[idx].AsArg()
		})
		fields := map[string]value.Value{}
		var order []string
		for k, rows := range groups {
			items := make([]value.Value, len(rows))
			for i, row := range rows {
				items[i] = rowToRecord(t.Columns, row)
			}
			fields[k] = value.List(items)
			order = append(order, k)
		}
		sort.Strings(order)
		h.Push(value.Map(fields, order))
		return nil
	})

	r.stack("unique", func(h Host) error {
		t, err := popTable(h, "unique")
		if err != nil {
			return err
		}
		rows := lo.UniqBy(t.Rows, rowKey)
		h.Push(value.NewTable(t.Columns, rows))
		return nil
	})

	r.stack("reverse", func(h Host) error {
		t, err := popTable(h, "reverse")
		if err != nil {
			return err
		}
		h.Push(value.NewTable(t.Columns, lo.Reverse(append([][]value.Value(nil), t.Rows...))))
		return nil
	})

	r.stack("flatten", func(h Host) error {
		t, err := popTable(h, "flatten")
		if err != nil {
			return err
		}
		var out []value.Value
		for _, row := range t.Rows {
			out = append(out, row...)
		}
		h.Push(value.List(out))
		return nil
	})

	r.stack("reject", func(h Host) error {
		target, err := h.Pop("reject")
		if err != nil {
			return err
		}
		t, err := popTable(h, "reject")
		if err != nil {
			return err
		}
		key := target.AsArg()
		kept := lo.Reject(t.Rows, func(row []value.Value, _ int) bool { return rowKey(row) == key })
		h.Push(value.NewTable(t.Columns, kept))
		return nil
	})

	r.stack("duplicates", func(h Host) error {
		t, err := popTable(h, "duplicates")
		if err != nil {
			return err
		}
		counts := map[string]int{}
		for _, row := range t.Rows {
			counts[rowKey(row)]++
		}
		dup := lo.Filter(t.Rows, func(row []value.Value, _ int) bool { return counts[rowKey(row)] > 1 })
		h.Push(value.NewTable(t.Columns, dup))
		return nil
	})
}

func filterRows(h Host, t *value.Table, block value.Value, keepOnMatch bool) ([][]value.Value, error) {
	var kept [][]value.Value
	for _, row := range t.Rows {
		ok, err := runRowPredicate(h, t.Columns, row, block)
		if err != nil {
			return nil, err
		}
		if ok == keepOnMatch {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func colIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
