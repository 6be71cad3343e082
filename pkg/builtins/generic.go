package builtins

import "github.com/hsab-shell/hsab/pkg/value"

// toGeneric/fromGeneric bridge hsab's private-field Value tree to the
// plain interface{} tree that github.com/mcuadros/go-lookup's
// reflect-based Lookup/LookupString expect (Value's fields are
// unexported, so a generic adapter is required before lookup can walk
// it).
func toGeneric(v value.Value) interface{} {
	switch v.Tag {
	case value.TagMap:
		out := map[string]interface{}{}
		for _, k := range v.MapKeys() {
			fv, _ := v.MapGet(k)
			out[k] = toGeneric(fv)
		}
		return out
	case value.TagList:
		items := v.List()
		out := make([]interface{}, len(items))
		for i, it := range items {
			out[i] = toGeneric(it)
		}
		return out
	case value.TagNumber:
		return v.Num()
	case value.TagBool:
		return v.Bool()
	case value.TagNil:
		return nil
	default:
		return v.AsArg()
	}
}

func fromGeneric(g interface{}) value.Value {
	switch t := g.(type) {
	case map[string]interface{}:
		fields := map[string]value.Value{}
		order := make([]string, 0, len(t))
		for k, v := range t {
			fields[k] = fromGeneric(v)
			order = append(order, k)
		}
		return value.Map(fields, order)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, v := range t {
			items[i] = fromGeneric(v)
		}
		return value.List(items)
	case float64:
		return value.Number(t)
	case bool:
		return value.Bool(t)
	case string:
		return value.Literal(t)
	case nil:
		return value.Nil()
	default:
		return value.Nil()
	}
}
