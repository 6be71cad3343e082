// Package value implements hsab's tagged-union Value domain (spec C1/§3.1):
// the single type that flows across the stack, builtins, the process
// engine, and the plugin ABI.
package value

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
)

// Tag identifies which variant a Value carries.
type Tag int

const (
	TagLiteral Tag = iota
	TagOutput
	TagNumber
	TagBool
	TagNil
	TagMarker
	TagBlock
	TagList
	TagMap
	TagTable
	TagError
	TagMedia
	TagLink
	TagBytes
	TagBigInt
	TagFuture
)

func (t Tag) String() string {
	switch t {
	case TagLiteral:
		return "Literal"
	case TagOutput:
		return "Output"
	case TagNumber:
		return "Number"
	case TagBool:
		return "Bool"
	case TagNil:
		return "Nil"
	case TagMarker:
		return "Marker"
	case TagBlock:
		return "Block"
	case TagList:
		return "List"
	case TagMap:
		return "Map"
	case TagTable:
		return "Table"
	case TagError:
		return "Error"
	case TagMedia:
		return "Media"
	case TagLink:
		return "Link"
	case TagBytes:
		return "Bytes"
	case TagBigInt:
		return "BigInt"
	case TagFuture:
		return "Future"
	default:
		return "Unknown"
	}
}

// Expr is satisfied by pkg/parser's expression nodes. Value only needs to
// hold a frozen sequence of them for Block; it never inspects their shape.
type Expr interface{}

// ErrorValue is the structured payload of a Tag-Error Value (C13's
// first-class error channel).
type ErrorValue struct {
	Kind    string
	Message string
	Code    *int
	Source  string
	Command string
}

// MediaValue is MIME-tagged byte content for terminal-inline display.
type MediaValue struct {
	Mime   string
	Data   []byte
	Width  *int
	Height *int
	Alt    string
	Source string
}

// LinkValue is a hyperlink Value.
type LinkValue struct {
	URL  string
	Text string
}

// FutureState is the monotone state machine shared across threads that hold
// a Future's handle (C1, C9). Pending transitions exactly once to one of
// the three terminal states.
type FutureState struct {
	mu        sync.Mutex
	completed bool
	failed    bool
	cancelled bool
	result    Value
	failMsg   string
}

// Snapshot reads the current terminal/pending state without mutating it.
func (s *FutureState) Snapshot() (status string, result Value, failMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.completed:
		return "completed", s.result, ""
	case s.failed:
		return "failed", Nil(), s.failMsg
	case s.cancelled:
		return "cancelled", Nil(), ""
	default:
		return "pending", Nil(), ""
	}
}

// Complete transitions Pending -> Completed(v). No-op if already terminal.
func (s *FutureState) Complete(v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.failed || s.cancelled {
		return
	}
	s.completed = true
	s.result = v
}

// Fail transitions Pending -> Failed(msg). No-op if already terminal.
func (s *FutureState) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.failed || s.cancelled {
		return
	}
	s.failed = true
	s.failMsg = msg
}

// Cancel transitions Pending -> Cancelled atomically. Already-terminal
// states are untouched, matching future-cancel's contract (spec §4.9).
func (s *FutureState) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || s.failed || s.cancelled {
		return false
	}
	s.cancelled = true
	return true
}

// FutureValue is the carried state of a Tag-Future Value.
type FutureValue struct {
	ID    string
	State *FutureState
}

// Table is an ordered column list plus rectangular rows (spec §3.1
// invariant: every row length equals len(Columns)).
type Table struct {
	Columns []string
	Rows    [][]Value
}

// Value is hsab's tagged sum type. Exactly one of the typed fields is
// meaningful for a given Tag; callers switch on Tag before reading payload
// fields, the same discipline the teacher applies to its small
// discriminated command-result structs.
type Value struct {
	Tag Tag

	str    string  // Literal, Output
	num    float64 // Number
	b      bool    // Bool
	list   []Value // List, Block(as Exprs is separate)
	exprs  []Expr  // Block
	fields map[string]Value
	keys   []string // Map insertion order, kept for deterministic previews
	table  *Table
	err    *ErrorValue
	media  *MediaValue
	link   *LinkValue
	bytes  []byte
	bigint *big.Int
	future *FutureValue
}

func Literal(s string) Value { return Value{Tag: TagLiteral, str: s} }
func Output(s string) Value  { return Value{Tag: TagOutput, str: s} }
func Number(f float64) Value { return Value{Tag: TagNumber, num: f} }
func Bool(b bool) Value      { return Value{Tag: TagBool, b: b} }
func Nil() Value             { return Value{Tag: TagNil} }
func Marker() Value          { return Value{Tag: TagMarker} }
func Block(exprs []Expr) Value {
	return Value{Tag: TagBlock, exprs: exprs}
}
func List(items []Value) Value { return Value{Tag: TagList, list: items} }
func Bytes(b []byte) Value     { return Value{Tag: TagBytes, bytes: b} }
func BigInt(n *big.Int) Value  { return Value{Tag: TagBigInt, bigint: n} }
func ErrorVal(e ErrorValue) Value {
	ev := e
	return Value{Tag: TagError, err: &ev}
}
func Media(m MediaValue) Value {
	mv := m
	return Value{Tag: TagMedia, media: &mv}
}
func Link(l LinkValue) Value {
	lv := l
	return Value{Tag: TagLink, link: &lv}
}
func Future(f FutureValue) Value {
	fv := f
	return Value{Tag: TagFuture, future: &fv}
}

// Map builds a Tag-Map Value ("Record"), preserving the order keys were
// supplied in for preview rendering (spec: key uniqueness required,
// insertion order is not semantically significant but is nice for humans).
func Map(fields map[string]Value, order []string) Value {
	f := make(map[string]Value, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	keys := append([]string(nil), order...)
	return Value{Tag: TagMap, fields: f, keys: keys}
}

func NewTable(columns []string, rows [][]Value) Value {
	return Value{Tag: TagTable, table: &Table{Columns: append([]string(nil), columns...), Rows: rows}}
}

// Accessors. They do not check Tag: callers must check Tag first (the
// resolver/builtin dispatch always does), and an accessor called on the
// wrong variant returns its field's zero value (nil for pointer fields).

func (v Value) Str() string { return v.str }
func (v Value) Num() float64 { return v.num }
func (v Value) Bool() bool   { return v.b }
func (v Value) List() []Value { return v.list }
func (v Value) Exprs() []Expr { return v.exprs }
func (v Value) Error() *ErrorValue { return v.err }
func (v Value) MediaVal() *MediaValue { return v.media }
func (v Value) LinkVal() *LinkValue   { return v.link }
func (v Value) Bytes() []byte         { return v.bytes }
func (v Value) BigInt() *big.Int      { return v.bigint }
func (v Value) Future() *FutureValue  { return v.future }
func (v Value) Table() *Table         { return v.table }

func (v Value) MapGet(key string) (Value, bool) {
	val, ok := v.fields[key]
	return val, ok
}

func (v Value) MapKeys() []string { return append([]string(nil), v.keys...) }

func (v Value) MapLen() int { return len(v.fields) }

// MapWith returns a copy of the Map Value with key set to val (adding key
// to the key order if new). Maps are otherwise immutable from the caller's
// perspective, matching the tree-shaped, cycle-free ownership model (§9).
func (v Value) MapWith(key string, val Value) Value {
	fields := make(map[string]Value, len(v.fields)+1)
	for k, fv := range v.fields {
		fields[k] = fv
	}
	_, existed := fields[key]
	fields[key] = val
	keys := v.keys
	if !existed {
		keys = append(append([]string(nil), v.keys...), key)
	}
	return Value{Tag: TagMap, fields: fields, keys: keys}
}

// MapWithout returns a copy with key removed.
func (v Value) MapWithout(key string) Value {
	fields := make(map[string]Value, len(v.fields))
	keys := make([]string, 0, len(v.keys))
	for _, k := range v.keys {
		if k == key {
			continue
		}
		fields[k] = v.fields[k]
		keys = append(keys, k)
	}
	return Value{Tag: TagMap, fields: fields, keys: keys}
}

// Truthy implements spec §3.1's truthiness table.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagBool:
		return v.b
	case TagNumber:
		return v.num != 0
	case TagNil:
		return false
	case TagLiteral, TagOutput:
		return v.str != ""
	default:
		return true
	}
}

// Coercible reports whether AsArg can produce an argv string for this
// value without loss, per spec §3.1's coercion rules.
func (v Value) Coercible() bool {
	switch v.Tag {
	case TagBlock, TagTable, TagMap, TagFuture, TagMarker:
		return false
	default:
		return true
	}
}

// AsArg implements the `as_arg` coercion rule set (spec §3.1): the
// conversion used whenever a Value must become a process argument or a
// string map key.
func (v Value) AsArg() string {
	switch v.Tag {
	case TagLiteral, TagOutput:
		return v.str
	case TagNumber:
		return formatNumber(v.num)
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagNil:
		return ""
	case TagBytes:
		return hex.EncodeToString(v.bytes)
	case TagBigInt:
		if v.bigint == nil {
			return "0"
		}
		return v.bigint.String()
	case TagMedia:
		if v.media != nil {
			return fmt.Sprintf("<media:%s>", v.media.Mime)
		}
		return "<media>"
	case TagLink:
		if v.link != nil {
			return v.link.URL
		}
		return ""
	case TagError:
		if v.err != nil {
			return fmt.Sprintf("Error: %s", v.err.Message)
		}
		return "Error"
	default:
		return ""
	}
}

// formatNumber prints integer-looking numbers without a trailing ".0", per
// spec's Number carried-state note.
func formatNumber(f float64) string {
	if f == float64(int64(f)) && !strings.ContainsAny(strconv.FormatFloat(f, 'f', -1, 64), "eE") {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TypeOf returns one of the Tag names; total over every Value (spec §8
// testable property: "typeof is total").
func TypeOf(v Value) string { return v.Tag.String() }
